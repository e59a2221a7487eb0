package retrieval

import (
	"context"
	"log"

	"github.com/sentencechat/backend/internal/circuitbreaker"
	"github.com/sentencechat/backend/internal/metrics"
	"github.com/sentencechat/backend/internal/store"
)

// Search modes recorded in metrics.
const (
	ModeHybrid       = "hybrid"
	ModeText         = "text"
	ModeTextFallback = "text_fallback"
)

// topKCeiling is the hard upper bound on results per search.
const topKCeiling = 20

// ChunkSearcher is the slice of the store the retrieval service depends on.
type ChunkSearcher interface {
	SearchChunksText(ctx context.Context, query string, topK int, offenceID *string) ([]store.GuidelineChunk, error)
	SearchChunksHybrid(ctx context.Context, query string, embedding []float32, topK int, offenceID *string) ([]store.GuidelineChunk, error)
}

// ServiceOptions wires the retrieval service. Embedder and Cache may be nil;
// a nil Embedder or VectorEnabled=false pins every search to lexical mode.
type ServiceOptions struct {
	Searcher      ChunkSearcher
	Embedder      Embedder
	Cache         *EmbeddingCache
	Metrics       *metrics.Metrics
	DefaultTopK   int
	VectorEnabled bool
}

// Service retrieves guideline chunks. When vector search is enabled and an
// embedder is configured it embeds the query and runs hybrid search; any
// embedding failure degrades that request to lexical search. Store errors
// always propagate.
type Service struct {
	searcher      ChunkSearcher
	embedder      Embedder
	cache         *EmbeddingCache
	metrics       *metrics.Metrics
	breaker       *circuitbreaker.CircuitBreaker
	defaultTopK   int
	vectorEnabled bool
	logger        *log.Logger
}

// NewService builds the retrieval service and its embeddings circuit
// breaker.
func NewService(opts ServiceOptions) *Service {
	defaultTopK := opts.DefaultTopK
	if defaultTopK <= 0 {
		defaultTopK = 6
	}
	return &Service{
		searcher:      opts.Searcher,
		embedder:      opts.Embedder,
		cache:         opts.Cache,
		metrics:       opts.Metrics,
		breaker:       circuitbreaker.New(circuitbreaker.DefaultConfig("embeddings")),
		defaultTopK:   defaultTopK,
		vectorEnabled: opts.VectorEnabled,
		logger:        log.New(log.Writer(), "[Retrieval] ", log.LstdFlags),
	}
}

// Search returns up to topK guideline chunks for the query, optionally
// restricted to one offence. topK values outside [1, 20] are clamped; zero
// or negative means the configured default.
func (s *Service) Search(ctx context.Context, query string, offenceID *string, topK int) ([]store.GuidelineChunk, error) {
	topK = s.clampTopK(topK)

	if s.vectorEnabled && s.embedder != nil {
		embedding, err := s.embed(ctx, query)
		if err != nil {
			s.logger.Printf("embedding unavailable, falling back to text search: %v", err)
			return s.textSearch(ctx, query, topK, offenceID, ModeTextFallback)
		}

		chunks, err := s.searcher.SearchChunksHybrid(ctx, query, embedding, topK, offenceID)
		if err != nil {
			return nil, err
		}
		s.record(ModeHybrid)
		return chunks, nil
	}

	return s.textSearch(ctx, query, topK, offenceID, ModeText)
}

func (s *Service) textSearch(ctx context.Context, query string, topK int, offenceID *string, mode string) ([]store.GuidelineChunk, error) {
	chunks, err := s.searcher.SearchChunksText(ctx, query, topK, offenceID)
	if err != nil {
		return nil, err
	}
	s.record(mode)
	return chunks, nil
}

// embed returns the query embedding, consulting the cache first. Calls to
// the embeddings API run through the circuit breaker so a failing provider
// short-circuits to lexical fallback.
func (s *Service) embed(ctx context.Context, query string) ([]float32, error) {
	model := s.embedder.Model()

	if s.cache != nil {
		if embedding, ok := s.cache.Get(ctx, model, query); ok {
			s.recordCache(true)
			return embedding, nil
		}
		s.recordCache(false)
	}

	var embedding []float32
	err := s.breaker.Execute(func() error {
		var embedErr error
		embedding, embedErr = s.embedder.Embed(ctx, query)
		return embedErr
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, model, query, embedding)
	}
	return embedding, nil
}

func (s *Service) clampTopK(topK int) int {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK < 1 {
		return 1
	}
	if topK > topKCeiling {
		return topKCeiling
	}
	return topK
}

func (s *Service) record(mode string) {
	if s.metrics != nil {
		s.metrics.RecordRetrieval(mode)
	}
}

func (s *Service) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordEmbeddingCache(hit)
	}
}

package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentencechat/backend/internal/metrics"
	"github.com/sentencechat/backend/internal/store"
)

type searcherStub struct {
	chunks []store.GuidelineChunk
	err    error

	textCalls   int
	hybridCalls int
	lastTopK    int
	lastOffence *string
	lastVector  []float32
}

func (s *searcherStub) SearchChunksText(ctx context.Context, query string, topK int, offenceID *string) ([]store.GuidelineChunk, error) {
	s.textCalls++
	s.lastTopK = topK
	s.lastOffence = offenceID
	return s.chunks, s.err
}

func (s *searcherStub) SearchChunksHybrid(ctx context.Context, query string, embedding []float32, topK int, offenceID *string) ([]store.GuidelineChunk, error) {
	s.hybridCalls++
	s.lastTopK = topK
	s.lastOffence = offenceID
	s.lastVector = embedding
	return s.chunks, s.err
}

type embedderStub struct {
	embedding []float32
	err       error
	calls     int
}

func (e *embedderStub) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.embedding, e.err
}

func (e *embedderStub) Model() string { return "stub-model" }

func chunkFixture() []store.GuidelineChunk {
	return []store.GuidelineChunk{{ChunkID: "c1", GuidelineID: "g1", ChunkText: "Step 1...", Score: 0.8}}
}

func TestService_HybridWhenEmbeddingSucceeds(t *testing.T) {
	searcher := &searcherStub{chunks: chunkFixture()}
	embedder := &embedderStub{embedding: []float32{0.1, 0.2}}
	svc := NewService(ServiceOptions{
		Searcher: searcher, Embedder: embedder,
		DefaultTopK: 6, VectorEnabled: true,
	})

	chunks, err := svc.Search(context.Background(), "custody", nil, 4)
	require.NoError(t, err)
	assert.Equal(t, chunkFixture(), chunks)
	assert.Equal(t, 1, searcher.hybridCalls)
	assert.Equal(t, 0, searcher.textCalls)
	assert.Equal(t, []float32{0.1, 0.2}, searcher.lastVector)
	assert.Equal(t, 4, searcher.lastTopK)
}

func TestService_FallsBackToTextOnEmbeddingFailure(t *testing.T) {
	searcher := &searcherStub{chunks: chunkFixture()}
	embedder := &embedderStub{err: errors.New("provider down")}
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	svc := NewService(ServiceOptions{
		Searcher: searcher, Embedder: embedder, Metrics: m,
		DefaultTopK: 6, VectorEnabled: true,
	})

	chunks, err := svc.Search(context.Background(), "custody", nil, 0)
	require.NoError(t, err, "embedding failures must not surface")
	assert.Equal(t, chunkFixture(), chunks)
	assert.Equal(t, 0, searcher.hybridCalls)
	assert.Equal(t, 1, searcher.textCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalSearchesTotal.WithLabelValues(ModeTextFallback)))
}

func TestService_TextWhenVectorDisabled(t *testing.T) {
	searcher := &searcherStub{chunks: chunkFixture()}
	embedder := &embedderStub{embedding: []float32{0.1}}
	svc := NewService(ServiceOptions{
		Searcher: searcher, Embedder: embedder,
		DefaultTopK: 6, VectorEnabled: false,
	})

	_, err := svc.Search(context.Background(), "custody", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.textCalls)
	assert.Equal(t, 0, embedder.calls)
}

func TestService_TextWhenNoEmbedder(t *testing.T) {
	searcher := &searcherStub{chunks: chunkFixture()}
	svc := NewService(ServiceOptions{Searcher: searcher, DefaultTopK: 6, VectorEnabled: true})

	_, err := svc.Search(context.Background(), "custody", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.textCalls)
}

func TestService_TopKClamping(t *testing.T) {
	searcher := &searcherStub{}
	svc := NewService(ServiceOptions{Searcher: searcher, DefaultTopK: 6})

	tests := []struct {
		in, want int
	}{
		{0, 6},
		{-3, 6},
		{7, 7},
		{20, 20},
		{100, 20},
	}
	for _, tt := range tests {
		_, err := svc.Search(context.Background(), "q", nil, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, searcher.lastTopK, "topK %d", tt.in)
	}
}

func TestService_OffenceFilterPassesThrough(t *testing.T) {
	searcher := &searcherStub{}
	svc := NewService(ServiceOptions{Searcher: searcher, DefaultTopK: 6})

	offenceID := "7c9a4a1e-9df4-4c38-a2a5-2f3d1f2b9c01"
	_, err := svc.Search(context.Background(), "q", &offenceID, 3)
	require.NoError(t, err)
	require.NotNil(t, searcher.lastOffence)
	assert.Equal(t, offenceID, *searcher.lastOffence)
}

func TestService_StoreErrorsPropagate(t *testing.T) {
	searcher := &searcherStub{err: errors.New("db down")}
	svc := NewService(ServiceOptions{Searcher: searcher, DefaultTopK: 6})

	_, err := svc.Search(context.Background(), "q", nil, 3)
	assert.EqualError(t, err, "db down")
}

func TestService_BreakerStopsHammeringFailingProvider(t *testing.T) {
	searcher := &searcherStub{chunks: chunkFixture()}
	embedder := &embedderStub{err: errors.New("provider down")}
	svc := NewService(ServiceOptions{
		Searcher: searcher, Embedder: embedder,
		DefaultTopK: 6, VectorEnabled: true,
	})

	for i := 0; i < 6; i++ {
		_, err := svc.Search(context.Background(), "q", nil, 3)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, embedder.calls, "breaker opens after three consecutive failures")
	assert.Equal(t, 6, searcher.textCalls, "every search still answers via text")
}

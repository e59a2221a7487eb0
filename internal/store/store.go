// Package store provides access to the offence catalog, sentencing matrices,
// guideline chunks and the calculation audit log. Two implementations exist:
// SupabaseStore speaks PostgREST RPC over HTTP, PostgresStore speaks SQL over
// a direct connection. Both expose the same six database functions.
package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sentencechat/backend/internal/sentencing"
)

// ErrInvalidOffenceID marks an offence id the database rejected as a UUID.
// Callers translate it to a validation failure rather than a server error.
var ErrInvalidOffenceID = errors.New("offence id is not a valid UUID")

// Store is the access layer consumed by the handlers, the retrieval service
// and the audit writer. A nil offence record with a nil error means the
// offence does not exist.
type Store interface {
	// FetchOffenceByID returns the catalog row for one offence, or nil when
	// no row matches.
	FetchOffenceByID(ctx context.Context, offenceID string) (*sentencing.OffenceRecord, error)

	// SearchOffences runs trigram matching over canonical names, short names
	// and provisions. Results arrive in descending score order.
	SearchOffences(ctx context.Context, query string, limit int) ([]OffenceMatch, error)

	// FetchSentencingMatrix returns every culpability/harm cell linked to the
	// offence's guideline, deduplicated by matrix id.
	FetchSentencingMatrix(ctx context.Context, offenceID string) ([]sentencing.MatrixRow, error)

	// SearchChunksText runs lexical full-text search over guideline chunks.
	// A non-nil offenceID restricts results to chunks belonging to, or linked
	// to, that offence.
	SearchChunksText(ctx context.Context, query string, topK int, offenceID *string) ([]GuidelineChunk, error)

	// SearchChunksHybrid blends vector similarity with lexical rank. The
	// embedding must match the dimension of the stored vectors.
	SearchChunksHybrid(ctx context.Context, query string, embedding []float32, topK int, offenceID *string) ([]GuidelineChunk, error)

	// StoreCalculationAudit inserts one audit row. Request and result are
	// marshalled to jsonb.
	StoreCalculationAudit(ctx context.Context, offenceID string, request, result any) error

	// Ping reports whether the backing database answers.
	Ping(ctx context.Context) error

	// Close releases the underlying connection resources.
	Close() error
}

// OffenceMatch is one trigram search hit: the catalog row plus its
// similarity score.
type OffenceMatch struct {
	sentencing.OffenceRecord
	Score float64 `json:"score"`
}

// GuidelineChunk is one retrieved guideline section. Vector and text scores
// are only present on hybrid results; Score is always populated.
type GuidelineChunk struct {
	ChunkID        string   `json:"chunk_id"`
	GuidelineID    string   `json:"guideline_id"`
	OffenceID      *string  `json:"offence_id"`
	SectionType    *string  `json:"section_type"`
	SectionHeading *string  `json:"section_heading"`
	ChunkText      string   `json:"chunk_text"`
	SourceURL      *string  `json:"source_url"`
	VectorScore    *float64 `json:"vector_score,omitempty"`
	TextScore      *float64 `json:"text_score,omitempty"`
	Score          float64  `json:"score"`
}

// vectorLiteral renders an embedding in pgvector input syntax: [f1,f2,...].
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

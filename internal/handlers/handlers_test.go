package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentencechat/backend/internal/retrieval"
	"github.com/sentencechat/backend/internal/sentencing"
	"github.com/sentencechat/backend/internal/store"
)

const testOffenceID = "0b6fdbcb-52ea-4767-9a0f-0f5e3a94c28f"

type auditCall struct {
	offenceID string
	request   any
	result    any
}

// fakeStore scripts store responses and records the arguments it saw.
type fakeStore struct {
	mu sync.Mutex

	offence    *sentencing.OffenceRecord
	offenceErr error
	matches    []store.OffenceMatch
	searchErr  error
	matrix     []sentencing.MatrixRow
	matrixErr  error
	chunks     []store.GuidelineChunk
	chunksErr  error
	pingErr    error

	fetchedID    string
	searchQuery  string
	searchLimit  int
	chunkQuery   string
	chunkTopK    int
	chunkOffence *string
	audits       []auditCall
}

func (f *fakeStore) FetchOffenceByID(ctx context.Context, offenceID string) (*sentencing.OffenceRecord, error) {
	f.mu.Lock()
	f.fetchedID = offenceID
	f.mu.Unlock()
	return f.offence, f.offenceErr
}

func (f *fakeStore) SearchOffences(ctx context.Context, query string, limit int) ([]store.OffenceMatch, error) {
	f.mu.Lock()
	f.searchQuery = query
	f.searchLimit = limit
	f.mu.Unlock()
	return f.matches, f.searchErr
}

func (f *fakeStore) FetchSentencingMatrix(ctx context.Context, offenceID string) ([]sentencing.MatrixRow, error) {
	return f.matrix, f.matrixErr
}

func (f *fakeStore) SearchChunksText(ctx context.Context, query string, topK int, offenceID *string) ([]store.GuidelineChunk, error) {
	f.mu.Lock()
	f.chunkQuery = query
	f.chunkTopK = topK
	f.chunkOffence = offenceID
	f.mu.Unlock()
	return f.chunks, f.chunksErr
}

func (f *fakeStore) SearchChunksHybrid(ctx context.Context, query string, embedding []float32, topK int, offenceID *string) ([]store.GuidelineChunk, error) {
	return f.SearchChunksText(ctx, query, topK, offenceID)
}

func (f *fakeStore) StoreCalculationAudit(ctx context.Context, offenceID string, request, result any) error {
	f.mu.Lock()
	f.audits = append(f.audits, auditCall{offenceID: offenceID, request: request, result: result})
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) auditCalls() []auditCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]auditCall, len(f.audits))
	copy(out, f.audits)
	return out
}

func testOffence() *sentencing.OffenceRecord {
	return &sentencing.OffenceRecord{
		OffenceID:             testOffenceID,
		CanonicalName:         "Common assault",
		ShortName:             "Common assault",
		OffenceCategory:       "Assault offences",
		Provision:             "Criminal Justice Act 1988 s.39",
		MaximumSentenceType:   "custody",
		MaximumSentenceAmount: "6 months",
	}
}

func testChunk(id string, score float64) store.GuidelineChunk {
	heading := "Sentencing ranges"
	sectionType := "ranges"
	url := "https://guidelines.example/common-assault"
	return store.GuidelineChunk{
		ChunkID:        id,
		GuidelineID:    "g-1",
		SectionType:    &sectionType,
		SectionHeading: &heading,
		ChunkText:      "Category 1 starting point 26 weeks' custody.",
		SourceURL:      &url,
		Score:          score,
	}
}

// validCalcBody mirrors the common-assault scenario: guilty plea at first
// stage, 12-month pre-plea term.
func validCalcBody() map[string]any {
	return map[string]any{
		"offence_id":           testOffenceID,
		"offence_date":         "2024-01-10",
		"conviction_date":      "2024-02-01",
		"sentence_date":        "2024-03-01",
		"age_at_offence":       30,
		"age_at_conviction":    30,
		"age_at_sentence":      30,
		"plea_stage":           "first_stage",
		"sentence_type":        "determinate_custodial_sentence",
		"pre_plea_term_months": 12,
	}
}

func textOnlyService(f *fakeStore, defaultTopK int) *retrieval.Service {
	return retrieval.NewService(retrieval.ServiceOptions{
		Searcher:      f,
		DefaultTopK:   defaultTopK,
		VectorEnabled: false,
	})
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf []byte
	switch b := body.(type) {
	case string:
		buf = []byte(b)
	default:
		var err error
		buf, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	detail, ok := envelope["detail"]
	require.True(t, ok, "response has no detail field: %s", rec.Body.String())
	return detail
}

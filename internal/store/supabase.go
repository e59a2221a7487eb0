package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sentencechat/backend/internal/sentencing"
)

// SupabaseStore talks to the database through PostgREST, calling the
// sentencing RPC functions under /rest/v1/rpc. It authenticates with the
// service-role key on every request.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *log.Logger
}

// postgrestError is the error body PostgREST returns on non-2xx responses.
type postgrestError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// NewSupabaseStore creates a PostgREST-backed store. Both the project URL
// and the service-role key are required.
func NewSupabaseStore(projectURL, serviceRoleKey string) (*SupabaseStore, error) {
	if projectURL == "" || serviceRoleKey == "" {
		return nil, fmt.Errorf("missing required Supabase credentials (SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY)")
	}

	s := &SupabaseStore{
		baseURL:    strings.TrimRight(projectURL, "/"),
		serviceKey: serviceRoleKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.New(log.Writer(), "[SupabaseStore] ", log.LstdFlags),
	}
	s.logger.Printf("Supabase store initialized (project: %s)", s.baseURL)
	return s, nil
}

// rpc POSTs named parameters to /rest/v1/rpc/<fn> and decodes the JSON
// response into out when out is non-nil.
func (s *SupabaseStore) rpc(ctx context.Context, fn string, params map[string]any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("rpc %s: failed to encode params: %w", fn, err)
	}

	url := s.baseURL + "/rest/v1/rpc/" + fn
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rpc %s: failed to build request: %w", fn, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: request failed: %w", fn, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpc %s: failed to read response: %w", fn, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var pgErr postgrestError
		if jsonErr := json.Unmarshal(data, &pgErr); jsonErr == nil && pgErr.Code == "22P02" {
			return fmt.Errorf("rpc %s: %w", fn, ErrInvalidOffenceID)
		}
		if pgErr.Message != "" {
			return fmt.Errorf("rpc %s: HTTP %d: %s", fn, resp.StatusCode, pgErr.Message)
		}
		return fmt.Errorf("rpc %s: HTTP %d: %s", fn, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("rpc %s: failed to decode response: %w", fn, err)
	}
	return nil
}

func (s *SupabaseStore) FetchOffenceByID(ctx context.Context, offenceID string) (*sentencing.OffenceRecord, error) {
	var rows []sentencing.OffenceRecord
	err := s.rpc(ctx, "fetch_offence_by_id", map[string]any{"p_offence_id": offenceID}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *SupabaseStore) SearchOffences(ctx context.Context, query string, limit int) ([]OffenceMatch, error) {
	var rows []OffenceMatch
	err := s.rpc(ctx, "search_offences", map[string]any{
		"p_query": query,
		"p_limit": limit,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SupabaseStore) FetchSentencingMatrix(ctx context.Context, offenceID string) ([]sentencing.MatrixRow, error) {
	var rows []sentencing.MatrixRow
	err := s.rpc(ctx, "fetch_sentencing_matrix", map[string]any{"p_offence_id": offenceID}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SupabaseStore) SearchChunksText(ctx context.Context, query string, topK int, offenceID *string) ([]GuidelineChunk, error) {
	var rows []GuidelineChunk
	err := s.rpc(ctx, "search_chunks_text", map[string]any{
		"p_query":      query,
		"p_top_k":      topK,
		"p_offence_id": offenceID,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SupabaseStore) SearchChunksHybrid(ctx context.Context, query string, embedding []float32, topK int, offenceID *string) ([]GuidelineChunk, error) {
	var rows []GuidelineChunk
	err := s.rpc(ctx, "search_chunks_hybrid", map[string]any{
		"p_query":      query,
		"p_embedding":  vectorLiteral(embedding),
		"p_top_k":      topK,
		"p_offence_id": offenceID,
	}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SupabaseStore) StoreCalculationAudit(ctx context.Context, offenceID string, request, result any) error {
	return s.rpc(ctx, "store_calculation_audit", map[string]any{
		"p_offence_id": offenceID,
		"p_request":    request,
		"p_result":     result,
	}, nil)
}

// Ping probes the PostgREST root. Any answer from the API counts as
// connected; only transport failures and server errors report down.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("ping: failed to build request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping: request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("ping: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (s *SupabaseStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

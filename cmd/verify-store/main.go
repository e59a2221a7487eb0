package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	supabase "github.com/supabase-community/supabase-go"

	"github.com/sentencechat/backend/internal/config"
	"github.com/sentencechat/backend/internal/sentencing"
	"github.com/sentencechat/backend/internal/store"
)

// probeEmbeddingDim matches the dimension of the stored chunk vectors
// (text-embedding-3-small).
const probeEmbeddingDim = 1536

// zeroUUID is a syntactically valid id no catalog row will ever carry.
const zeroUUID = "00000000-0000-0000-0000-000000000000"

// tables checked for existence and row counts via PostgREST.
var catalogTables = []string{
	"offence_catalog",
	"guidelines",
	"offence_guideline_links",
	"sentencing_matrix",
	"guideline_chunks",
	"calculation_audit",
}

// VerificationResult stores one probe outcome
type VerificationResult struct {
	Probe   string
	Status  string
	Details string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║       Sentencing Backend - Store Contract Verification        ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	st, kind, err := openStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer st.Close()

	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		log.Fatalf("❌ Failed to create Supabase client: %v", err)
	}

	ctx := context.Background()
	results := []VerificationResult{}

	fmt.Printf("Store: %s\n\n", kind)
	fmt.Println("Checking tables...")
	fmt.Println()

	for _, table := range catalogTables {
		result := countTable(client, table)
		results = append(results, result)
		printResult(result)
	}

	fmt.Println()
	fmt.Println("Probing RPC functions...")
	fmt.Println()

	result, offence := probeSearchOffences(ctx, st)
	results = append(results, result)
	printResult(result)

	for _, probe := range []func(context.Context, store.Store, *sentencing.OffenceRecord) VerificationResult{
		probeFetchOffence,
		probeSentencingMatrix,
		probeChunksText,
		probeChunksHybrid,
		probeAudit,
	} {
		result = probe(ctx, st, offence)
		results = append(results, result)
		printResult(result)
	}

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════")
	passed, warned, failed := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case "✅ PASS":
			passed++
		case "❌ FAIL":
			failed++
		default:
			warned++
		}
	}
	fmt.Printf("Results: %d PASSED, %d WARNED, %d FAILED\n", passed, warned, failed)
	fmt.Println("═══════════════════════════════════════════════════════════════")

	if failed > 0 {
		os.Exit(1)
	}
}

func printResult(r VerificationResult) {
	fmt.Printf("  %-25s %s  %s\n", r.Probe, r.Status, r.Details)
}

// openStore mirrors the API server's store selection.
func openStore(cfg *config.Config) (store.Store, string, error) {
	if cfg.DatabaseURL != "" {
		st, err := store.NewPostgresStore(cfg.DatabaseURL)
		return st, "direct Postgres", err
	}
	st, err := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey)
	return st, "Supabase PostgREST", err
}

func countTable(client *supabase.Client, table string) VerificationResult {
	_, count, err := client.From(table).Select("*", "exact", true).Execute()
	if err != nil {
		return VerificationResult{table, "❌ FAIL", err.Error()}
	}
	if count == 0 {
		return VerificationResult{table, "⚠️ WARN", "No rows"}
	}
	return VerificationResult{table, "✅ PASS", fmt.Sprintf("%d rows", count)}
}

// probeSearchOffences also resolves the offence the later probes reuse.
func probeSearchOffences(ctx context.Context, st store.Store) (VerificationResult, *sentencing.OffenceRecord) {
	matches, err := st.SearchOffences(ctx, "assault", 5)
	if err != nil {
		return VerificationResult{"search_offences", "❌ FAIL", err.Error()}, nil
	}
	if len(matches) == 0 {
		return VerificationResult{"search_offences", "⚠️ WARN", "No matches for probe query"}, nil
	}
	top := matches[0].OffenceRecord
	details := fmt.Sprintf("%d matches, top: %s", len(matches), top.CanonicalName)
	return VerificationResult{"search_offences", "✅ PASS", details}, &top
}

func probeFetchOffence(ctx context.Context, st store.Store, offence *sentencing.OffenceRecord) VerificationResult {
	id := zeroUUID
	if offence != nil {
		id = offence.OffenceID
	}

	rec, err := st.FetchOffenceByID(ctx, id)
	if err != nil {
		return VerificationResult{"fetch_offence_by_id", "❌ FAIL", err.Error()}
	}
	if rec == nil {
		if offence != nil {
			return VerificationResult{"fetch_offence_by_id", "❌ FAIL", "resolved offence missing by id"}
		}
		return VerificationResult{"fetch_offence_by_id", "⚠️ WARN", "RPC reachable, no row for zero id"}
	}
	return VerificationResult{"fetch_offence_by_id", "✅ PASS", fmt.Sprintf("Found: %s", rec.CanonicalName)}
}

func probeSentencingMatrix(ctx context.Context, st store.Store, offence *sentencing.OffenceRecord) VerificationResult {
	id := zeroUUID
	if offence != nil {
		id = offence.OffenceID
	}

	rows, err := st.FetchSentencingMatrix(ctx, id)
	if err != nil {
		return VerificationResult{"fetch_sentencing_matrix", "❌ FAIL", err.Error()}
	}
	if len(rows) == 0 {
		return VerificationResult{"fetch_sentencing_matrix", "⚠️ WARN", "No matrix rows"}
	}
	return VerificationResult{"fetch_sentencing_matrix", "✅ PASS", fmt.Sprintf("%d rows", len(rows))}
}

func probeChunksText(ctx context.Context, st store.Store, _ *sentencing.OffenceRecord) VerificationResult {
	chunks, err := st.SearchChunksText(ctx, "custody threshold", 3, nil)
	if err != nil {
		return VerificationResult{"search_chunks_text", "❌ FAIL", err.Error()}
	}
	if len(chunks) == 0 {
		return VerificationResult{"search_chunks_text", "⚠️ WARN", "No chunks for probe query"}
	}
	return VerificationResult{"search_chunks_text", "✅ PASS", fmt.Sprintf("%d chunks", len(chunks))}
}

func probeChunksHybrid(ctx context.Context, st store.Store, _ *sentencing.OffenceRecord) VerificationResult {
	chunks, err := st.SearchChunksHybrid(ctx, "custody threshold", probeEmbedding(), 3, nil)
	if err != nil {
		return VerificationResult{"search_chunks_hybrid", "❌ FAIL", err.Error()}
	}
	if len(chunks) == 0 {
		return VerificationResult{"search_chunks_hybrid", "⚠️ WARN", "No chunks (embeddings loaded?)"}
	}
	return VerificationResult{"search_chunks_hybrid", "✅ PASS", fmt.Sprintf("%d chunks", len(chunks))}
}

func probeAudit(ctx context.Context, st store.Store, offence *sentencing.OffenceRecord) VerificationResult {
	if offence == nil {
		return VerificationResult{"store_calculation_audit", "⚠️ WARN", "Skipped: no offence to reference"}
	}

	request := map[string]any{
		"probe": true,
		"tool":  "verify-store",
		"at":    time.Now().UTC().Format(time.RFC3339),
	}
	result := map[string]any{"probe": true}
	if err := st.StoreCalculationAudit(ctx, offence.OffenceID, request, result); err != nil {
		return VerificationResult{"store_calculation_audit", "❌ FAIL", err.Error()}
	}
	return VerificationResult{"store_calculation_audit", "✅ PASS", "Insert OK"}
}

// probeEmbedding returns a unit-norm vector so cosine distance is defined.
func probeEmbedding() []float32 {
	v := float32(1.0 / math.Sqrt(float64(probeEmbeddingDim)))
	embedding := make([]float32, probeEmbeddingDim)
	for i := range embedding {
		embedding[i] = v
	}
	return embedding
}

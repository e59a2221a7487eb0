package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentencechat/backend/internal/api"
	"github.com/sentencechat/backend/internal/config"
	"github.com/sentencechat/backend/internal/metrics"
	"github.com/sentencechat/backend/internal/middleware"
	"github.com/sentencechat/backend/internal/retrieval"
	"github.com/sentencechat/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Prefer a direct Postgres connection when DATABASE_URL is set; otherwise
	// go through Supabase PostgREST with the service role key.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		st = pg
		log.Println("🗄️  Store: direct Postgres")
	} else {
		sb, err := store.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey)
		if err != nil {
			log.Fatalf("Failed to initialize Supabase store: %v", err)
		}
		st = sb
		log.Println("🗄️  Store: Supabase PostgREST")
	}
	defer st.Close()

	m := metrics.NewMetrics()

	// Embeddings are optional: without an API key every search runs in
	// lexical mode.
	var embedder retrieval.Embedder
	if cfg.OpenAIAPIKey != "" {
		embedder = retrieval.NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel)
		log.Printf("🧠 Embeddings: %s", cfg.OpenAIEmbeddingModel)
	} else {
		log.Println("🧠 Embeddings: disabled (no OPENAI_API_KEY), text search only")
	}

	var cache *retrieval.EmbeddingCache
	if cfg.RedisURL != "" && embedder != nil {
		cache, err = retrieval.NewEmbeddingCache(cfg.RedisURL)
		if err != nil {
			// The cache is an optimization; run without it.
			log.Printf("⚠️  Embedding cache unavailable: %v", err)
		} else {
			defer cache.Close()
		}
	}

	retrievalSvc := retrieval.NewService(retrieval.ServiceOptions{
		Searcher:      st,
		Embedder:      embedder,
		Cache:         cache,
		Metrics:       m,
		DefaultTopK:   cfg.RetrievalTopK,
		VectorEnabled: cfg.EnableVectorSearch,
	})

	auditWriter := store.NewAuditWriter(st, cfg.AuditQueueSize, 3*time.Second, m)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(st, retrievalSvc, auditWriter, m, limiter).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown (Cloud Run sends SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		// Flush queued audit rows before the store goes away.
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer drainCancel()
		if err := auditWriter.Close(drainCtx); err != nil {
			log.Printf("Audit queue drain error: %v", err)
		}
	}()

	log.Printf("🚀 Sentencing API starting on port %s", cfg.Port)
	log.Printf("📊 Health check: http://localhost:%s/health", cfg.Port)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}

	<-shutdownDone
	log.Println("Server stopped")
}

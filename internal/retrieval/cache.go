package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// embeddingTTL bounds how long a cached query embedding stays valid.
const embeddingTTL = 24 * time.Hour

// EmbeddingCache stores query embeddings in Redis, keyed by a digest of the
// model and query text. Cache failures are logged and treated as misses so
// Redis outages never affect retrieval.
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewEmbeddingCache connects to Redis and verifies the connection.
func NewEmbeddingCache(redisURL string) (*EmbeddingCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &EmbeddingCache{
		client: client,
		ttl:    embeddingTTL,
		logger: log.New(log.Writer(), "[EmbeddingCache] ", log.LstdFlags),
	}
	cache.logger.Println("Embedding cache connected")
	return cache, nil
}

func cacheKey(model, query string) string {
	sum := sha256.Sum256([]byte(model + ":" + query))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for model+query, or false on a miss.
func (c *EmbeddingCache) Get(ctx context.Context, model, query string) ([]float32, bool) {
	data, err := c.client.Get(ctx, cacheKey(model, query)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Printf("cache get failed: %v", err)
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		c.logger.Printf("cache entry corrupt, ignoring: %v", err)
		return nil, false
	}
	return embedding, true
}

// Set stores an embedding with the cache TTL. Failures are logged only.
func (c *EmbeddingCache) Set(ctx context.Context, model, query string, embedding []float32) {
	data, err := json.Marshal(embedding)
	if err != nil {
		c.logger.Printf("cache encode failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(model, query), data, c.ttl).Err(); err != nil {
		c.logger.Printf("cache set failed: %v", err)
	}
}

// Close releases the Redis connection.
func (c *EmbeddingCache) Close() error {
	return c.client.Close()
}

// Package config assembles the runtime configuration from compiled
// defaults, an optional YAML file and the environment. Environment values
// always win; credentials are environment-only and never read from the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the resolved service configuration.
type Config struct {
	Port string

	// Store
	SupabaseURL            string
	SupabaseServiceRoleKey string
	DatabaseURL            string

	// Embeddings
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIEmbeddingModel string

	// Retrieval
	RetrievalTopK      int
	EnableVectorSearch bool
	RedisURL           string

	// API
	RateLimitPerMinute int
	AuditQueueSize     int
}

// fileConfig is the YAML-tunable subset. Pointer fields distinguish "absent"
// from zero values.
type fileConfig struct {
	Port                 string `yaml:"port"`
	OpenAIBaseURL        string `yaml:"openai_base_url"`
	OpenAIEmbeddingModel string `yaml:"openai_embedding_model"`
	RetrievalTopK        *int   `yaml:"retrieval_top_k"`
	EnableVectorSearch   *bool  `yaml:"enable_vector_search"`
	RateLimitPerMinute   *int   `yaml:"rate_limit_per_minute"`
	AuditQueueSize       *int   `yaml:"audit_queue_size"`
}

// Load resolves the configuration. A .env file is honoured when present.
// The YAML file named by CONFIG_FILE (default config.yaml) tunes non-secret
// settings; SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY must come from the
// environment and are required.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is the normal deployed case.
	godotenv.Load()

	cfg := &Config{
		Port:                 "8080",
		OpenAIBaseURL:        "https://api.openai.com/v1",
		OpenAIEmbeddingModel: "text-embedding-3-small",
		RetrievalTopK:        6,
		EnableVectorSearch:   true,
		RateLimitPerMinute:   120,
		AuditQueueSize:       256,
	}

	if err := applyFile(cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	var missing []string
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if cfg.SupabaseServiceRoleKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func applyFile(cfg *Config) error {
	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	var fc fileConfig
	if err := yaml.NewDecoder(f).Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.OpenAIBaseURL != "" {
		cfg.OpenAIBaseURL = fc.OpenAIBaseURL
	}
	if fc.OpenAIEmbeddingModel != "" {
		cfg.OpenAIEmbeddingModel = fc.OpenAIEmbeddingModel
	}
	if fc.RetrievalTopK != nil {
		cfg.RetrievalTopK = *fc.RetrievalTopK
	}
	if fc.EnableVectorSearch != nil {
		cfg.EnableVectorSearch = *fc.EnableVectorSearch
	}
	if fc.RateLimitPerMinute != nil {
		cfg.RateLimitPerMinute = *fc.RateLimitPerMinute
	}
	if fc.AuditQueueSize != nil {
		cfg.AuditQueueSize = *fc.AuditQueueSize
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.SupabaseURL, "SUPABASE_URL")
	setString(&cfg.SupabaseServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAIEmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&cfg.RedisURL, "REDIS_URL")

	if err := setInt(&cfg.RetrievalTopK, "RETRIEVAL_TOP_K"); err != nil {
		return err
	}
	if err := setBool(&cfg.EnableVectorSearch, "ENABLE_VECTOR_SEARCH"); err != nil {
		return err
	}
	if err := setInt(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE"); err != nil {
		return err
	}
	if err := setInt(&cfg.AuditQueueSize, "AUDIT_QUEUE_SIZE"); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not a boolean", key, v)
	}
	*dst = b
	return nil
}

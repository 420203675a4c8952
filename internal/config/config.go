// Package config provides configuration loading and structs for the revsearch server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// EmbeddingConfig holds embedding provider settings.
// Dimensions may be left 0 for known OpenAI models; the embedder infers it.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "openai" or "mock"
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
}

// IndexConfig holds vector index settings. Collection names the qdrant
// collection, the postgres table, or nothing for the local backend.
type IndexConfig struct {
	Backend    string         `yaml:"backend"` // "local", "qdrant", or "pgvector"
	Collection string         `yaml:"collection"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Local      LocalConfig    `yaml:"local"`
}

// QdrantConfig holds qdrant gRPC connection settings.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// PostgresConfig holds pgvector connection settings.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// LocalConfig holds settings for the file-backed local index.
type LocalConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig holds retrieval tunables. All of them have stated defaults;
// see ApplyDefaults.
type SearchConfig struct {
	DefaultTopK      int     `yaml:"default_top_k"`
	MaxTopK          int     `yaml:"max_top_k"`
	DefaultThreshold float64 `yaml:"default_threshold"`
	OverfetchMargin  int     `yaml:"overfetch_margin"`
	FetchCap         int     `yaml:"fetch_cap"`
}

// IngestConfig holds corpus ingestion settings.
type IngestConfig struct {
	DataPath  string `yaml:"data_path"`
	BatchSize int    `yaml:"batch_size"`
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, and expands paths. A missing config file is not an
// error: the defaults (plus environment) fully describe a working local
// setup. A .env file in the working directory is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// run on defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Index.Local.Path = expandPath(cfg.Index.Local.Path, configDir)
	cfg.Ingest.DataPath = expandPath(cfg.Ingest.DataPath, configDir)

	return &cfg, nil
}

// applyEnv fills credential fields from the environment when the config file
// leaves them empty.
func applyEnv(cfg *Config) {
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Index.Qdrant.APIKey == "" {
		cfg.Index.Qdrant.APIKey = os.Getenv("QDRANT_API_KEY")
	}
	if cfg.Index.Postgres.URL == "" {
		cfg.Index.Postgres.URL = os.Getenv("DATABASE_URL")
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

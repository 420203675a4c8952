package config

// Defaults for the retrieval tunables. The fetch count for a search is
// min(topK+DefaultOverfetchMargin, DefaultFetchCap): the index returns
// approximate neighbors, so the retriever fetches a few extra candidates and
// re-ranks them exactly.
const (
	DefaultTopK            = 5
	DefaultMaxTopK         = 50
	DefaultThreshold       = 0.3
	DefaultOverfetchMargin = 10
	DefaultFetchCap        = 60
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "local"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "mcd_reviews"
	}
	if cfg.Index.Qdrant.Host == "" {
		cfg.Index.Qdrant.Host = "localhost"
	}
	if cfg.Index.Qdrant.Port == 0 {
		cfg.Index.Qdrant.Port = 6334
	}
	if cfg.Index.Local.Path == "" {
		cfg.Index.Local.Path = "./data/index.bin"
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = DefaultTopK
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = DefaultMaxTopK
	}
	if cfg.Search.DefaultThreshold == 0 {
		cfg.Search.DefaultThreshold = DefaultThreshold
	}
	if cfg.Search.OverfetchMargin == 0 {
		cfg.Search.OverfetchMargin = DefaultOverfetchMargin
	}
	if cfg.Search.FetchCap == 0 {
		cfg.Search.FetchCap = DefaultFetchCap
	}
	if cfg.Ingest.DataPath == "" {
		cfg.Ingest.DataPath = "./data/documents.jsonl"
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 100
	}
}

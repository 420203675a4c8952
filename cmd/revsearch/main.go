// Package main is the revsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/arielhalevy123/revsearch/internal/cli"
	"github.com/arielhalevy123/revsearch/internal/config"
	"github.com/arielhalevy123/revsearch/internal/embedding"
	"github.com/arielhalevy123/revsearch/internal/ingest"
	"github.com/arielhalevy123/revsearch/internal/metrics"
	"github.com/arielhalevy123/revsearch/internal/models"
	"github.com/arielhalevy123/revsearch/internal/search"
	"github.com/arielhalevy123/revsearch/internal/server"
	"github.com/arielhalevy123/revsearch/internal/vector"
	"github.com/arielhalevy123/revsearch/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/revsearch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "revsearch server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("revsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (per-batch ingestion, request details, etc.)")
	watch := fs.Bool("watch", false, "re-ingest the corpus file when it changes")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	m := metrics.New()

	if *watch {
		ing := components.Ingester
		dataPath := cfg.Ingest.DataPath
		watchOpts := []ingest.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, ingest.WithWatcherLogger(logger))
		}
		watchSvc := ingest.NewWatcher(dataPath, func(path string) {
			result, err := ing.IngestFile(context.Background(), path)
			if err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				return
			}
			m.AddDocumentsIngested(result.Ingested)
			logger.Info("corpus re-ingested",
				zap.String("path", path),
				zap.Int("ingested", result.Ingested),
				zap.Int("skipped", result.Skipped))
		}, watchOpts...)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start corpus watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		// Initial sync so the index reflects the corpus file as it is now.
		if result, err := ing.IngestFile(ctx, dataPath); err != nil {
			logger.Warn("initial corpus ingest failed", zap.String("path", dataPath), zap.Error(err))
		} else {
			m.AddDocumentsIngested(result.Ingested)
		}
	}

	srv := server.NewServer(
		components.Retriever,
		components.Embedder,
		components.Index,
		cfg,
		m,
		logger,
		version,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataPath := fs.String("data", "", "corpus file path (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging (per-batch progress)")
	watch := fs.Bool("watch", false, "keep running and re-ingest when the corpus file changes")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	path := cfg.Ingest.DataPath
	if *dataPath != "" {
		path = *dataPath
	}
	result, err := components.Ingester.IngestFile(ctx, path)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %d new document(s) from %s (%d already indexed, %d total)\n",
		result.Ingested, path, result.Skipped, result.Total)

	if !*watch {
		return
	}

	watchOpts := []ingest.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, ingest.WithWatcherLogger(logger))
	}
	watchSvc := ingest.NewWatcher(path, func(changed string) {
		result, err := components.Ingester.IngestFile(context.Background(), changed)
		if err != nil {
			logger.Warn("watch ingest failed", zap.String("path", changed), zap.Error(err))
			return
		}
		logger.Info("corpus re-ingested",
			zap.String("path", changed),
			zap.Int("ingested", result.Ingested),
			zap.Int("skipped", result.Skipped))
	}, watchOpts...)
	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start corpus watcher", zap.Error(err))
	}
	defer watchSvc.Stop()

	fmt.Printf("Watching %s for changes (Ctrl-C to stop)\n", path)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

// printSearchUsage prints search subcommand usage and hints.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: revsearch search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Results are ranked by cosine similarity to the query.
  - --top-k controls how many results come back (at most 50).
  - --threshold drops results below the given similarity. Negative values
    are allowed and admit dissimilar results.

Examples:
  revsearch search poor service
  revsearch search "poor service"            # same as above
  revsearch search --top-k 10 cold food
  revsearch search --threshold 0 --output json late night drive thru
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting (e.g. "poor service" vs poor service).
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchDefaultsFromConfig loads config at path and returns the default top-k
// and similarity threshold for the search flags. On load failure, returns the
// package defaults.
func searchDefaultsFromConfig(path string) (topK int, threshold float64) {
	topK, threshold = config.DefaultTopK, config.DefaultThreshold
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return topK, threshold
	}
	return cfg.Search.DefaultTopK, cfg.Search.DefaultThreshold
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "revsearch search \"query\" -top-k 10"
// would otherwise leave -top-k unparsed (default used).
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)
	defaultTopK, defaultThreshold := searchDefaultsFromConfig(configPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = query the index directly when the server is not running)")
	topK := fs.Int("top-k", defaultTopK, "number of results (at most 50)")
	threshold := fs.Float64("threshold", defaultThreshold, "minimum cosine similarity; results below it are dropped")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:               queryStr,
		TopK:                *topK,
		SimilarityThreshold: threshold,
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running so CLI and web
		// results always come from the same index.
		response, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct index access (when the server is not running).
	cfg, _, err := loadConfig(*configPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Retriever.Retrieve(ctx, searchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var errResp models.ErrorResponse
		if jsonErr := json.Unmarshal(b, &errResp); jsonErr == nil && errResp.Detail != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Detail)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// statusEmbedding holds embedding info returned by status.
type statusEmbedding struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// statusResponse is the shape of the GET /status response.
type statusResponse struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	Backend    string           `json:"backend"`
	Collection string           `json:"collection"`
	Documents  uint64           `json:"documents"`
	Embedding  *statusEmbedding `json:"embedding,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = inspect the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		debugMode := cfg.Debug
		logger, err := utils.NewLogger(debugMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger, debugMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		state := "healthy"
		if err := components.Index.Health(ctx); err != nil {
			state = "degraded"
		}
		var documents uint64
		if n, err := components.Index.Count(ctx); err == nil {
			documents = n
		}
		status = statusResponse{
			Status:     state,
			Version:    version,
			Backend:    cfg.Index.Backend,
			Collection: cfg.Index.Collection,
			Documents:  documents,
			Embedding: &statusEmbedding{
				Provider:   cfg.Embedding.Provider,
				Model:      cfg.Embedding.Model,
				Dimensions: components.Embedder.Dimensions(),
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("status:      %s\n", status.Status)
		fmt.Printf("version:     %s\n", status.Version)
		fmt.Printf("backend:     %s\n", status.Backend)
		fmt.Printf("collection:  %s\n", status.Collection)
		fmt.Printf("documents:   %d\n", status.Documents)
		if status.Embedding != nil {
			fmt.Println()
			fmt.Println("# embedding")
			fmt.Printf("provider:    %s\n", status.Embedding.Provider)
			fmt.Printf("model:       %s\n", status.Embedding.Model)
			fmt.Printf("dimensions:  %d\n", status.Embedding.Dimensions)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Embedder  embedding.Embedder
	Index     vector.Index
	Retriever *search.Retriever
	Ingester  *ingest.Ingester
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	index, err := vector.NewIndex(ctx, &cfg.Index, embedder.Dimensions())
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if err := index.Ensure(ctx); err != nil {
		_ = index.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to prepare vector index: %w", err)
	}
	if logger != nil {
		logger.Info("vector index ready",
			zap.String("backend", cfg.Index.Backend),
			zap.String("collection", cfg.Index.Collection),
			zap.Int("dimensions", embedder.Dimensions()))
	}

	retriever := search.NewRetriever(embedder, index, &cfg.Search)

	ingestOpts := []ingest.Option{}
	if debug && logger != nil {
		ingestOpts = append(ingestOpts, ingest.WithLogger(logger))
	}
	ingester := ingest.NewIngester(embedder, index, &cfg.Ingest, ingestOpts...)

	return &Components{
		Embedder:  embedder,
		Index:     index,
		Retriever: retriever,
		Ingester:  ingester,
	}, nil
}

func printUsage() {
	fmt.Println(`revsearch - Semantic search over a review corpus

Usage:
  revsearch server [flags]          Start the HTTP server
  revsearch ingest [flags]          Load the corpus file into the vector index
  revsearch search [flags] <query>  Search the corpus
  revsearch status [flags]          Show index and embedding status
  revsearch version                 Show version
  revsearch help                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/revsearch/config.yaml)
  --debug            Enable debug logging (per-batch ingestion, request details, etc.)
  --watch            Re-ingest the corpus file when it changes

Ingest Flags:
  --config string    Config file path
  --data string      Corpus file path (default from config: ./data/documents.jsonl)
  --debug            Enable debug logging (per-batch progress)
  --watch            Keep running and re-ingest when the corpus file changes

Search Flags:
  --config string     Config file path (for direct mode; also supplies flag defaults)
  --server string     Server URL (default: http://localhost:8080). Use empty (--server "") to query the index directly.
  --top-k int         Number of results (default from config, at most 50)
  --threshold float   Minimum cosine similarity (default from config)
  --output string     Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct mode.
  --output string    Output format: text or json (default: text)

Environment:
  OPENAI_API_KEY     OpenAI API key for the default embedding provider
  QDRANT_API_KEY     API key for the qdrant backend
  DATABASE_URL       Connection string for the pgvector backend`)
}

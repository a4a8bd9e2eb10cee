// Package main is the ragstore CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/backup"
	"github.com/hyperjump/ragstore/internal/cli"
	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/indexer"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/rag"
	"github.com/hyperjump/ragstore/internal/server"
	"github.com/hyperjump/ragstore/internal/vector"
	"github.com/hyperjump/ragstore/internal/watcher"
	"github.com/hyperjump/ragstore/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ragstore/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development) and falls back to built-in
// defaults when neither file exists. A .env file in the current directory is loaded
// before RAGSTORE_* overrides are applied.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	_ = godotenv.Load()

	resolved := path
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				resolved = fallback
			}
		}
	}

	var cfg *config.Config
	if _, err := os.Stat(resolved); errors.Is(err, os.ErrNotExist) && resolved == defaultConfigPath {
		cfg = config.Default()
		resolved = ""
	} else {
		cfg, err = config.Load(resolved)
		if err != nil {
			return nil, "", err
		}
	}

	config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
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
	case "add":
		runAdd()
	case "knowledge":
		runKnowledge()
	case "search":
		runSearch()
	case "ask":
		runAsk()
	case "list":
		runList()
	case "delete":
		runDelete()
	case "stats":
		runStats()
	case "clear":
		runClear()
	case "backup":
		runBackup()
	case "restore":
		runRestore()
	case "version", "--version", "-v":
		fmt.Printf("ragstore version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are accepted by every command that opens the store.
type commonFlags struct {
	configPath *string
	debug      *bool
	mock       *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		mock:       fs.Bool("mock", false, "use the deterministic mock embedder instead of the ONNX model"),
	}
}

// open loads config, creates the logger and wires the components. It exits on failure.
func (c commonFlags) open() (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(*c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *c.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, resolved, logger, initializeComponents(cfg, logger, *c.mock)
}

func exitOnError(logger *zap.Logger, what string, err error) {
	if err == nil {
		return
	}
	_ = logger.Sync()
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", what, err)
	if errors.Is(err, rag.ErrUnavailable) {
		fmt.Fprintln(os.Stderr, "Hint: check embedding.model_path or run with --mock")
	}
	os.Exit(1)
}

func parseOutput(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A model that cannot be loaded is reported per request (503) instead of stopping the server.
	if err := components.Service.Initialize(ctx); err != nil {
		logger.Warn("RAG service not ready", zap.Error(err))
	}

	watchSvc := watcher.NewWatcher(components.Service, cfg.Watch, watcher.WithLogger(logger))
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(components.Service, cfg, logger, watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchSvc.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: ragstore add [flags] <file-or-directory>...")
		os.Exit(1)
	}

	_, _, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()
	ctx := context.Background()

	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		exitOnError(logger, "Add", err)
		if info.IsDir() {
			results, err := components.Service.AddDirectory(ctx, path)
			exitOnError(logger, "Adding directory", err)
			fmt.Printf("Added %d document(s) from %s\n", len(results), path)
			continue
		}
		res, err := components.Service.AddDocument(ctx, path)
		exitOnError(logger, "Adding document", err)
		fmt.Printf("Document added: %s (%d chunks)\n", res.MainDocID, res.TotalChunks)
	}
}

func runKnowledge() {
	fs := flag.NewFlagSet("knowledge", flag.ExitOnError)
	common := addCommonFlags(fs)
	title := fs.String("title", "", "title metadata")
	category := fs.String("category", "", "category metadata")
	_ = fs.Parse(os.Args[2:])

	text := buildSearchQuery(fs.Args())
	if text == "-" {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reading stdin failed: %v\n", err)
			os.Exit(1)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		fmt.Println("Usage: ragstore knowledge [flags] <text> (use - to read from stdin)")
		os.Exit(1)
	}
	metadata := map[string]any{}
	if *title != "" {
		metadata[models.MetaTitle] = *title
	}
	if *category != "" {
		metadata[models.MetaCategory] = *category
	}

	_, _, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()

	res, err := components.Service.AddKnowledge(context.Background(), text, metadata)
	exitOnError(logger, "Adding knowledge", err)
	fmt.Printf("Knowledge added: %s (%d chunks stored)\n", res.MainID, len(res.ChunkIDs))
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// retrievalDefaultsFromConfig loads config at path and returns its retrieval section,
// falling back to the built-in defaults when the config cannot be loaded.
func retrievalDefaultsFromConfig(path string) config.RetrievalConfig {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return config.Default().Retrieval
	}
	return cfg.Retrieval
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "ragstore search \"query\" -top-k 3"
// would otherwise leave -top-k unparsed.
func argsReorder(args []string) []string {
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

// filterFlag collects repeated --filter key=value flags.
type filterFlag []string

func (f *filterFlag) String() string { return strings.Join(*f, ",") }

func (f *filterFlag) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("filter %q must be key=value", v)
	}
	*f = append(*f, v)
	return nil
}

// parseFilter turns key=value pairs into a metadata filter. Values that parse as
// booleans or numbers are compared as such.
func parseFilter(pairs []string) map[string]any {
	if len(pairs) == 0 {
		return nil
	}
	filter := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, _ := strings.Cut(p, "=")
		switch {
		case v == "true" || v == "false":
			filter[k] = v == "true"
		default:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				filter[k] = n
			} else {
				filter[k] = v
			}
		}
	}
	return filter
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: ragstore search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  ragstore search opening hours
  ragstore search --top-k 10 --threshold 0.2 "refund policy"
  ragstore search --filter category=billing --filter isChunk=true invoices
  ragstore search --server http://localhost:8080 --output json "refund policy"
`)
}

func runSearch() {
	args := argsReorder(os.Args[2:])
	defaults := retrievalDefaultsFromConfig(configPathFromArgs(args, defaultConfigPath))

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	common := addCommonFlags(fs)
	serverURL := fs.String("server", "", "server URL (empty = open the store directly)")
	topK := fs.Int("top-k", defaults.TopK, "maximum number of results")
	threshold := fs.Float64("threshold", defaults.Threshold, "minimum similarity")
	noMetadata := fs.Bool("no-metadata", false, "omit document metadata from results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	var filters filterFlag
	fs.Var(&filters, "filter", "metadata filter key=value (repeatable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(args)

	query := buildSearchQuery(fs.Args())
	if query == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseOutput(*outputFormat)

	if *serverURL != "" {
		req := map[string]any{"query": query, "topK": *topK, "threshold": *threshold, "includeMetadata": !*noMetadata}
		if f := parseFilter(filters); f != nil {
			req["filter"] = f
		}
		var resp struct {
			Results []models.SearchResult `json:"results"`
		}
		if err := postJSON(*serverURL+"/api/v1/rag/search", req, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, query, resp.Results, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	_, _, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()

	opts := []rag.QueryOption{rag.WithTopK(*topK), rag.WithThreshold(*threshold)}
	if f := parseFilter(filters); f != nil {
		opts = append(opts, rag.WithFilter(f))
	}
	if *noMetadata {
		opts = append(opts, rag.WithoutMetadata())
	}
	results, err := components.Service.Search(context.Background(), query, opts...)
	exitOnError(logger, "Search", err)
	if err := cli.WriteSearchResults(os.Stdout, query, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runAsk() {
	args := argsReorder(os.Args[2:])
	defaults := retrievalDefaultsFromConfig(configPathFromArgs(args, defaultConfigPath))

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	common := addCommonFlags(fs)
	serverURL := fs.String("server", "", "server URL (empty = open the store directly)")
	topK := fs.Int("top-k", defaults.AnswerTopK, "number of results used for the context")
	threshold := fs.Float64("threshold", defaults.Threshold, "minimum similarity")
	contextLength := fs.Int("context-length", defaults.ContextLength, "context budget in characters")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	question := buildSearchQuery(fs.Args())
	if question == "" {
		fmt.Println("Usage: ragstore ask [flags] <question>")
		os.Exit(1)
	}
	format := parseOutput(*outputFormat)

	var ans *models.Answer
	if *serverURL != "" {
		req := map[string]any{"question": question, "topK": *topK, "threshold": *threshold, "contextLength": *contextLength}
		ans = &models.Answer{}
		if err := postJSON(*serverURL+"/api/v1/rag/answer", req, ans); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		_, _, logger, components := common.open()
		defer logger.Sync()
		defer components.Close()
		var err error
		ans, err = components.Service.GenerateAnswer(context.Background(), question,
			rag.WithTopK(*topK), rag.WithThreshold(*threshold), rag.WithContextLength(*contextLength))
		exitOnError(logger, "Ask", err)
	}
	if err := cli.WriteAnswer(os.Stdout, ans, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	common := addCommonFlags(fs)
	chunks := fs.Bool("chunks", false, "include chunk documents")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	_, _, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()

	docs, err := components.Service.AllDocuments(context.Background())
	exitOnError(logger, "List", err)
	if err := cli.WriteDocuments(os.Stdout, docs, *chunks, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: ragstore delete [flags] <document-id>...")
		os.Exit(1)
	}

	_, _, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()

	for _, id := range fs.Args() {
		exitOnError(logger, "Deletion", components.Service.DeleteDocument(context.Background(), id))
		fmt.Printf("Document deleted: %s\n", id)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	common := addCommonFlags(fs)
	serverURL := fs.String("server", "", "server URL (empty = open the store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	var stats models.Stats
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/rag/stats", &stats); err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		_, _, logger, components := common.open()
		defer logger.Sync()
		defer components.Close()
		var err error
		stats, err = components.Service.Stats(context.Background())
		exitOnError(logger, "Stats", err)
	}
	if err := cli.WriteStats(os.Stdout, stats, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	common := addCommonFlags(fs)
	yes := fs.Bool("yes", false, "confirm removal of every document")
	_ = fs.Parse(os.Args[2:])
	if !*yes {
		fmt.Println("This removes every document and embedding. Re-run with --yes to confirm.")
		os.Exit(1)
	}

	_, _, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()

	exitOnError(logger, "Clear", components.Service.ClearAll(context.Background()))
	fmt.Println("Store cleared")
}

func runBackup() {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	common := addCommonFlags(fs)
	dir := fs.String("dir", "", "backup root directory (default: store.backup_dir)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()

	root := *dir
	if root == "" {
		root = cfg.Store.BackupDir
	}
	extra := []string{resolvedConfigPath, ".env"}
	path, err := components.Backups.Create(context.Background(), components.Service, root, extra...)
	exitOnError(logger, "Backup", err)
	fmt.Printf("Backup saved to %s\n", path)
}

func runRestore() {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: ragstore restore [flags] <backup-directory>")
		os.Exit(1)
	}

	_, _, logger, components := common.open()
	defer logger.Sync()
	defer components.Close()

	stats, err := components.Backups.Restore(context.Background(), components.Service, fs.Arg(0))
	exitOnError(logger, "Restore", err)
	fmt.Printf("Restored %d documents and %d embeddings\n", stats.TotalDocuments, stats.TotalEmbeddings)
}

func postJSON(url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(url string, out any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Provider *embedding.Provider
	Store    *vector.Store
	Service  *rag.Service
	Backups  *backup.Manager
}

// Close releases the embedding model.
func (c *Components) Close() {
	if c.Service != nil {
		_ = c.Service.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, useMock bool) *Components {
	load := embedding.ONNXLoader(cfg.Embedding.ModelPath, cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens)
	if useMock {
		logger.Info("using mock embedder", zap.Int("dimensions", cfg.Embedding.Dimensions))
		load = embedding.MockLoader(cfg.Embedding.Dimensions)
	}
	provider := embedding.NewProvider(load,
		embedding.WithLogger(logger),
		embedding.WithCacheSize(cfg.Embedding.CacheSize),
		embedding.WithMaxChars(cfg.Embedding.MaxChars),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
	)
	store := vector.NewStore(cfg.Store.Path, provider, vector.WithLogger(logger))

	// Validate has already checked size and overlap.
	chunker, err := indexer.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap, indexer.WithMinChars(cfg.Chunking.MinChars))
	if err != nil {
		logger.Fatal("Invalid chunking config", zap.Error(err))
	}
	processor := indexer.NewProcessor(nil, indexer.WithChunker(chunker), indexer.WithLogger(logger))
	svc := rag.NewService(provider, store, processor,
		rag.WithLogger(logger),
		rag.WithDefaults(cfg.Retrieval),
	)
	return &Components{
		Provider: provider,
		Store:    store,
		Service:  svc,
		Backups:  backup.NewManager(backup.WithLogger(logger)),
	}
}

func printUsage() {
	fmt.Println(`ragstore - Local retrieval-augmented generation store

Usage:
  ragstore server [flags]                 Start the HTTP server and directory watcher
  ragstore add [flags] <path>...          Add files or directories
  ragstore knowledge [flags] <text>       Add free text (use - for stdin)
  ragstore search [flags] <query>         Similarity search
  ragstore ask [flags] <question>         Build answer context for a question
  ragstore list [flags]                   List stored documents
  ragstore delete [flags] <id>...         Delete documents by id
  ragstore stats [flags]                  Show store statistics
  ragstore clear --yes                    Remove every document
  ragstore backup [flags]                 Write a timestamped backup
  ragstore restore [flags] <dir>          Replace the store with a backup
  ragstore version                        Show version
  ragstore help                           Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/ragstore/config.yaml, or ./config.yaml)
  --debug            Enable debug logging
  --mock             Use the deterministic mock embedder (no ONNX model needed)

Search Flags:
  --top-k int          Maximum number of results (default from config, or 5)
  --threshold float    Minimum similarity (default from config, or 0.3)
  --filter key=value   Keep only results whose metadata matches (repeatable)
  --no-metadata        Omit document metadata
  --output string      Output format: text or json (default: text)
  --server string      Query a running server instead of opening the store

Ask Flags:
  --top-k int            Results used for the context (default from config, or 3)
  --threshold float      Minimum similarity (default from config, or 0.3)
  --context-length int   Context budget in characters (default from config, or 2000)
  --output string        Output format: text or json
  --server string        Query a running server instead of opening the store

Knowledge Flags:
  --title string       Title metadata
  --category string    Category metadata

List Flags:
  --chunks           Include chunk documents
  --output string    Output format: text or json

Backup Flags:
  --dir string       Backup root directory (default: store.backup_dir)

Environment:
  RAGSTORE_STORE_PATH, RAGSTORE_MODEL_PATH, RAGSTORE_DEBUG (also read from ./.env)

Examples:
  ragstore server
  ragstore add ./docs
  ragstore knowledge --category ops "The warehouse opens at 7am"
  ragstore search "opening hours"
  ragstore ask --output json "When does the warehouse open?"
  ragstore backup
  ragstore restore /usr/local/var/ragstore/data/backups/rag_backup_2024-05-01T10-20-30-123Z`)
}

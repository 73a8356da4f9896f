// Package main is the Tsunagu CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/catalog"
	"github.com/hyperjump/tsunagu/internal/chunker"
	"github.com/hyperjump/tsunagu/internal/cli"
	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/ingest"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/search"
	"github.com/hyperjump/tsunagu/internal/server"
	"github.com/hyperjump/tsunagu/internal/summarize"
	"github.com/hyperjump/tsunagu/internal/vectordb"
	"github.com/hyperjump/tsunagu/internal/watcher"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tsunagu/config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "server":
		err = runServer(os.Args[2:])
	case "ingest":
		err = runIngest(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "related":
		err = runRelated(os.Args[2:])
	case "contradictions":
		err = runContradictions(os.Args[2:])
	case "papers":
		err = runPapers(os.Args[2:])
	case "remove":
		err = runRemove(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "reset":
		err = runReset(os.Args[2:])
	case "version":
		fmt.Printf("tsunagu %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config path: an explicit -config flag wins, then
// ./config.yaml, then the system default.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		} else {
			path = defaultConfigPath
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Components bundles the wired pipeline for commands that run in-process.
type Components struct {
	cfg        *config.Config
	log        *zap.Logger
	embedder   embedding.Embedder
	index      vectordb.Index
	catalog    *catalog.Catalog
	orch       *ingest.Orchestrator
	engine     *search.Engine
	summarizer summarize.Summarizer
}

// Close releases component resources in reverse dependency order.
func (c *Components) Close() {
	if c.index != nil {
		_ = c.index.Close()
	}
	if c.catalog != nil {
		_ = c.catalog.Close()
	}
	if c.embedder != nil {
		_ = c.embedder.Close()
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}

func initializeComponents(cfg *config.Config) (*Components, error) {
	log, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	c := &Components{cfg: cfg, log: log}

	emb, err := embedding.NewONNXEmbedder(cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens, cfg.Embedding.CacheSize)
	if err != nil {
		log.Warn("onnx embedder unavailable, using mock embeddings",
			zap.String("model_path", cfg.Embedding.ModelPath), zap.Error(err))
		c.embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		c.embedder = emb
	}

	switch cfg.Index.Mode {
	case "memory":
		c.index = vectordb.NewMemoryIndex()
	case "http", "":
		c.index = vectordb.NewHTTPIndex(vectordb.HTTPConfig{
			BaseURL:    cfg.Index.BaseURL,
			Collection: cfg.Index.Collection,
			Timeout:    cfg.Index.Timeout,
			Retry: vectordb.RetryPolicy{
				MaxAttempts: cfg.Index.MaxAttempts,
				BaseDelay:   200 * time.Millisecond,
				MaxDelay:    5 * time.Second,
			},
		})
	default:
		c.Close()
		return nil, fmt.Errorf("unknown index mode %q (want http or memory)", cfg.Index.Mode)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Catalog.DatabasePath), 0o755); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	cat, err := catalog.Open(cfg.Catalog.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	c.catalog = cat

	ch := chunker.New(cfg.Chunking.TargetSize, cfg.Chunking.Overlap)
	c.orch = ingest.NewOrchestrator(ch, c.embedder, c.index,
		ingest.WithCatalog(cat),
		ingest.WithLogger(log),
		ingest.WithEmbedBatchSize(cfg.Embedding.BatchSize),
		ingest.WithWorkers(cfg.Ingest.Workers),
	)
	c.engine = search.NewEngine(c.embedder, c.index, &cfg.Search, search.WithLogger(log))
	c.summarizer = summarize.FromConfig(&cfg.Summarize, log)

	if err := c.orch.EnsureCollection(context.Background(), cfg.Index.Metric); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	return c, nil
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	c.log.Info("starting tsunagu", zap.String("version", version), zap.String("config", path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(cfg.Watch.Directories, cfg.Ingest.Extensions, cfg.Watch.RecursiveOrDefault(),
			func(p string) {
				if _, err := c.orch.IngestFile(ctx, p, models.PaperMeta{}); err != nil {
					c.log.Warn("watch ingest failed", zap.String("path", p), zap.Error(err))
				}
			},
			func(p string) {
				paper, err := c.catalog.GetBySourcePath(ctx, p)
				if err != nil {
					return
				}
				if err := c.orch.RemovePaper(ctx, paper.ID); err != nil {
					c.log.Warn("watch remove failed", zap.String("path", p), zap.Error(err))
				}
			},
			watcher.WithLogger(c.log),
		)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
		w.SyncExisting()
	}

	srv := server.NewServer(c.engine, c.orch, c.catalog, c.index, &cfg.Server,
		server.WithLogger(c.log), server.WithSummarizer(c.summarizer))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		c.log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	manifestPath := fs.String("manifest", "", "xlsx manifest with per-file metadata")
	replace := fs.String("replace", "", "paper id to remove before ingesting")
	format := fs.String("format", "text", "output format (text or json)")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: tsunagu ingest [flags] <file-or-directory>...")
	}
	out, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	metaFor := func(string) models.PaperMeta { return models.PaperMeta{} }
	if *manifestPath != "" {
		m, err := ingest.LoadManifest(*manifestPath)
		if err != nil {
			return fmt.Errorf("failed to load manifest: %w", err)
		}
		metaFor = m.MetaFunc()
	}

	ctx := context.Background()
	if *replace != "" {
		if err := c.orch.RemovePaper(ctx, *replace); err != nil {
			return fmt.Errorf("failed to remove %s: %w", *replace, err)
		}
	}

	total := &models.BatchSummary{Failures: map[string]string{}}
	for _, target := range fs.Args() {
		info, err := os.Stat(target)
		if err != nil {
			return err
		}
		if info.IsDir() {
			summary, err := c.orch.IngestDirectory(ctx, target, metaFor)
			if err != nil {
				return err
			}
			mergeSummary(total, summary)
			continue
		}
		if _, err := c.orch.IngestFile(ctx, target, metaFor(target)); err != nil {
			total.Failed++
			total.Failures[target] = err.Error()
		} else {
			total.Processed++
		}
	}
	return cli.WriteBatchSummary(os.Stdout, total, out)
}

func mergeSummary(dst, src *models.BatchSummary) {
	dst.Processed += src.Processed
	dst.Failed += src.Failed
	for path, msg := range src.Failures {
		dst.Failures[path] = msg
	}
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	serverURL := fs.String("server", "", "query a running server instead of opening the index directly")
	topK := fs.Int("top-k", 0, "maximum results")
	threshold := fs.Float64("threshold", 0, "minimum similarity score")
	year := fs.Int("year", 0, "restrict to papers from this year")
	byPaper := fs.Bool("by-paper", false, "group matches by paper")
	withSummary := fs.Bool("summarize", false, "add a summary of the matches")
	format := fs.String("format", "text", "output format (text or json)")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if query == "" {
		return fmt.Errorf("usage: tsunagu search [flags] <query>")
	}
	out, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	req := &models.SearchRequest{Query: query, TopK: *topK, MinSimilarity: *threshold}
	if *year != 0 {
		req.Filter = map[string]interface{}{"year": *year}
	}

	var matches []models.SearchMatch
	var summarizer summarize.Summarizer
	if *serverURL != "" {
		matches, err = searchViaServer(*serverURL, req)
		if err != nil {
			return err
		}
		if *withSummary {
			summarizer = summarize.NewFrequency(3)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		c, err := initializeComponents(cfg)
		if err != nil {
			return err
		}
		defer c.Close()
		matches, err = c.engine.Search(context.Background(), req)
		if err != nil {
			return err
		}
		if *withSummary {
			summarizer = c.summarizer
		}
	}

	if summarizer != nil {
		if summary, err := summarizer.Summarize(context.Background(), query, matches); err == nil {
			if err := cli.WriteSummary(os.Stdout, summary, out); err != nil {
				return err
			}
		}
	}
	if *byPaper {
		return cli.WritePaperGroups(os.Stdout, search.AggregateByPaper(matches), out)
	}
	return cli.WriteMatches(os.Stdout, matches, out)
}

// searchViaServer posts the query to a running server's search endpoint.
func searchViaServer(base string, req *models.SearchRequest) ([]models.SearchMatch, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(base, "/")+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	var result struct {
		Matches []models.SearchMatch `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Matches, nil
}

func runRelated(args []string) error {
	fs := flag.NewFlagSet("related", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	topK := fs.Int("top-k", 0, "maximum results")
	format := fs.String("format", "text", "output format (text or json)")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: tsunagu related [flags] <paper-id>")
	}
	out, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	paperID := fs.Arg(0)
	related, err := c.engine.FindRelated(context.Background(), paperID, *topK)
	if err != nil {
		return err
	}
	return cli.WriteRelated(os.Stdout, paperID, related, out)
}

func runContradictions(args []string) error {
	fs := flag.NewFlagSet("contradictions", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	topK := fs.Int("top-k", 0, "maximum results")
	format := fs.String("format", "text", "output format (text or json)")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	claim := strings.Join(fs.Args(), " ")
	if claim == "" {
		return fmt.Errorf("usage: tsunagu contradictions [flags] <claim>")
	}
	out, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	candidates, err := c.engine.FindContradictions(context.Background(), claim, *topK)
	if err != nil {
		return err
	}
	return cli.WriteContradictions(os.Stdout, claim, candidates, out)
}

func runPapers(args []string) error {
	fs := flag.NewFlagSet("papers", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	limit := fs.Int("limit", 50, "maximum papers to list")
	offset := fs.Int("offset", 0, "papers to skip")
	format := fs.String("format", "text", "output format (text or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	papers, err := c.catalog.List(context.Background(), *offset, *limit)
	if err != nil {
		return err
	}
	return cli.WritePapers(os.Stdout, papers, out)
}

func runRemove(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: tsunagu remove [flags] <paper-id>")
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	paperID := fs.Arg(0)
	if err := c.orch.RemovePaper(context.Background(), paperID); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", paperID)
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	serverURL := fs.String("server", "", "query a running server instead of opening the catalog directly")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *serverURL != "" {
		resp, err := http.Get(strings.TrimRight(*serverURL, "/") + "/api/v1/status")
		if err != nil {
			return fmt.Errorf("server unreachable: %w", err)
		}
		defer resp.Body.Close()
		var status map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	papers, chunks, err := c.catalog.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("config:   %s\n", path)
	fmt.Printf("catalog:  %s\n", cfg.Catalog.DatabasePath)
	fmt.Printf("index:    %s (%s)\n", cfg.Index.Mode, cfg.Index.Collection)
	fmt.Printf("papers:   %d\n", papers)
	fmt.Printf("chunks:   %d\n", chunks)
	if n, err := c.index.Count(ctx); err == nil {
		fmt.Printf("records:  %d\n", n)
	}
	return nil
}

func runReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	yes := fs.Bool("yes", false, "skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("reset deletes the collection and catalog; re-run with -yes to confirm")
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.orch.Reset(context.Background()); err != nil {
		return err
	}
	fmt.Println("index and catalog cleared")
	return nil
}

// reorderArgs moves flag arguments ahead of positional ones so
// "tsunagu search dropout -top-k 5" parses the same as
// "tsunagu search -top-k 5 dropout".
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)
			if !strings.Contains(arg, "=") && i+1 < len(args) && !isBoolFlag(arg) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

func isBoolFlag(arg string) bool {
	name := strings.TrimLeft(arg, "-")
	return name == "yes" || name == "by-paper" || name == "summarize"
}

func printUsage() {
	fmt.Print(`tsunagu connects research papers by meaning.

Usage:
  tsunagu <command> [flags] [args]

Commands:
  server          Run the HTTP API server (watches paper directories if configured)
  ingest          Ingest files or directories into the index
  search          Semantic search over indexed paper chunks
  related         Find papers related to an indexed paper
  contradictions  Find chunks that may contradict a claim
  papers          List papers in the catalog
  remove          Remove a paper from the index and catalog
  status          Show catalog and index statistics
  reset           Delete the collection and clear the catalog
  version         Print the version
  help            Show this help

Common flags:
  -config PATH    Config file (default ./config.yaml, then ` + defaultConfigPath + `)
  -format FORMAT  Output format: text or json
  -server URL     search/status only: talk to a running server over HTTP

Examples:
  tsunagu ingest -manifest papers.xlsx ~/papers
  tsunagu search -top-k 5 "dropout regularization"
  tsunagu contradictions "dropout reduces test error"
  tsunagu related dropout-works-1a2b3c4d
`)
}

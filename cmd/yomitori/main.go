// Package main is the yomitori CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/hyperjump/yomitori/internal/cli"
	"github.com/hyperjump/yomitori/internal/config"
	"github.com/hyperjump/yomitori/internal/export"
	"github.com/hyperjump/yomitori/internal/intake"
	"github.com/hyperjump/yomitori/internal/models"
	"github.com/hyperjump/yomitori/internal/ocr"
	"github.com/hyperjump/yomitori/internal/server"
	"github.com/hyperjump/yomitori/internal/storage"
	"github.com/hyperjump/yomitori/internal/watcher"
	"github.com/hyperjump/yomitori/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/yomitori/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When neither exists, the
// built-in defaults are used. Returns the config and the path that was loaded
// ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
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
	case "extract":
		runExtract()
	case "activity":
		runActivity()
	case "extractions":
		runExtractions()
	case "export":
		runExport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("yomitori version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func mustLogger(debug bool) *zap.Logger {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func mustConfig(path string) (*config.Config, string) {
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (pipeline stages, watcher events, OCR commands)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath := mustConfig(*configPath)
	debugMode := cfg.Debug || *debug
	logger := mustLogger(debugMode)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.Watch.Directories) > 0 {
		inbox := watcher.NewInbox(watcher.InboxConfig{
			Directories: cfg.Watch.Directories,
			OutputDir:   cfg.Watch.OutputDir,
			Extensions:  cfg.Watch.Extensions,
			Recursive:   cfg.Watch.RecursiveOrDefault(),
			OCREnabled:  true,
		}, components.Extractor, logger)
		go func() {
			if err := inbox.Start(ctx); err != nil {
				logger.Error("Failed to start inbox watcher", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(components.Extractor, components.Storage, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	// Cancelling ctx also stops the inbox watcher.
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument, so "yomitori extract scan.pdf --output json" would
// otherwise leave --output unparsed.
func reorderArgs(args []string) []string {
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

func parseOutput(value string) cli.OutputFormat {
	switch value {
	case "text", "json":
		return cli.ParseOutputFormat(value)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", value)
		os.Exit(1)
		return cli.OutputText
	}
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	noOCR := fs.Bool("no-ocr", false, "never run the OCR fallback")
	outputFormat := fs.String("output", "text", "output format: text or json")
	showTrace := fs.Bool("trace", false, "print the pipeline stages to stderr")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: yomitori extract [flags] <file>...")
		os.Exit(1)
	}
	format := parseOutput(*outputFormat)

	cfg, _ := mustConfig(*configPath)
	logger := mustLogger(cfg.Debug)
	defer logger.Sync()

	pipeline := newPipeline(cfg, logger)
	failed := false
	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		req := models.NewExtractionRequest(filepath.Base(path), content)
		req.OCREnabled = !*noOCR
		res, trace, err := pipeline.Run(context.Background(), req)
		if *showTrace {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, trace)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		if fs.NArg() > 1 && format == cli.OutputText {
			fmt.Printf("== %s\n", path)
		}
		if err := cli.WriteResult(os.Stdout, res, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func runActivity() {
	fs := flag.NewFlagSet("activity", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	limit := fs.Int("limit", storage.DefaultActivityLimit, "number of entries")
	all := fs.Bool("all", false, "include root page and static asset requests")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	var logs []*models.ActivityLog
	if *serverURL != "" {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(*limit))
		q.Set("only_api", strconv.FormatBool(!*all))
		if err := getJSON(*serverURL+"/activity-logs?"+q.Encode(), &logs); err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		store := mustStorage(*configPath)
		defer store.Close()
		var err error
		logs, err = store.ListActivityLogs(context.Background(), storage.ActivityFilter{Limit: *limit, OnlyAPI: !*all})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteActivity(os.Stdout, logs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runExtractions() {
	fs := flag.NewFlagSet("extractions", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	limit := fs.Int("limit", 50, "number of records")
	offset := fs.Int("offset", 0, "records to skip")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	var recs []*models.ExtractionRecord
	if *serverURL != "" {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(*limit))
		q.Set("offset", strconv.Itoa(*offset))
		var out struct {
			Extractions []*models.ExtractionRecord `json:"extractions"`
		}
		if err := getJSON(*serverURL+"/api/v1/extractions?"+q.Encode(), &out); err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		recs = out.Extractions
	} else {
		store := mustStorage(*configPath)
		defer store.Close()
		var err error
		recs, err = store.ListExtractions(context.Background(), *offset, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteExtractions(os.Stdout, recs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	out := fs.String("o", "", "output file (default: yomitori-<timestamp>.xlsx)")
	limit := fs.Int("limit", export.DefaultLimit, "rows per sheet")
	_ = fs.Parse(os.Args[2:])

	cfg, _ := mustConfig(*configPath)
	logger := mustLogger(cfg.Debug)
	defer logger.Sync()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	path := *out
	if path == "" {
		path = fmt.Sprintf("yomitori-%s.xlsx", time.Now().Format("20060102-150405"))
	}
	if err := export.NewService(store, logger).WriteFile(context.Background(), path, *limit); err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported to %s\n", path)
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	OCR            ocr.Capability `json:"ocr"`
	Extractions    int64          `json:"extractions"`
	ActivityLogs   int64          `json:"activity_logs"`
	DiskUsageBytes *int64         `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL+"/api/v1/status", &status); err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _ := mustConfig(*configPath)
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		status, err = directStatus(context.Background(), cfg, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}
	writeStatus(os.Stdout, &status, format)
}

func directStatus(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage) (statusResponse, error) {
	var status statusResponse
	status.OCR = probeOCR(cfg)
	var err error
	if status.Extractions, err = store.CountExtractions(ctx); err != nil {
		return status, err
	}
	if status.ActivityLogs, err = store.CountActivityLogs(ctx); err != nil {
		return status, err
	}
	if size, err := store.SizeBytes(); err == nil {
		status.DiskUsageBytes = &size
	}
	return status, nil
}

func writeStatus(w io.Writer, status *statusResponse, format cli.OutputFormat) {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	if status.OCR.Available {
		fmt.Fprintf(w, "OCR:           available (%s, %s, lang=%s)\n", status.OCR.Pdftoppm, orBuiltin(status.OCR.Tesseract), status.OCR.Language)
	} else {
		fmt.Fprintf(w, "OCR:           unavailable (%s)\n", status.OCR.Reason)
	}
	fmt.Fprintf(w, "Extractions:   %d\n", status.Extractions)
	fmt.Fprintf(w, "Activity logs: %d\n", status.ActivityLogs)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage:    %s\n", formatBytes(*status.DiskUsageBytes))
	}
}

func orBuiltin(s string) string {
	if s == "" {
		return "built-in recognizer"
	}
	return s
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func getJSON(u string, out any) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mustStorage(configPath string) *storage.SQLiteStorage {
	cfg, _ := mustConfig(configPath)
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	return store
}

// probeOCR resolves the OCR capability from config and the tools on PATH.
func probeOCR(cfg *config.Config) ocr.Capability {
	if !cfg.OCR.EnabledOrDefault() {
		return ocr.Disabled("disabled in config")
	}
	return ocr.Probe(cfg.OCR.EngineConfig())
}

// newPipeline builds the intake pipeline. The OCR engine is only constructed when
// the probe finds the tools it needs.
func newPipeline(cfg *config.Config, logger *zap.Logger) *intake.Pipeline {
	capability := probeOCR(cfg)
	opts := intake.Options{
		Capability:   capability,
		MinTextChars: cfg.Extraction.MinTextChars,
		Timeout:      cfg.Extraction.Timeout,
		Logger:       logger,
	}
	if capability.Available {
		opts.Engine = ocr.NewEngine(cfg.OCR.EngineConfig(), nil, ocr.WithLogger(logger))
		logger.Info("ocr available",
			zap.String("pdftoppm", capability.Pdftoppm),
			zap.String("tesseract", capability.Tesseract),
			zap.String("language", capability.Language),
		)
	} else {
		logger.Warn("ocr unavailable; scanned PDFs will return no fields", zap.String("reason", capability.Reason))
	}
	return intake.New(opts)
}

// Components holds initialized services.
type Components struct {
	Storage   *storage.SQLiteStorage
	Pipeline  *intake.Pipeline
	Extractor *intake.Audited
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	pipeline := newPipeline(cfg, logger)
	return &Components{
		Storage:   store,
		Pipeline:  pipeline,
		Extractor: intake.NewAudited(pipeline, store, logger),
	}, nil
}

func printUsage() {
	fmt.Println(`yomitori - Patient document intake and field extraction

Usage:
  yomitori server [flags]            Start the HTTP server (and the inbox watcher when configured)
  yomitori extract [flags] <file>... Extract patient fields from local documents
  yomitori activity [flags]          Show the request activity log
  yomitori extractions [flags]       Show the extraction audit trail
  yomitori export [flags]            Write the audit trail and activity log to XLSX
  yomitori status [flags]            Show OCR capability and storage status
  yomitori version                   Show version
  yomitori help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/yomitori/config.yaml)
  --debug            Enable debug logging

Extract Flags:
  --config string    Config file path
  --no-ocr           Never run the OCR fallback
  --output string    Output format: text or json (default: text)
  --trace            Print the pipeline stages to stderr

Activity / Extractions / Status Flags:
  --server string    Server URL (default: http://localhost:8000). Use empty (--server "") for direct storage.
  --config string    Config file path (for direct storage mode)
  --limit int        Number of entries
  --output string    Output format: text or json (default: text)

Export Flags:
  --config string    Config file path
  -o string          Output file
  --limit int        Rows per sheet (default: 1000)

Examples:
  yomitori server
  yomitori extract referral.pdf
  yomitori extract --output json --no-ocr intake.docx
  yomitori activity --limit 20
  yomitori extractions --server ""
  yomitori export -o audit.xlsx
  yomitori status --output json`)
}

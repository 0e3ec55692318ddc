package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yomitori/internal/fileid"
	"github.com/hyperjump/yomitori/internal/intake"
	"github.com/hyperjump/yomitori/internal/models"
)

// resultSuffix is appended to the source file name, so scan.pdf yields scan.pdf.json.
const resultSuffix = ".json"

// Extractor runs one document through the intake pipeline.
type Extractor interface {
	Extract(ctx context.Context, req models.ExtractionRequest) (*models.ExtractionResult, error)
}

// Outcome is the JSON document written for each processed inbox file.
type Outcome struct {
	Source      string                   `json:"source"`
	Status      string                   `json:"status"`
	Result      *models.ExtractionResult `json:"result,omitempty"`
	Error       string                   `json:"error,omitempty"`
	ProcessedAt time.Time                `json:"processed_at"`
}

// InboxConfig configures an Inbox.
type InboxConfig struct {
	Directories []string
	OutputDir   string
	Extensions  []string
	Recursive   bool
	OCREnabled  bool
	Debounce    time.Duration
}

// Inbox extracts every document dropped into its directories and writes an
// Outcome to OutputDir, mirroring the source's path below its root. Removing the
// source removes its outcome.
type Inbox struct {
	cfg       InboxConfig
	extractor Extractor
	logger    *zap.Logger
	watcher   *Watcher
}

// NewInbox returns an Inbox. Call Start to begin watching.
func NewInbox(cfg InboxConfig, extractor Extractor, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{cfg: cfg, extractor: extractor, logger: logger}
}

// Start watches the inbox directories and processes files already present whose
// outcome is missing or older than the source. It returns once the initial pass
// is done; watching continues until ctx is cancelled or Stop is called.
func (b *Inbox) Start(ctx context.Context) error {
	if b.cfg.OutputDir == "" {
		return fmt.Errorf("inbox output directory is not set")
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	b.watcher = NewWatcher(b.cfg.Directories, b.cfg.Extensions, b.cfg.Recursive,
		func(path string) { b.Process(ctx, path) },
		b.Remove,
		WithLogger(b.logger),
		WithDebounce(b.cfg.Debounce),
		WithExclude(b.cfg.OutputDir),
	)
	if err := b.watcher.Start(ctx); err != nil {
		return err
	}
	b.logger.Info("inbox watching",
		zap.Strings("directories", b.watcher.Directories()),
		zap.String("output_dir", b.cfg.OutputDir),
	)

	for _, root := range b.watcher.Directories() {
		b.watcher.scanDirectory(filepath.Clean(root), func(path string) {
			if b.stale(path) {
				b.Process(ctx, path)
			}
		})
	}
	return nil
}

// Stop stops watching.
func (b *Inbox) Stop() {
	if b.watcher != nil {
		b.watcher.Stop()
	}
}

// ResultPath returns where the outcome for source is written.
func (b *Inbox) ResultPath(source string) string {
	clean := filepath.Clean(source)
	rel := filepath.Base(clean)
	for _, root := range b.cfg.Directories {
		root = filepath.Clean(root)
		if inDir(root, clean) {
			if r, err := filepath.Rel(root, clean); err == nil {
				rel = r
			}
			break
		}
	}
	return filepath.Join(b.cfg.OutputDir, rel+resultSuffix)
}

func (b *Inbox) stale(source string) bool {
	src, err := os.Stat(source)
	if err != nil {
		return false
	}
	out, err := os.Stat(b.ResultPath(source))
	if err != nil {
		return true
	}
	return out.ModTime().Before(src.ModTime())
}

// Process extracts source and writes its outcome. Extraction errors are recorded
// in the outcome, not returned.
func (b *Inbox) Process(ctx context.Context, source string) {
	sourceID := fileid.SourceID(source)
	content, err := os.ReadFile(source)
	if err != nil {
		// Usually removed before the debounce fired.
		b.logger.Debug("inbox file unreadable", zap.String("source_id", sourceID), zap.Error(err))
		return
	}

	req := models.NewExtractionRequest(filepath.Base(source), content)
	req.OCREnabled = b.cfg.OCREnabled
	res, err := b.extractor.Extract(ctx, req)

	out := Outcome{
		Source:      filepath.Base(source),
		Status:      intake.StatusFor(err),
		Result:      res,
		ProcessedAt: time.Now().UTC(),
	}
	if err != nil {
		out.Error = err.Error()
	}
	if werr := writeJSONAtomic(b.ResultPath(source), out); werr != nil {
		b.logger.Warn("inbox failed to write result", zap.String("source_id", sourceID), zap.Error(werr))
		return
	}
	b.logger.Info("inbox processed",
		zap.String("source_id", sourceID),
		zap.String("status", out.Status),
	)
}

// Remove deletes the outcome for source.
func (b *Inbox) Remove(source string) {
	err := os.Remove(b.ResultPath(source))
	if err != nil && !os.IsNotExist(err) {
		b.logger.Warn("inbox failed to remove result", zap.String("source_id", fileid.SourceID(source)), zap.Error(err))
		return
	}
	if err == nil {
		b.logger.Info("inbox result removed", zap.String("source_id", fileid.SourceID(source)))
	}
}

// writeJSONAtomic writes v next to path and renames it into place so readers
// never see a partial file.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+resultSuffix)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

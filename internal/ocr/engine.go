// Package ocr recognizes text on PDF pages that carry no usable text layer.
//
// Pages are rendered one at a time with pdftoppm and recognized with tesseract.
// Every job runs inside its own temporary directory which is removed when the job
// ends, and each page image is deleted as soon as it has been read.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// PageResult is the outcome for one page. Err is set when the page failed.
type PageResult struct {
	Page int
	Text string
	Err  error
}

// Engine recognizes the first pageCount pages of a PDF.
type Engine interface {
	RecognizePDF(ctx context.Context, content []byte, pageCount int) ([]PageResult, error)
}

// PageEngine is the page-by-page Engine.
type PageEngine struct {
	raster   Rasterizer
	recog    Recognizer
	pool     *Pool
	maxPages int
	tempDir  string
	logger   *zap.Logger
}

// Option configures a PageEngine.
type Option func(*PageEngine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *PageEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRasterizer replaces the pdftoppm rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(e *PageEngine) { e.raster = r }
}

// WithRecognizer replaces the default recognizer.
func WithRecognizer(r Recognizer) Option {
	return func(e *PageEngine) { e.recog = r }
}

// WithPool shares a worker pool between engines.
func WithPool(p *Pool) Option {
	return func(e *PageEngine) { e.pool = p }
}

// WithTempDir sets the parent directory of per-job scratch directories.
func WithTempDir(dir string) Option {
	return func(e *PageEngine) { e.tempDir = dir }
}

// NewEngine returns a PageEngine that runs external commands through runner.
// A nil runner uses os/exec.
func NewEngine(cfg Config, runner Runner, opts ...Option) *PageEngine {
	cfg = cfg.withDefaults()
	e := &PageEngine{
		maxPages: cfg.MaxPages,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if runner == nil {
		runner = NewExecRunner(e.logger)
	}
	if e.raster == nil {
		e.raster = NewPopplerRasterizer(runner, cfg.Pdftoppm, cfg.DPI)
	}
	if e.recog == nil {
		e.recog = newRecognizer(runner, cfg)
	}
	if e.pool == nil {
		e.pool = NewPool(cfg.Workers)
	}
	return e
}

// RecognizePDF rasterizes and recognizes pages 1..pageCount in order. A failing page
// is reported in its PageResult and the next page is attempted. When ctx ends, the
// pages not yet processed carry ctx's error and the partial list is returned.
// The returned error covers only whole-job failures.
func (e *PageEngine) RecognizePDF(ctx context.Context, content []byte, pageCount int) ([]PageResult, error) {
	n := pageCount
	if e.maxPages > 0 && n > e.maxPages {
		n = e.maxPages
	}
	if n <= 0 {
		return nil, nil
	}

	if err := e.pool.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("wait for ocr worker: %w", err)
	}
	defer e.pool.Release()

	dir, err := os.MkdirTemp(e.tempDir, "yomitori-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("ocr temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("remove ocr temp dir", zap.String("dir", dir), zap.Error(err))
		}
	}()

	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, content, 0600); err != nil {
		return nil, fmt.Errorf("ocr write input: %w", err)
	}

	start := time.Now()
	results := make([]PageResult, 0, n)
	for page := 1; page <= n; page++ {
		if err := ctx.Err(); err != nil {
			for ; page <= n; page++ {
				results = append(results, PageResult{Page: page, Err: err})
			}
			break
		}
		res := e.recognizePage(ctx, dir, pdfPath, page)
		if res.Err != nil {
			e.logger.Warn("ocr page failed", zap.Int("page", page), zap.Error(res.Err))
		}
		results = append(results, res)
	}

	e.logger.Debug("ocr job done",
		zap.Int("pages", n),
		zap.Int("failed", FailedPages(results)),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

func (e *PageEngine) recognizePage(ctx context.Context, dir, pdfPath string, page int) PageResult {
	prefix := filepath.Join(dir, fmt.Sprintf("page-%d", page))
	img, err := e.raster.Rasterize(ctx, pdfPath, page, prefix)
	if err != nil {
		return PageResult{Page: page, Err: pageErr(ctx, page, "rasterize", err)}
	}
	defer os.Remove(img)

	text, err := e.recog.Recognize(ctx, img)
	if err != nil {
		return PageResult{Page: page, Err: pageErr(ctx, page, "recognize", err)}
	}
	return PageResult{Page: page, Text: text}
}

// pageErr reports ctx's error when the page was cut short by cancellation.
func pageErr(ctx context.Context, page int, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: page %d: %s: %v", ErrPageFailed, page, step, err)
}

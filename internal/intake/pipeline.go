// Package intake runs one uploaded document through format detection, text
// extraction, optional OCR fallback, field extraction and date normalization.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/yomitori/internal/dates"
	"github.com/hyperjump/yomitori/internal/extract"
	"github.com/hyperjump/yomitori/internal/fields"
	"github.com/hyperjump/yomitori/internal/models"
	"github.com/hyperjump/yomitori/internal/ocr"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single extraction when Options.Timeout is zero.
const DefaultTimeout = 2 * time.Minute

// Options configures a Pipeline.
type Options struct {
	// Engine runs the OCR fallback. It is only called when Capability is available.
	Engine     ocr.Engine
	Capability ocr.Capability
	// MinTextChars is the direct PDF text threshold; see extract.DefaultMinTextChars.
	MinTextChars int
	Timeout      time.Duration
	Fields       *fields.Extractor
	Logger       *zap.Logger
}

// Pipeline extracts patient fields from documents. It holds no per-request state
// and is safe for concurrent use.
type Pipeline struct {
	extractor  *extract.Extractor
	readText   func(models.Format, []byte) (models.ExtractedText, error)
	fields     *fields.Extractor
	engine     ocr.Engine
	capability ocr.Capability
	timeout    time.Duration
	logger     *zap.Logger
}

// New returns a Pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		extractor:  extract.NewExtractor(opts.MinTextChars),
		fields:     opts.Fields,
		engine:     opts.Engine,
		capability: opts.Capability,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
	p.readText = p.extractor.Extract
	if p.fields == nil {
		p.fields = fields.NewExtractor()
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.engine == nil && p.capability.Available {
		p.capability = ocr.Disabled("no ocr engine configured")
	}
	return p
}

// Capability returns the OCR capability the pipeline was built with.
func (p *Pipeline) Capability() ocr.Capability {
	return p.capability
}

// Extract runs the pipeline on req. The only errors are extract.ErrUnsupportedFormat,
// extract.ErrUnreadableFile and ErrTimeout (or ctx's error when the caller cancelled
// before any text was read); OCR problems only show in the result. The timeout
// covers reading the document as well as OCR.
func (p *Pipeline) Extract(ctx context.Context, req models.ExtractionRequest) (*models.ExtractionResult, error) {
	res, _, err := p.Run(ctx, req)
	return res, err
}

// Run is Extract that also returns the stages the request went through.
func (p *Pipeline) Run(ctx context.Context, req models.ExtractionRequest) (*models.ExtractionResult, Trace, error) {
	start := time.Now()
	var trace Trace
	trace.add(StageReceived, "")

	format, err := extract.DetectFormat(req.Filename, req.ContentType)
	if err != nil {
		trace.add(StageRejected, "unsupported_format")
		p.logger.Info("extraction rejected", zap.String("reason", "unsupported_format"), zap.Error(err))
		return nil, trace, err
	}
	trace.add(StageFormatDetected, string(format))

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.read(ctx, format, req.Content)
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil && errors.Is(err, ctxErr) {
		trace.add(StageRejected, "timeout")
		p.logger.Warn("reading the document did not finish before the deadline", zap.String("format", string(format)))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, trace, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
		}
		return nil, trace, err
	}
	if err != nil {
		trace.add(StageRejected, "unreadable_file")
		p.logger.Info("extraction rejected",
			zap.String("reason", "unreadable_file"),
			zap.String("format", string(format)),
			zap.Error(err),
		)
		return nil, trace, err
	}
	trace.add(StageTextExtracted, string(text.Source))
	p.logger.Debug("text extracted",
		zap.String("format", string(format)),
		zap.String("source", string(text.Source)),
		zap.Bool("sufficient", text.Sufficient),
		zap.Int("pages", text.Pages),
	)

	result := &models.ExtractionResult{Format: format, TextSource: text.Source}

	if format == models.FormatPDF && req.OCREnabled && !text.Sufficient {
		text = p.fallback(ctx, req, text, result, &trace)
	}

	if strings.TrimSpace(text.Text) == "" {
		if err := ctx.Err(); err != nil {
			trace.add(StageRejected, "timeout")
			p.logger.Warn("extraction produced no text before the deadline", zap.Error(err))
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, trace, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
			}
			return nil, trace, err
		}
	}

	matches := p.fields.Extract(text.Text)
	trace.add(StageFieldsExtracted, "")
	result.FirstName = matches.Value(fields.FirstName)
	result.LastName = matches.Value(fields.LastName)
	result.Address = matches.Value(fields.Address)
	result.Phone = matches.Value(fields.Phone)
	if dob := matches.Value(fields.DateOfBirth); dob != nil {
		normalized := dates.Normalize(*dob)
		result.DateOfBirth = &normalized
	}
	trace.add(StageDateNormalized, "")

	result.DurationMS = time.Since(start).Milliseconds()
	trace.add(StageDone, "")

	p.logger.Info("extraction complete",
		zap.String("format", string(format)),
		zap.String("text_source", string(result.TextSource)),
		zap.Bool("used_ocr", result.UsedOCR),
		zap.Int("ocr_pages_failed", result.OCRPagesFailed),
		zap.Int("fields_found", result.FieldsFound()),
		zap.Int64("duration_ms", result.DurationMS),
	)
	return result, trace, nil
}

// read runs the format reader under ctx. The PDF library takes no context, so a
// reader still running at the deadline is abandoned and finishes in the background.
func (p *Pipeline) read(ctx context.Context, format models.Format, content []byte) (models.ExtractedText, error) {
	type outcome struct {
		text models.ExtractedText
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := p.readText(format, content)
		done <- outcome{text, err}
	}()
	select {
	case o := <-done:
		return o.text, o.err
	case <-ctx.Done():
		return models.ExtractedText{}, ctx.Err()
	}
}

// fallback runs OCR over an insufficient PDF and returns the text to extract fields from.
func (p *Pipeline) fallback(ctx context.Context, req models.ExtractionRequest, direct models.ExtractedText, result *models.ExtractionResult, trace *Trace) models.ExtractedText {
	if !p.capability.Available {
		p.logger.Debug("ocr skipped", zap.Error(p.capability.Err()))
		return direct
	}

	trace.add(StageOCRAttempted, "")
	result.UsedOCR = true

	pages, err := p.engine.RecognizePDF(ctx, req.Content, direct.Pages)
	if err != nil {
		p.logger.Warn("ocr job failed", zap.Error(err))
	}
	result.OCRPages = len(pages)
	result.OCRPagesFailed = ocr.FailedPages(pages)
	for _, pg := range pages {
		if pg.Err != nil && !errors.Is(pg.Err, context.DeadlineExceeded) && !errors.Is(pg.Err, context.Canceled) {
			p.logger.Warn("ocr page failed", zap.Int("page", pg.Page), zap.Error(pg.Err))
		}
	}

	joined := ocr.JoinPages(pages)
	if strings.TrimSpace(joined) == "" {
		return direct
	}
	trace.add(StageTextExtracted, string(models.SourceOCR))
	result.TextSource = models.SourceOCR
	return models.ExtractedText{
		Text:       joined,
		Source:     models.SourceOCR,
		Sufficient: extract.Sufficient(joined, p.extractor.MinTextChars()),
		Pages:      direct.Pages,
	}
}

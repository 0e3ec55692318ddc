package intake

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/yomitori/internal/extract"
	"github.com/hyperjump/yomitori/internal/fileid"
	"github.com/hyperjump/yomitori/internal/models"
	"github.com/hyperjump/yomitori/internal/ocr"
)

// auditWriteTimeout bounds the audit insert, which runs even after the request
// context has expired.
const auditWriteTimeout = 5 * time.Second

// AuditStore persists extraction audit records.
type AuditStore interface {
	CreateExtraction(ctx context.Context, rec *models.ExtractionRecord) error
}

// Audited runs a Pipeline and writes one audit record per request.
type Audited struct {
	pipeline *Pipeline
	store    AuditStore
	logger   *zap.Logger
}

// NewAudited wraps p. A nil store skips auditing.
func NewAudited(p *Pipeline, store AuditStore, logger *zap.Logger) *Audited {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Audited{pipeline: p, store: store, logger: logger}
}

// Capability returns the OCR capability of the wrapped pipeline.
func (a *Audited) Capability() ocr.Capability {
	return a.pipeline.Capability()
}

// Extract runs the pipeline and records the outcome. Audit failures are logged and
// never change the extraction outcome.
func (a *Audited) Extract(ctx context.Context, req models.ExtractionRequest) (*models.ExtractionResult, error) {
	start := time.Now()
	res, err := a.pipeline.Extract(ctx, req)
	if a.store == nil {
		return res, err
	}

	rec := NewRecord(req, res, err, time.Since(start))
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if werr := a.store.CreateExtraction(wctx, rec); werr != nil {
		a.logger.Warn("failed to write extraction audit record", zap.Error(werr))
	}
	return res, err
}

// NewRecord builds the audit record for one extraction. It copies no field values.
func NewRecord(req models.ExtractionRequest, res *models.ExtractionResult, err error, elapsed time.Duration) *models.ExtractionRecord {
	rec := &models.ExtractionRecord{
		Filename:    filepath.Base(req.Filename),
		ContentHash: fileid.ContentHash(req.Content),
		Status:      StatusFor(err),
		DurationMS:  elapsed.Milliseconds(),
	}
	if res != nil {
		rec.Format = res.Format
		rec.UsedOCR = res.UsedOCR
		rec.OCRPagesFailed = res.OCRPagesFailed
		rec.FieldsFound = res.FieldsFound()
	} else if format, ferr := extract.DetectFormat(req.Filename, req.ContentType); ferr == nil {
		rec.Format = format
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// StatusFor classifies an extraction error for the audit trail.
func StatusFor(err error) string {
	switch {
	case err == nil:
		return models.StatusOK
	case errors.Is(err, extract.ErrUnsupportedFormat), errors.Is(err, extract.ErrUnreadableFile):
		return models.StatusRejected
	default:
		return models.StatusFailed
	}
}

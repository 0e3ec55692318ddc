// Package export writes the extraction audit trail and activity log to an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/yomitori/internal/storage"
)

const (
	SheetExtractions = "Extractions"
	SheetActivity    = "Activity"
)

// ContentTypeXLSX is the media type of the workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultLimit caps the rows per sheet when the caller passes zero.
const DefaultLimit = 1000

// Service produces XLSX workbooks from storage.
type Service struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewService returns an export Service.
func NewService(store storage.Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// WorkbookXLSX returns a workbook with the newest limit extraction records and
// activity log entries, one sheet each.
func (s *Service) WorkbookXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()
	if limit <= 0 {
		limit = DefaultLimit
	}

	recs, err := s.store.ListExtractions(ctx, 0, limit)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	logs, err := s.store.ListActivityLogs(ctx, storage.ActivityFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("query activity logs: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetExtractions); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetActivity); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []any{
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.Filename,
			string(r.Format),
			r.Status,
			r.UsedOCR,
			r.FieldsFound,
			r.OCRPagesFailed,
			r.DurationMS,
			r.ContentHash,
			r.Error,
		})
	}
	if err := writeSheet(f, SheetExtractions,
		[]string{"Created", "Filename", "Format", "Status", "Used OCR", "Fields Found", "OCR Pages Failed", "Duration (ms)", "SHA-256", "Error"},
		rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetExtractions, "A", "A", 22)
	_ = f.SetColWidth(SheetExtractions, "B", "B", 32)
	_ = f.SetColWidth(SheetExtractions, "I", "I", 66)
	_ = f.SetColWidth(SheetExtractions, "J", "J", 40)

	rows = rows[:0]
	for _, l := range logs {
		rows = append(rows, []any{
			l.ID,
			l.Timestamp.UTC().Format(time.RFC3339),
			l.Method,
			l.Path,
			l.StatusCode,
			l.IPAddress,
			l.Body,
		})
	}
	if err := writeSheet(f, SheetActivity,
		[]string{"ID", "Timestamp", "Method", "Path", "Status", "IP Address", "Details"},
		rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetActivity, "B", "B", 22)
	_ = f.SetColWidth(SheetActivity, "D", "D", 32)
	_ = f.SetColWidth(SheetActivity, "G", "G", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export xlsx",
		zap.Int("extractions", len(recs)),
		zap.Int("activity_logs", len(logs)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), nil
}

// WriteFile writes the workbook to path.
func (s *Service) WriteFile(ctx context.Context, path string, limit int) error {
	data, err := s.WorkbookXLSX(ctx, limit)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/yomitori/internal/extract"
	"github.com/hyperjump/yomitori/internal/models"
	"github.com/hyperjump/yomitori/internal/ocr"
	"github.com/hyperjump/yomitori/internal/testdocs"
	"go.uber.org/zap"
)

type memAudit struct {
	mu   sync.Mutex
	recs []*models.ExtractionRecord
	err  error
}

func (m *memAudit) CreateExtraction(ctx context.Context, rec *models.ExtractionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

func TestAuditedRecordsSuccess(t *testing.T) {
	store := &memAudit{}
	a := NewAudited(newPipeline(&stubEngine{}, available), store, zap.NewNop())
	content := []byte("Patient Name: John Doe\nDOB: 01/02/1990\n")

	res, err := a.Extract(context.Background(), models.NewExtractionRequest("uploads/intake.txt", content))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(store.recs) != 1 {
		t.Fatalf("records = %d, want 1", len(store.recs))
	}
	rec := store.recs[0]
	if rec.Status != models.StatusOK || rec.Format != models.FormatTXT || rec.Filename != "intake.txt" {
		t.Errorf("record = %+v", rec)
	}
	if rec.FieldsFound != res.FieldsFound() || rec.FieldsFound != 3 {
		t.Errorf("fields_found = %d, want %d", rec.FieldsFound, res.FieldsFound())
	}
	if !strings.HasPrefix(rec.ContentHash, "sha256:") {
		t.Errorf("content_hash = %q", rec.ContentHash)
	}
	if strings.Contains(fmt.Sprintf("%+v", rec), "John") {
		t.Errorf("audit record carries patient data: %+v", rec)
	}
}

func TestAuditedRecordsRejections(t *testing.T) {
	store := &memAudit{}
	a := NewAudited(newPipeline(nil, ocr.Disabled("off")), store, nil)

	if _, err := a.Extract(context.Background(), models.NewExtractionRequest("sheet.xlsx", []byte("x"))); !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
	if _, err := a.Extract(context.Background(), models.NewExtractionRequest("broken.pdf", []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n"))); !errors.Is(err, extract.ErrUnreadableFile) {
		t.Fatalf("err = %v", err)
	}
	if len(store.recs) != 2 {
		t.Fatalf("records = %d, want 2", len(store.recs))
	}
	if store.recs[0].Status != models.StatusRejected || store.recs[0].Format != "" || store.recs[0].Error == "" {
		t.Errorf("unsupported record = %+v", store.recs[0])
	}
	if store.recs[1].Status != models.StatusRejected || store.recs[1].Format != models.FormatPDF {
		t.Errorf("unreadable record = %+v", store.recs[1])
	}
}

func TestAuditedWritesAfterTimeout(t *testing.T) {
	store := &memAudit{}
	engine := &stubEngine{waitForDL: true}
	p := New(Options{Engine: engine, Capability: available, Timeout: 20 * time.Millisecond})
	a := NewAudited(p, store, nil)

	_, err := a.Extract(context.Background(), models.NewExtractionRequest("scan.pdf", testdocs.ScannedPDF(1)))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if len(store.recs) != 1 || store.recs[0].Status != models.StatusFailed {
		t.Fatalf("records = %+v", store.recs)
	}
}

func TestAuditedStoreFailureKeepsResult(t *testing.T) {
	store := &memAudit{err: errors.New("disk full")}
	a := NewAudited(newPipeline(nil, ocr.Disabled("off")), store, nil)
	res, err := a.Extract(context.Background(), models.NewExtractionRequest("a.txt", []byte("DOB: 1990-05-17")))
	if err != nil || res == nil {
		t.Fatalf("Extract: res=%v err=%v", res, err)
	}
	if str(res.DateOfBirth) != "1990-05-17" {
		t.Errorf("dob = %s", str(res.DateOfBirth))
	}
}

func TestAuditedWithoutStore(t *testing.T) {
	a := NewAudited(newPipeline(nil, ocr.Disabled("off")), nil, nil)
	if a.Capability().Available {
		t.Error("capability should pass through as unavailable")
	}
	if _, err := a.Extract(context.Background(), models.NewExtractionRequest("a.txt", []byte("x"))); err != nil {
		t.Fatalf("Extract: %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, models.StatusOK},
		{fmt.Errorf("wrap: %w", extract.ErrUnsupportedFormat), models.StatusRejected},
		{fmt.Errorf("wrap: %w", extract.ErrUnreadableFile), models.StatusRejected},
		{ErrTimeout, models.StatusFailed},
		{context.Canceled, models.StatusFailed},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

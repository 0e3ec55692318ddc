package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/yomitori/internal/config"
	"github.com/hyperjump/yomitori/internal/export"
	"github.com/hyperjump/yomitori/internal/extract"
	"github.com/hyperjump/yomitori/internal/intake"
	"github.com/hyperjump/yomitori/internal/models"
	"github.com/hyperjump/yomitori/internal/ocr"
	"github.com/hyperjump/yomitori/internal/storage"
	"github.com/hyperjump/yomitori/internal/testdocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(t.TempDir() + "/db.sqlite")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	p := intake.New(intake.Options{Capability: ocr.Disabled("disabled in tests"), Logger: zap.NewNop()})
	cfg := &config.ServerConfig{Port: 8000, MaxUploadMB: 1}
	return NewServer(intake.NewAudited(p, store, zap.NewNop()), store, cfg, zap.NewNop()), store
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, h http.Handler, path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, filename, content, fields)
	r := httptest.NewRequest(http.MethodPost, path, body)
	r.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleExtract(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Handler()
	content := []byte("Patient Name: John Doe\nDOB: 01/02/1990\nAddress: 123 Main St, Springfield\nPhone: 555-123-4567\n")

	w := doUpload(t, h, "/extract/patient-info", "intake.txt", content, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", w.Code, w.Body.String())
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"first_name":    "John",
		"last_name":     "Doe",
		"date_of_birth": "1990-01-02",
		"address":       "123 Main St, Springfield",
		"phone":         "555-123-4567",
		"used_ocr":      false,
	}
	for k, v := range want {
		if out[k] != v {
			t.Errorf("%s: got %v, want %v", k, out[k], v)
		}
	}

	n, err := store.CountExtractions(context.Background())
	if err != nil || n != 1 {
		t.Errorf("audit records: got %d (err=%v), want 1", n, err)
	}
}

func TestHandleExtract_apiRouteAndNulls(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doUpload(t, srv.Handler(), "/api/v1/extract", "notes.txt", []byte("nothing useful here"), map[string]string{"ocr_enabled": "false"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", w.Code, w.Body.String())
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"first_name", "last_name", "date_of_birth", "address", "phone"} {
		v, ok := out[k]
		if !ok || v != nil {
			t.Errorf("%s should be present and null, got %v (present=%v)", k, v, ok)
		}
	}
}

func TestHandleExtract_scannedPDFWithoutOCR(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doUpload(t, srv.Handler(), "/extract/patient-info", "scan.pdf", testdocs.ScannedPDF(1), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", w.Code, w.Body.String())
	}
	var res models.ExtractionResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.UsedOCR || res.FieldsFound() != 0 {
		t.Errorf("used_ocr=%v fields=%d, want false/0", res.UsedOCR, res.FieldsFound())
	}
}

func TestHandleExtract_errors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
		want     int
	}{
		{"unsupported format", "sheet.xlsx", []byte("x"), nil, http.StatusUnsupportedMediaType},
		{"unreadable pdf", "broken.pdf", []byte("not a pdf"), nil, http.StatusUnprocessableEntity},
		{"unreadable docx", "letter.docx", []byte("not a zip"), nil, http.StatusUnprocessableEntity},
		{"missing file", "", nil, nil, http.StatusBadRequest},
		{"bad ocr flag", "a.txt", []byte("x"), map[string]string{"ocr_enabled": "maybe"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doUpload(t, h, "/extract/patient-info", tt.filename, tt.content, tt.fields)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d (body=%s)", w.Code, tt.want, w.Body.String())
			}
			var out map[string]string
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil || out["error"] == "" {
				t.Errorf("expected JSON error body, got err=%v out=%v", err, out)
			}
		})
	}
}

func TestHandleExtract_notMultipart(t *testing.T) {
	srv, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/extract/patient-info", strings.NewReader(`{"file":"x"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleExtract_tooLarge(t *testing.T) {
	srv, _ := newTestServer(t)
	big := bytes.Repeat([]byte("a"), 2<<20)
	w := doUpload(t, srv.Handler(), "/extract/patient-info", "big.txt", big, nil)
	if w.Code < 400 || w.Code >= 500 {
		t.Errorf("status: got %d, want a 4xx rejection", w.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", extract.ErrUnsupportedFormat), http.StatusUnsupportedMediaType},
		{fmt.Errorf("x: %w", extract.ErrUnreadableFile), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", intake.ErrTimeout), http.StatusGatewayTimeout},
		{context.Canceled, statusClientClosedRequest},
		{fmt.Errorf("x: %w", context.Canceled), statusClientClosedRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// cancelledExtractor fails every request the way the pipeline does when the
// client disconnects mid-extraction.
type cancelledExtractor struct{}

func (cancelledExtractor) Extract(ctx context.Context, req models.ExtractionRequest) (*models.ExtractionResult, error) {
	return nil, context.Canceled
}

func (cancelledExtractor) Capability() ocr.Capability { return ocr.Disabled("disabled in tests") }

func TestHandleExtract_clientGoneIsNotAnError(t *testing.T) {
	store, err := storage.NewSQLiteStorage(t.TempDir() + "/db.sqlite")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	core, logs := observer.New(zap.DebugLevel)
	srv := NewServer(cancelledExtractor{}, store, &config.ServerConfig{MaxUploadMB: 1}, zap.New(core))

	w := doUpload(t, srv.Handler(), "/extract/patient-info", "intake.txt", []byte("DOB: 1990-05-17"), nil)
	if w.Code != statusClientClosedRequest {
		t.Errorf("status: got %d, want %d", w.Code, statusClientClosedRequest)
	}
	if n := logs.FilterLevelExact(zap.ErrorLevel).Len(); n != 0 {
		t.Errorf("got %d error logs for a client disconnect: %v", n, logs.All())
	}
}

func TestActivityLogging(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Handler()

	doUpload(t, h, "/extract/patient-info", "intake.txt", []byte("DOB: 1990-05-17"), nil)
	for _, path := range []string{"/activity-logs", "/", "/assets/app.js", "/favicon.ico"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	logs, err := store.ListActivityLogs(context.Background(), storage.ActivityFilter{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("activity logs: got %d, want 2: %+v", len(logs), logs)
	}
	// newest first
	if logs[0].Path != "/health" || logs[0].StatusCode != http.StatusOK || logs[0].Body != "" {
		t.Errorf("health entry: %+v", logs[0])
	}
	upload := logs[1]
	if upload.Method != http.MethodPost || upload.Path != "/extract/patient-info" ||
		upload.Body != "Document upload for patient info extraction" || upload.StatusCode != http.StatusOK {
		t.Errorf("upload entry: %+v", upload)
	}
}

func TestActivityLogging_recordsErrorStatus(t *testing.T) {
	srv, store := newTestServer(t)
	doUpload(t, srv.Handler(), "/api/v1/extract", "sheet.xlsx", []byte("x"), nil)
	logs, err := store.ListActivityLogs(context.Background(), storage.ActivityFilter{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("logs: %+v", logs)
	}
}

func TestDescribeRequest(t *testing.T) {
	tests := []struct {
		method, path, ct string
		want             string
	}{
		{http.MethodPost, "/extract/patient-info", "multipart/form-data; boundary=x", "Document upload for patient info extraction"},
		{http.MethodPost, "/api/v1/extract", "multipart/form-data; boundary=x", "Document upload for patient info extraction"},
		{http.MethodPost, "/upload", "multipart/form-data; boundary=x", "File upload request"},
		{http.MethodPost, "/api/v1/things", "application/json", "JSON API request"},
		{http.MethodPost, "/api/v1/things", "text/plain", "Request with content-type: text/plain"},
		{http.MethodDelete, "/api/v1/things/1", "", "Delete operation on /api/v1/things/1"},
		{http.MethodPut, "/api/v1/things/1", "", "Update operation on /api/v1/things/1"},
		{http.MethodGet, "/health", "", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.ct != "" {
			r.Header.Set("Content-Type", tt.ct)
		}
		if got := describeRequest(r); got != tt.want {
			t.Errorf("%s %s: got %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestSkipActivity(t *testing.T) {
	tests := []struct {
		method, path string
		want         bool
	}{
		{http.MethodGet, "/activity-logs", true},
		{http.MethodPost, "/activity-logs", false},
		{http.MethodGet, "/deleted-orders", true},
		{http.MethodGet, "/orders", true},
		{http.MethodGet, "/", true},
		{http.MethodPost, "/", true},
		{http.MethodGet, "/assets/index.css", true},
		{http.MethodGet, "/favicon.ico", true},
		{http.MethodGet, "/health", false},
		{http.MethodPost, "/extract/patient-info", false},
	}
	for _, tt := range tests {
		if got := skipActivity(tt.method, tt.path); got != tt.want {
			t.Errorf("skipActivity(%s, %s) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestHandleActivityLogs(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	for _, path := range []string{"/assets/app.js", "/health", "/extract/patient-info"} {
		if err := store.CreateActivityLog(ctx, &models.ActivityLog{Method: "GET", Path: path, StatusCode: 200}); err != nil {
			t.Fatal(err)
		}
	}
	h := srv.Handler()

	get := func(url string) []models.ActivityLog {
		t.Helper()
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", url, w.Code)
		}
		var logs []models.ActivityLog
		if err := json.NewDecoder(w.Body).Decode(&logs); err != nil {
			t.Fatal(err)
		}
		return logs
	}

	if logs := get("/activity-logs"); len(logs) != 2 {
		t.Errorf("only_api default: got %d entries, want 2", len(logs))
	}
	if logs := get("/activity-logs?only_api=false"); len(logs) != 3 {
		t.Errorf("only_api=false: got %d entries, want 3", len(logs))
	}
	if logs := get("/activity-logs?limit=1&only_api=false"); len(logs) != 1 || logs[0].Path != "/extract/patient-info" {
		t.Errorf("limit=1: got %+v", logs)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activity-logs?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status %d, want 400", w.Code)
	}
}

func TestHandleExtractions(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	doUpload(t, h, "/extract/patient-info", "one.txt", []byte("DOB: 1990-05-17"), nil)
	doUpload(t, h, "/extract/patient-info", "two.xlsx", []byte("x"), nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/extractions?limit=10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Extractions []models.ExtractionRecord `json:"extractions"`
		Total       int64                     `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 2 || len(out.Extractions) != 2 {
		t.Fatalf("got total=%d len=%d", out.Total, len(out.Extractions))
	}

	statuses := map[string]string{}
	for _, rec := range out.Extractions {
		statuses[rec.Filename] = rec.Status
	}
	if statuses["one.txt"] != models.StatusOK || statuses["two.xlsx"] != models.StatusRejected {
		t.Errorf("statuses: %v", statuses)
	}

	id := out.Extractions[0].ID
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/"+id, nil))
	if w.Code != http.StatusOK {
		t.Errorf("get by id: status %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/extractions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing id: status %d, want 404", w.Code)
	}
}

func TestHandleExport(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	doUpload(t, h, "/extract/patient-info", "one.txt", []byte("DOB: 1990-05-17"), nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/export.xlsx", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != export.ContentTypeXLSX {
		t.Errorf("content type: %s", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("content disposition: %s", w.Header().Get("Content-Disposition"))
	}
	// XLSX is a zip container.
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		OCR          ocr.Capability `json:"ocr"`
		Extractions  int64          `json:"extractions"`
		ActivityLogs int64          `json:"activity_logs"`
		DiskUsage    *int64         `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.OCR.Available || out.OCR.Reason != "disabled in tests" {
		t.Errorf("ocr capability: %+v", out.OCR)
	}
	if out.DiskUsage == nil || *out.DiskUsage <= 0 {
		t.Errorf("disk usage should be reported, got %v", out.DiskUsage)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodOptions, "/extract/patient-info", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("preflight should set Access-Control-Allow-Origin")
	}
}

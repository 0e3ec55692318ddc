package models

import "time"

// ActivityLog is one recorded HTTP request.
type ActivityLog struct {
	ID         int64     `json:"id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Body       string    `json:"body,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExtractionRecord is the audit entry for one extraction. It carries no patient data.
type ExtractionRecord struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	Format         Format    `json:"format,omitempty"`
	ContentHash    string    `json:"content_hash"`
	UsedOCR        bool      `json:"used_ocr"`
	OCRPagesFailed int       `json:"ocr_pages_failed"`
	FieldsFound    int       `json:"fields_found"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Extraction record statuses.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

package models

// ExtractionResult is the structured output of one extraction.
// A field that was not found is nil, never the empty string.
type ExtractionResult struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone"`
	// UsedOCR is true iff the OCR fallback was invoked, whatever it produced.
	UsedOCR bool `json:"used_ocr"`

	// Diagnostics for the surrounding system; not part of the patient record.
	Format         Format     `json:"format,omitempty"`
	TextSource     TextSource `json:"text_source,omitempty"`
	OCRPages       int        `json:"ocr_pages,omitempty"`
	OCRPagesFailed int        `json:"ocr_pages_failed,omitempty"`
	DurationMS     int64      `json:"duration_ms"`
}

// FieldsFound returns how many patient fields are present.
func (r *ExtractionResult) FieldsFound() int {
	n := 0
	for _, f := range []*string{r.FirstName, r.LastName, r.DateOfBirth, r.Address, r.Phone} {
		if f != nil {
			n++
		}
	}
	return n
}

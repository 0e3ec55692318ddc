package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractionResult_FieldsFound(t *testing.T) {
	first, phone := "John", "555-867-5309"
	tests := []struct {
		name string
		res  ExtractionResult
		want int
	}{
		{"empty", ExtractionResult{}, 0},
		{"two fields", ExtractionResult{FirstName: &first, Phone: &phone}, 2},
		{"ocr flag does not count", ExtractionResult{UsedOCR: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.FieldsFound(); got != tt.want {
				t.Errorf("FieldsFound() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractionResult_MissingFieldsEncodeAsNull(t *testing.T) {
	first := "John"
	data, err := json.Marshal(&ExtractionResult{FirstName: &first})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"last_name", "date_of_birth", "address", "phone"} {
		v, ok := m[key]
		if !ok {
			t.Errorf("%s missing from output", key)
		} else if v != nil {
			t.Errorf("%s = %v, want null", key, v)
		}
	}
	if m["first_name"] != "John" || m["used_ocr"] != false {
		t.Errorf("unexpected output: %s", data)
	}
	if strings.Contains(string(data), "ocr_pages") {
		t.Errorf("zero diagnostics should be omitted: %s", data)
	}
}

func TestNewExtractionRequest(t *testing.T) {
	req := NewExtractionRequest("scan.pdf", []byte("%PDF"))
	if !req.OCREnabled || req.Filename != "scan.pdf" || string(req.Content) != "%PDF" {
		t.Errorf("request = %+v", req)
	}
}

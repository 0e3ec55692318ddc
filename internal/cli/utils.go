// Package cli renders extraction results and logs for the yomitori command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/yomitori/internal/models"
	"github.com/hyperjump/yomitori/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a format. Unknown values are text.
func ParseOutputFormat(s string) OutputFormat {
	if OutputFormat(s) == OutputJSON {
		return OutputJSON
	}
	return OutputText
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteResult writes one extraction result to w in the given format.
// Use OutputJSON for the same shape the HTTP API returns.
func WriteResult(w io.Writer, res *models.ExtractionResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "First name:    %s\n", orDash(res.FirstName))
	fmt.Fprintf(w, "Last name:     %s\n", orDash(res.LastName))
	fmt.Fprintf(w, "Date of birth: %s\n", orDash(res.DateOfBirth))
	fmt.Fprintf(w, "Address:       %s\n", orDash(res.Address))
	fmt.Fprintf(w, "Phone:         %s\n", orDash(res.Phone))
	fmt.Fprintln(w, "─────────────────────────────────────────────────────────")
	fmt.Fprintf(w, "format=%s source=%s used_ocr=%t fields=%d/5 %dms\n",
		res.Format, res.TextSource, res.UsedOCR, res.FieldsFound(), res.DurationMS)
	if res.OCRPagesFailed > 0 {
		fmt.Fprintf(w, "ocr pages failed: %d of %d\n", res.OCRPagesFailed, res.OCRPages)
	}
	return nil
}

func orDash(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

// WriteActivity writes activity log entries, newest first as given.
func WriteActivity(w io.Writer, logs []*models.ActivityLog, format OutputFormat) error {
	if format == OutputJSON {
		if logs == nil {
			logs = []*models.ActivityLog{}
		}
		return writeJSON(w, logs)
	}
	if len(logs) == 0 {
		fmt.Fprintln(w, "No activity recorded.")
		return nil
	}
	for _, l := range logs {
		fmt.Fprintf(w, "%s  %-6s %-28s %d  %s\n",
			l.Timestamp.Local().Format(time.DateTime), l.Method, l.Path, l.StatusCode, utils.Truncate(l.Body, 60))
	}
	return nil
}

// WriteExtractions writes audit records of past extractions.
func WriteExtractions(w io.Writer, records []*models.ExtractionRecord, format OutputFormat) error {
	if format == OutputJSON {
		if records == nil {
			records = []*models.ExtractionRecord{}
		}
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No extractions recorded.")
		return nil
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %-8s %-5s ocr=%-5t fields=%d %dms  %s",
			r.CreatedAt.Local().Format(time.DateTime), r.Status, r.Format, r.UsedOCR, r.FieldsFound, r.DurationMS, r.Filename)
		if r.Error != "" {
			line += "  (" + utils.Truncate(r.Error, 60) + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

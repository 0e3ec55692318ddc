// Package extract turns uploaded document bytes into plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/yomitori/internal/models"
)

// DefaultMinTextChars is the direct-text threshold below which a PDF is treated as scanned.
const DefaultMinTextChars = 20

// Extractor reads text from PDF, DOCX and plain text content.
type Extractor struct {
	minTextChars int
}

// NewExtractor returns an Extractor. minTextChars <= 0 selects DefaultMinTextChars.
func NewExtractor(minTextChars int) *Extractor {
	if minTextChars <= 0 {
		minTextChars = DefaultMinTextChars
	}
	return &Extractor{minTextChars: minTextChars}
}

// MinTextChars returns the PDF sufficiency threshold.
func (e *Extractor) MinTextChars() int {
	return e.minTextChars
}

// Extract reads text from content already classified as format.
func (e *Extractor) Extract(format models.Format, content []byte) (models.ExtractedText, error) {
	switch format {
	case models.FormatPDF:
		return ReadPDF(content, e.minTextChars)
	case models.FormatDOCX:
		return ReadDocx(content)
	case models.FormatTXT:
		return ReadPlainText(content), nil
	default:
		return models.ExtractedText{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ExtractFile detects the format of the file at path and reads its text.
func (e *Extractor) ExtractFile(path string) (models.ExtractedText, error) {
	format, err := DetectFormat(filepath.Base(path), "")
	if err != nil {
		return models.ExtractedText{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return models.ExtractedText{}, fmt.Errorf("read file: %w", err)
	}
	return e.Extract(format, content)
}

package extract

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/hyperjump/yomitori/internal/models"
)

// extensionFormats maps lower-case extensions (with the dot) to formats.
var extensionFormats = map[string]models.Format{
	".pdf":  models.FormatPDF,
	".docx": models.FormatDOCX,
	".txt":  models.FormatTXT,
	".text": models.FormatTXT,
	".csv":  models.FormatTXT,
	".log":  models.FormatTXT,
	".md":   models.FormatTXT,
}

var contentTypeFormats = map[string]models.Format{
	"application/pdf": models.FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": models.FormatDOCX,
	"text/plain": models.FormatTXT,
}

// DetectFormat classifies a document by its filename extension, falling back to the
// declared content type when the name has no extension. It never looks at content.
func DetectFormat(filename, contentType string) (models.Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if ext != "" {
		if f, ok := extensionFormats[ext]; ok {
			return f, nil
		}
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if f, ok := contentTypeFormats[strings.ToLower(mt)]; ok {
				return f, nil
			}
		}
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, contentType)
	}
	return "", fmt.Errorf("%w: %q has no extension or content type", ErrUnsupportedFormat, filename)
}

// SupportedExtensions returns the accepted extensions, sorted.
func SupportedExtensions() []string {
	return []string{".csv", ".docx", ".log", ".md", ".pdf", ".text", ".txt"}
}

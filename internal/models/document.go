// Package models defines the value types that flow through the intake pipeline:
// the upload request, the intermediate extracted text, and the structured result.
package models

// Format is a supported upload format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// TextSource records which reader produced an ExtractedText.
type TextSource string

const (
	// SourceDirect is the embedded text layer of a PDF.
	SourceDirect TextSource = "direct"
	// SourceOCR is text recognized from rasterized PDF pages.
	SourceOCR TextSource = "ocr"
	// SourceNative is text read from a format that always carries text (txt, docx).
	SourceNative TextSource = "native"
)

// ExtractionRequest is one uploaded document. It is owned by the caller that
// creates it and is not retained after the pipeline returns.
type ExtractionRequest struct {
	Content     []byte
	Filename    string
	ContentType string
	OCREnabled  bool
}

// NewExtractionRequest returns a request with OCR fallback enabled.
func NewExtractionRequest(filename string, content []byte) ExtractionRequest {
	return ExtractionRequest{
		Content:    content,
		Filename:   filename,
		OCREnabled: true,
	}
}

// ExtractedText is the text a reader produced for a document.
// Sufficient reports whether field extraction can proceed without OCR.
type ExtractedText struct {
	Text       string
	Source     TextSource
	Sufficient bool
	// Pages is the PDF page count; zero for other formats.
	Pages int
}

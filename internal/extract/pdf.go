package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/hyperjump/yomitori/internal/models"
	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// ReadPDF reads the embedded text layer of a PDF. Pages that fail to decode are
// skipped. The result is insufficient when no page produced text or when the
// text has fewer than minTextChars non-whitespace characters, which is how
// scanned documents look.
func ReadPDF(content []byte, minTextChars int) (out models.ExtractedText, err error) {
	if !bytes.HasPrefix(content, pdfMagic) {
		return models.ExtractedText{}, fmt.Errorf("%w: missing PDF header", ErrUnreadableFile)
	}
	defer func() {
		if r := recover(); r != nil {
			out = models.ExtractedText{}
			err = fmt.Errorf("%w: pdf parser panic: %v", ErrUnreadableFile, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return models.ExtractedText{}, fmt.Errorf("%w: open PDF: %v", ErrUnreadableFile, err)
	}

	numPages := r.NumPage()
	fonts := make(map[string]*pdf.Font)
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	text := strings.Join(pages, "\n\n")
	return models.ExtractedText{
		Text:       text,
		Source:     models.SourceDirect,
		Sufficient: len(pages) > 0 && Sufficient(text, minTextChars),
		Pages:      numPages,
	}, nil
}

// Sufficient reports whether text holds at least minChars non-whitespace characters.
func Sufficient(text string, minChars int) bool {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
			if n >= minChars {
				return true
			}
		}
	}
	return n >= minChars
}

package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/yomitori/internal/models"
)

const (
	docxContentTypes = "[Content_Types].xml"
	docxDefaultBody  = "word/document.xml"
	docxBodyType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// overrideRe matches one <Override .../> element of [Content_Types].xml.
var overrideRe = regexp.MustCompile(`<Override\s[^>]*>`)

var (
	partNameAttr    = regexp.MustCompile(`PartName="([^"]+)"`)
	contentTypeAttr = regexp.MustCompile(`ContentType="([^"]+)"`)
)

// bodyToken matches the body elements that contribute text, in document order:
// run text, run-level tabs and breaks, and paragraph ends. Tab stop definitions
// (<w:tab w:val=.../>) carry attributes and are not matched.
var bodyToken = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>|<w:tab\s*/>|<w:(?:br|cr)(?:\s[^>]*)?/>|</w:p>|<w:p(?:\s[^>]*)?/>`)

// ReadDocx returns the paragraph text of a .docx package, one paragraph per line.
// Paragraph elements are matched with or without attributes (<w:p w:rsidR="...">).
func ReadDocx(content []byte) (models.ExtractedText, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return models.ExtractedText{}, fmt.Errorf("%w: docx is not a zip: %v", ErrUnreadableFile, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	bodyPath := docxDefaultBody
	if ct, ok := files[docxContentTypes]; ok {
		if data, err := readZipFile(ct); err == nil {
			if p := mainPartName(string(data)); p != "" {
				bodyPath = p
			}
		}
	}

	body, ok := files[bodyPath]
	if !ok {
		return models.ExtractedText{}, fmt.Errorf("%w: docx body %s not found", ErrUnreadableFile, bodyPath)
	}
	xml, err := readZipFile(body)
	if err != nil {
		return models.ExtractedText{}, fmt.Errorf("%w: docx read %s: %v", ErrUnreadableFile, bodyPath, err)
	}

	text := docxText(string(xml))
	return models.ExtractedText{
		Text:       text,
		Source:     models.SourceNative,
		Sufficient: strings.TrimSpace(text) != "",
	}, nil
}

// mainPartName returns the main document part declared in [Content_Types].xml,
// without its leading slash, or "" when none is declared.
func mainPartName(contentTypes string) string {
	for _, el := range overrideRe.FindAllString(contentTypes, -1) {
		ct := contentTypeAttr.FindStringSubmatch(el)
		if ct == nil || ct[1] != docxBodyType {
			continue
		}
		if pn := partNameAttr.FindStringSubmatch(el); pn != nil {
			return strings.TrimPrefix(pn[1], "/")
		}
	}
	return ""
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func docxText(body string) string {
	var b strings.Builder
	for _, m := range bodyToken.FindAllStringSubmatchIndex(body, -1) {
		switch tok := body[m[0]:m[1]]; {
		case m[2] >= 0:
			b.WriteString(html.UnescapeString(body[m[2]:m[3]]))
		case strings.HasPrefix(tok, "<w:tab"):
			b.WriteByte('\t')
		default:
			b.WriteByte('\n')
		}
	}
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

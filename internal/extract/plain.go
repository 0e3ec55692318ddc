package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/yomitori/internal/models"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ReadPlainText decodes a plain text upload. Decoders are tried in order: UTF-8 (BOM
// stripped), UTF-16 when a BOM says so, Windows-1252, then Latin-1, which accepts any
// byte sequence. Plain text never needs OCR.
func ReadPlainText(content []byte) models.ExtractedText {
	text := decodePlain(content)
	return models.ExtractedText{
		Text:       text,
		Source:     models.SourceNative,
		Sufficient: strings.TrimSpace(text) != "",
	}
}

func decodePlain(content []byte) string {
	if bytes.HasPrefix(content, bomUTF8) {
		content = content[len(bomUTF8):]
	}
	if bytes.HasPrefix(content, bomUTF16LE) || bytes.HasPrefix(content, bomUTF16BE) {
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(content)
		if err == nil {
			return string(out)
		}
	}
	if utf8.Valid(content) {
		return string(content)
	}
	if out, err := charmap.Windows1252.NewDecoder().Bytes(content); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
		return string(out)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "\uFFFD")
	}
	return string(out)
}

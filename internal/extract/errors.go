package extract

import "errors"

var (
	// ErrUnsupportedFormat is returned for files that are neither PDF, DOCX nor plain text.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnreadableFile is returned when a supported file cannot be parsed.
	ErrUnreadableFile = errors.New("unreadable file")
)

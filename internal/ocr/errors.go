package ocr

import "errors"

var (
	// ErrUnavailable means the OCR toolchain is not installed or was disabled.
	ErrUnavailable = errors.New("ocr unavailable")
	// ErrPageFailed marks a single page that could not be rasterized or recognized.
	ErrPageFailed = errors.New("ocr page failed")
)

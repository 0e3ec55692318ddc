//go:build !gosseract

package ocr

// recognizerNeedsBinary reports whether the tesseract executable must be on PATH.
const recognizerNeedsBinary = true

func newRecognizer(runner Runner, cfg Config) Recognizer {
	return NewTesseractCLI(runner, cfg)
}

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
)

// Recognizer turns a page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// TesseractCLI recognizes images by running the tesseract binary.
type TesseractCLI struct {
	runner      Runner
	bin         string
	lang        string
	psm         int
	tessdataDir string
}

// NewTesseractCLI returns a recognizer configured from cfg.
func NewTesseractCLI(runner Runner, cfg Config) *TesseractCLI {
	cfg = cfg.withDefaults()
	return &TesseractCLI{runner: runner, bin: cfg.Tesseract, lang: cfg.Language, psm: cfg.PSM, tessdataDir: cfg.TessdataDir}
}

// Recognize runs tesseract <image> stdout -l <lang>.
func (t *TesseractCLI) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", t.lang}
	if t.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(t.psm))
	}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, firstLine(errb))
	}
	return string(out), nil
}

func firstLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

//go:build gosseract

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Built with libtesseract linked in, so only pdftoppm has to be installed.
const recognizerNeedsBinary = false

func newRecognizer(_ Runner, cfg Config) Recognizer {
	return NewGosseract(cfg)
}

// Gosseract recognizes images in-process through libtesseract.
type Gosseract struct {
	lang        string
	psm         int
	tessdataDir string
}

// NewGosseract returns an in-process recognizer configured from cfg.
func NewGosseract(cfg Config) *Gosseract {
	cfg = cfg.withDefaults()
	return &Gosseract{lang: cfg.Language, psm: cfg.PSM, tessdataDir: cfg.TessdataDir}
}

// Recognize runs tesseract over the image at imagePath.
func (g *Gosseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if g.tessdataDir != "" {
		if err := client.SetTessdataPrefix(g.tessdataDir); err != nil {
			return "", fmt.Errorf("gosseract tessdata %q: %w", g.tessdataDir, err)
		}
	}
	if err := client.SetLanguage(g.lang); err != nil {
		return "", fmt.Errorf("gosseract language %q: %w", g.lang, err)
	}
	if g.psm > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(g.psm)); err != nil {
			return "", fmt.Errorf("gosseract page segmentation mode: %w", err)
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("gosseract image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return text, nil
}

package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// Rasterizer renders one PDF page to an image file.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, page int, outPrefix string) (string, error)
}

// PopplerRasterizer renders pages with pdftoppm.
type PopplerRasterizer struct {
	runner Runner
	bin    string
	dpi    int
}

// NewPopplerRasterizer returns a rasterizer running bin at dpi.
func NewPopplerRasterizer(runner Runner, bin string, dpi int) *PopplerRasterizer {
	return &PopplerRasterizer{runner: runner, bin: bin, dpi: dpi}
}

// Rasterize renders page (1-based) to outPrefix.png.
func (p *PopplerRasterizer) Rasterize(ctx context.Context, pdfPath string, page int, outPrefix string) (string, error) {
	n := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <prefix>
	_, errb, err := p.runner.Run(ctx, p.bin, "-r", strconv.Itoa(p.dpi), "-png", "-f", n, "-l", n, "-singlefile", pdfPath, outPrefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, firstLine(errb))
	}
	img := outPrefix + ".png"
	if _, err := os.Stat(img); err != nil {
		return "", fmt.Errorf("pdftoppm produced no image: %w", err)
	}
	return img, nil
}

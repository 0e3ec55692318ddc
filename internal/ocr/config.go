package ocr

// Config selects the OCR toolchain and its limits.
type Config struct {
	Pdftoppm    string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Language    string // default "eng"
	DPI         int    // rasterization DPI, default 300
	PSM         int    // tesseract page segmentation mode; 0 keeps tesseract's default
	TessdataDir string
	MaxPages    int // 0 = no limit
	Workers     int // concurrent OCR jobs, default 2
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	return c
}

package config

import (
	"path/filepath"
	"time"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 20
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/yomitori/data/db/yomitori.db"
	}
	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = 2 * time.Minute
	}
	if cfg.Extraction.MinTextChars == 0 {
		cfg.Extraction.MinTextChars = 20
	}
	if cfg.OCR.Pdftoppm == "" {
		cfg.OCR.Pdftoppm = "pdftoppm"
	}
	if cfg.OCR.Tesseract == "" {
		cfg.OCR.Tesseract = "tesseract"
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.OCR.DPI == 0 {
		cfg.OCR.DPI = 300
	}
	if cfg.OCR.Workers == 0 {
		cfg.OCR.Workers = 2
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".txt"}
	}
	if len(cfg.Watch.Directories) > 0 {
		if cfg.Watch.Recursive == nil {
			t := true
			cfg.Watch.Recursive = &t
		}
		if cfg.Watch.OutputDir == "" {
			cfg.Watch.OutputDir = filepath.Join(cfg.Watch.Directories[0], "results")
		}
	}
}

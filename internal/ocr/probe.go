package ocr

import (
	"fmt"
	"os/exec"
	"strings"
)

// Capability says whether OCR can run in this process. It is resolved once at
// startup and handed to whoever decides to invoke the engine.
type Capability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Pdftoppm  string `json:"pdftoppm,omitempty"`
	Tesseract string `json:"tesseract,omitempty"`
	Language  string `json:"language,omitempty"`
}

// Disabled returns a capability that reports OCR as switched off.
func Disabled(reason string) Capability {
	return Capability{Reason: reason}
}

// Probe looks up the rasterizer and recognizer binaries on PATH.
func Probe(cfg Config) Capability {
	return ProbeWith(cfg, exec.LookPath)
}

// ProbeWith is Probe with an injectable lookup.
func ProbeWith(cfg Config, lookPath func(string) (string, error)) Capability {
	cfg = cfg.withDefaults()
	capability := Capability{Language: cfg.Language}
	var missing []string

	if p, err := lookPath(cfg.Pdftoppm); err != nil {
		missing = append(missing, cfg.Pdftoppm)
	} else {
		capability.Pdftoppm = p
	}
	if recognizerNeedsBinary {
		if p, err := lookPath(cfg.Tesseract); err != nil {
			missing = append(missing, cfg.Tesseract)
		} else {
			capability.Tesseract = p
		}
	}

	if len(missing) > 0 {
		capability.Reason = fmt.Sprintf("not found on PATH: %s", strings.Join(missing, ", "))
		return capability
	}
	capability.Available = true
	return capability
}

// Err returns nil when OCR is available and an ErrUnavailable-wrapped reason otherwise.
func (c Capability) Err() error {
	if c.Available {
		return nil
	}
	if c.Reason == "" {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, c.Reason)
}

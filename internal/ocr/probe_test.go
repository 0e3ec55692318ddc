package ocr

import (
	"errors"
	"strings"
	"testing"
)

func lookPathIn(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestProbeWith(t *testing.T) {
	c := ProbeWith(Config{}, lookPathIn("pdftoppm", "tesseract"))
	if !c.Available || c.Err() != nil {
		t.Fatalf("capability = %+v, want available", c)
	}
	if c.Pdftoppm != "/usr/bin/pdftoppm" || c.Language != "eng" {
		t.Errorf("capability = %+v", c)
	}

	c = ProbeWith(Config{}, lookPathIn())
	if c.Available {
		t.Fatal("capability should be unavailable")
	}
	if !strings.Contains(c.Reason, "pdftoppm") {
		t.Errorf("reason %q should name pdftoppm", c.Reason)
	}
	if !errors.Is(c.Err(), ErrUnavailable) {
		t.Errorf("Err() = %v, want ErrUnavailable", c.Err())
	}
}

func TestProbeWithCustomBinary(t *testing.T) {
	c := ProbeWith(Config{Pdftoppm: "pdftoppm-custom"}, lookPathIn("pdftoppm", "tesseract"))
	if c.Available {
		t.Error("custom pdftoppm is missing, capability should be unavailable")
	}
}

func TestDisabled(t *testing.T) {
	c := Disabled("ocr.enabled is false")
	if c.Available {
		t.Error("disabled capability should not be available")
	}
	if !errors.Is(c.Err(), ErrUnavailable) || !strings.Contains(c.Err().Error(), "ocr.enabled") {
		t.Errorf("Err() = %v", c.Err())
	}
}

func TestJoinPages(t *testing.T) {
	results := []PageResult{
		{Page: 1, Text: "  first \n"},
		{Page: 2, Err: ErrPageFailed, Text: "ignored"},
		{Page: 3, Text: "   "},
		{Page: 4, Text: "last"},
	}
	if got := JoinPages(results); got != "first\n\nlast" {
		t.Errorf("JoinPages = %q", got)
	}
	if got := JoinPages(nil); got != "" {
		t.Errorf("JoinPages(nil) = %q", got)
	}
	if FailedPages(results) != 1 {
		t.Errorf("FailedPages = %d", FailedPages(results))
	}
}

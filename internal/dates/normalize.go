// Package dates converts date substrings found in documents to the canonical YYYY-MM-DD form.
package dates

import (
	"strings"
	"time"
)

// Canonical is the layout every recognized date is normalized to.
const Canonical = "2006-01-02"

// layouts are tried in order. ISO comes first so canonical input is returned unchanged.
var layouts = []string{
	Canonical,
	"2006-1-2",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// shortYearLayouts carry a two-digit year and are pivoted so a birth date never lands in the future.
var shortYearLayouts = []string{
	"01/02/06",
	"1/2/06",
	"01-02-06",
	"1-2-06",
}

// Normalize returns raw as YYYY-MM-DD when one of the known layouts parses it.
// Otherwise raw is returned unchanged; Normalize never fails.
func Normalize(raw string) string {
	return normalizeAt(raw, time.Now())
}

// Parse returns the parsed date and true when raw matches a known layout.
func Parse(raw string) (time.Time, bool) {
	return parseAt(raw, time.Now())
}

func normalizeAt(raw string, now time.Time) string {
	t, ok := parseAt(raw, now)
	if !ok {
		return raw
	}
	return t.Format(Canonical)
}

func parseAt(raw string, now time.Time) (time.Time, bool) {
	s := clean(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range shortYearLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() > now.Year() {
			t = t.AddDate(-100, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

// clean trims surrounding punctuation and normalizes spacing around the comma,
// so "april 3 ,2020" parses like "April 3, 2020". Month names match case-insensitively.
// "Sept" becomes "Sep", the only abbreviation time.Parse knows for September.
func clean(raw string) string {
	s := strings.Trim(raw, " \t\r\n.,;:()[]")
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		word := strings.TrimRight(tok, ".,")
		if strings.EqualFold(word, "sept") {
			tokens[i] = "Sep" + strings.TrimLeft(tok[len(word):], ".")
		}
	}
	s = strings.Join(tokens, " ")
	s = strings.ReplaceAll(s, " ,", ",")
	if i := strings.Index(s, ","); i >= 0 && i+1 < len(s) && s[i+1] != ' ' {
		s = s[:i+1] + " " + s[i+1:]
	}
	return s
}

package fields

import (
	"sort"
	"strings"
)

// Match is the value a strategy found for a field.
type Match struct {
	Field    Field
	Value    string
	Strategy string
	Kind     Kind
	Offset   int
}

// Matches holds one match per found field. Missing fields have no entry.
type Matches map[Field]Match

// Value returns the field value, or nil when the field was not found.
func (m Matches) Value(f Field) *string {
	match, ok := m[f]
	if !ok {
		return nil
	}
	v := match.Value
	return &v
}

// Extractor applies ordered strategies to text.
type Extractor struct {
	strategies map[Field][]Strategy
}

// NewExtractor returns an extractor with the built-in strategies.
func NewExtractor() *Extractor {
	return NewExtractorWith(DefaultStrategies())
}

// NewExtractorWith returns an extractor over the given strategies. Each list is
// stable-sorted so every labeled strategy precedes every heuristic one while
// keeping the given order inside each kind.
func NewExtractorWith(strategies map[Field][]Strategy) *Extractor {
	sorted := make(map[Field][]Strategy, len(strategies))
	for f, list := range strategies {
		cp := append([]Strategy(nil), list...)
		sort.SliceStable(cp, func(i, j int) bool { return cp[i].Kind < cp[j].Kind })
		sorted[f] = cp
	}
	return &Extractor{strategies: sorted}
}

// Strategies returns the evaluation order for f.
func (e *Extractor) Strategies(f Field) []Strategy {
	return append([]Strategy(nil), e.strategies[f]...)
}

// Extract finds every field it can in text.
func (e *Extractor) Extract(text string) Matches {
	text = Prepare(text)
	out := make(Matches, len(All))
	for _, f := range All {
		if m, ok := e.ExtractField(text, f); ok {
			out[f] = m
		}
	}
	return out
}

// ExtractField runs the strategies for f in order and returns the first hit.
// text is expected to have gone through Prepare.
func (e *Extractor) ExtractField(text string, f Field) (Match, bool) {
	for _, s := range e.strategies[f] {
		if v, off, ok := s.Find(text); ok {
			return Match{Field: f, Value: v, Strategy: s.Name, Kind: s.Kind, Offset: off}, true
		}
	}
	return Match{}, false
}

// Prepare normalizes line endings and horizontal whitespace while keeping line breaks,
// which the line-anchored heuristics rely on.
func Prepare(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.FieldsFunc(line, isBlank), " ")
	}
	return strings.Join(lines, "\n")
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\v' || r == '\u00a0'
}

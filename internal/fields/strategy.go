// Package fields finds patient-identifying fields in extracted document text.
//
// Every field owns an ordered list of strategies. Labeled strategies ("DOB:",
// "Last Name:") always run before heuristic ones (a bare date, a line holding two
// capitalized words). The first strategy that matches anywhere in the text decides
// the field, and within a strategy the earliest valid match wins.
package fields

import (
	"regexp"
)

// Field names a patient field.
type Field string

const (
	FirstName   Field = "first_name"
	LastName    Field = "last_name"
	DateOfBirth Field = "date_of_birth"
	Address     Field = "address"
	Phone       Field = "phone"
)

// All lists the fields in output order.
var All = []Field{FirstName, LastName, DateOfBirth, Address, Phone}

// Kind separates strategies keyed on an explicit label from unlabeled guesses.
type Kind int

const (
	Labeled Kind = iota
	Heuristic
)

func (k Kind) String() string {
	switch k {
	case Labeled:
		return "labeled"
	case Heuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// Strategy is one way of locating a field value.
type Strategy struct {
	Name    string
	Kind    Kind
	Pattern *regexp.Regexp
	// Group is the submatch holding the value.
	Group int
	// Guard, when set, rejects a match by looking at all of its submatches.
	Guard func(groups []string) bool
	// Clean, when set, post-processes the captured value.
	Clean func(string) string
	// Valid, when set, rejects a cleaned value.
	Valid func(string) bool
}

// Find returns the earliest valid value of s in text and its byte offset.
func (s Strategy) Find(text string) (string, int, bool) {
	for _, loc := range s.Pattern.FindAllStringSubmatchIndex(text, -1) {
		if 2*s.Group+1 >= len(loc) || loc[2*s.Group] < 0 {
			continue
		}
		if s.Guard != nil {
			groups := make([]string, len(loc)/2)
			for i := range groups {
				if loc[2*i] >= 0 {
					groups[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			if !s.Guard(groups) {
				continue
			}
		}
		value := text[loc[2*s.Group]:loc[2*s.Group+1]]
		if s.Clean != nil {
			value = s.Clean(value)
		}
		if value == "" {
			continue
		}
		if s.Valid != nil && !s.Valid(value) {
			continue
		}
		return value, loc[2*s.Group], true
	}
	return "", -1, false
}

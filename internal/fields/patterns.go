package fields

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	nameToken = `(\p{L}[\p{L}'\-]*)`
	labelSep  = `\s*[:\-#]\s*`
	monthName = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`
	// datePattern covers ISO, US slash/dash and textual month forms.
	datePattern = `(\d{4}-\d{1,2}-\d{1,2}` +
		`|\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}` +
		`|` + monthName + `\s+\d{1,2}\s*,?\s*\d{4}` +
		`|\d{1,2}\s+` + monthName + `,?\s+\d{4})\b`
	capitalized = `(\p{Lu}\p{Ll}+(?:['\-]\p{Lu}?\p{Ll}+)?)`
	// nameLabel is a bare "Name" label. A qualifier such as "Last" or "Sur" is
	// captured in group 1 so the guard can reject "Last Name:" and "Surname:".
	nameLabel = `(?:\b(First|Given|Last|Family|Sur|Middle|Maiden)[ \t]*|\b)Name`
)

var (
	rePatientName = regexp.MustCompile(`(?i)\bPatient\s*(?:Full\s*)?Name` + labelSep + nameToken + `[ \t]+` + nameToken)
	reFirstName   = regexp.MustCompile(`(?i)\b(?:First|Given)\s*Name` + labelSep + nameToken)
	reLastName    = regexp.MustCompile(`(?i)\b(?:Last|Family|Sur)\s*Name` + labelSep + nameToken)
	reNameComma   = regexp.MustCompile(`(?i)` + nameLabel + labelSep + nameToken + `[ \t]*,[ \t]*` + nameToken)
	reNamePair    = regexp.MustCompile(`(?i)` + nameLabel + labelSep + nameToken + `[ \t]+` + nameToken)
	reNameLine    = regexp.MustCompile(`(?m)^[ \t]*` + capitalized + `[ \t]+` + capitalized + `[ \t]*$`)

	reDOBLabeled = regexp.MustCompile(`(?i)\b(?:DOB|D\.O\.B\.?|Date\s*of\s*Birth|Birth\s*Date|Birthdate)\s*[:\-#]?\s*` + datePattern)
	reDateBare   = regexp.MustCompile(`(?i)\b` + datePattern)

	reAddressLabeled = regexp.MustCompile(`(?i)\b(?:(?:Patient|Home|Mailing|Street)\s+)?Address` + labelSep + `([^\n\r]+)`)
	reStreetLine     = regexp.MustCompile(`(?i)\b(\d{1,6}[ \t]+(?:[\p{L}0-9.'\-]+[ \t]+){0,4}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl|Terrace|Parkway|Pkwy)\b\.?[^\n\r]*)`)
	reAddressStop    = regexp.MustCompile(`(?i)[\s,;]+(?:Phone|Tel|Telephone|Mobile|Cell|Fax|Medical|DOB|D\.O\.B|Date\s*of\s*Birth|Email|Insurance|MRN)\b`)

	rePhoneLabeled = regexp.MustCompile(`(?i)\b(?:Phone|Tel|Telephone|Mobile|Cell)(?:[ \t]*(?:No\.?|Number|#))?[ \t]*[:\-]?[ \t]*(\+?[\d(][\d\-(). \t]{5,}\d)`)
	rePhoneBare    = regexp.MustCompile(`(?:^|[^\d/\-])(\(?\d{3}\)?[ .\-]?\d{3}[ .\-]\d{4})\b`)
)

// stopWords are tokens that look like names but are document vocabulary.
var stopWords = map[string]bool{
	"and": true, "or": true, "of": true, "the": true, "n/a": true, "na": true, "none": true, "unknown": true,
	"name": true, "first": true, "last": true, "middle": true, "patient": true, "address": true,
	"dob": true, "date": true, "birth": true, "phone": true, "tel": true, "email": true, "sex": true, "gender": true,
	"medical": true, "center": true, "clinic": true, "hospital": true, "health": true, "care": true,
	"report": true, "information": true, "record": true, "records": true, "form": true, "lab": true,
	"laboratory": true, "referral": true, "order": true, "orders": true, "insurance": true, "doctor": true,
	"physician": true, "provider": true, "department": true, "dear": true, "sincerely": true, "regards": true,
	"page": true, "summary": true, "history": true, "notes": true, "results": true, "diagnosis": true,
	"prescription": true, "discharge": true, "admission": true, "visit": true, "signature": true,
}

func isName(v string) bool {
	return !stopWords[strings.ToLower(v)]
}

func bothNames(groups []string) bool {
	return len(groups) >= 3 && isName(groups[1]) && isName(groups[2])
}

// bareNamePair accepts a generic "Name:" match only when no qualifier preceded the
// label; the qualified forms belong to their own field.
func bareNamePair(groups []string) bool {
	return len(groups) >= 4 && groups[1] == "" && isName(groups[2]) && isName(groups[3])
}

func trimName(v string) string {
	return strings.Trim(v, "'-")
}

func trimValue(v string) string {
	return strings.Trim(strings.Join(strings.Fields(v), " "), " ,;:-")
}

func cleanAddress(v string) string {
	if loc := reAddressStop.FindStringIndex(v); loc != nil {
		v = v[:loc[0]]
	}
	return trimValue(v)
}

func hasAlnum(v string) bool {
	for _, r := range v {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func validAddress(v string) bool {
	return hasAlnum(v) && !strings.Contains(v, "@")
}

func phoneDigits(v string) bool {
	n := 0
	for _, r := range v {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n >= 7 && n <= 15
}

// DefaultStrategies returns the built-in strategy lists for every field.
func DefaultStrategies() map[Field][]Strategy {
	return map[Field][]Strategy{
		FirstName: {
			{Name: "patient-name", Kind: Labeled, Pattern: rePatientName, Group: 1, Guard: bothNames, Clean: trimName},
			{Name: "first-name-label", Kind: Labeled, Pattern: reFirstName, Group: 1, Clean: trimName, Valid: isName},
			{Name: "name-last-comma-first", Kind: Labeled, Pattern: reNameComma, Group: 3, Guard: bareNamePair, Clean: trimName},
			{Name: "name-first-last", Kind: Labeled, Pattern: reNamePair, Group: 2, Guard: bareNamePair, Clean: trimName},
			{Name: "capitalized-pair", Kind: Heuristic, Pattern: reNameLine, Group: 1, Guard: bothNames},
		},
		LastName: {
			{Name: "patient-name", Kind: Labeled, Pattern: rePatientName, Group: 2, Guard: bothNames, Clean: trimName},
			{Name: "last-name-label", Kind: Labeled, Pattern: reLastName, Group: 1, Clean: trimName, Valid: isName},
			{Name: "name-last-comma-first", Kind: Labeled, Pattern: reNameComma, Group: 2, Guard: bareNamePair, Clean: trimName},
			{Name: "name-first-last", Kind: Labeled, Pattern: reNamePair, Group: 3, Guard: bareNamePair, Clean: trimName},
			{Name: "capitalized-pair", Kind: Heuristic, Pattern: reNameLine, Group: 2, Guard: bothNames},
		},
		DateOfBirth: {
			{Name: "dob-label", Kind: Labeled, Pattern: reDOBLabeled, Group: 1, Clean: trimValue},
			{Name: "bare-date", Kind: Heuristic, Pattern: reDateBare, Group: 1, Clean: trimValue},
		},
		Address: {
			{Name: "address-label", Kind: Labeled, Pattern: reAddressLabeled, Group: 1, Clean: cleanAddress, Valid: validAddress},
			{Name: "street-line", Kind: Heuristic, Pattern: reStreetLine, Group: 1, Clean: cleanAddress, Valid: validAddress},
		},
		Phone: {
			{Name: "phone-label", Kind: Labeled, Pattern: rePhoneLabeled, Group: 1, Clean: trimValue, Valid: phoneDigits},
			{Name: "nanp-shape", Kind: Heuristic, Pattern: rePhoneBare, Group: 1, Clean: trimValue, Valid: phoneDigits},
		},
	}
}

package ocr

import "strings"

// JoinPages concatenates the text of successful pages in page order, separated by a
// blank line. Failed and blank pages contribute nothing.
func JoinPages(results []PageResult) string {
	var parts []string
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if t := strings.TrimSpace(r.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// FailedPages counts the pages that carry an error.
func FailedPages(results []PageResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader canonicalizes header text for comparison: NFKC, lower case,
// every run of non-alphanumeric characters collapsed to a single space, trimmed.
// "  Patient_Name (Full) " -> "patient name full". Never fails; garbage in,
// empty string out.
func NormalizeHeader(header string) string {
	folded := strings.ToLower(norm.NFKC.String(header))

	var b strings.Builder
	b.Grow(len(folded))
	gap := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if gap && b.Len() > 0 {
				b.WriteByte(' ')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}

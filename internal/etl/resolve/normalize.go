// Package resolve turns staging rows into deduplicated operational entities:
// addresses, beneficiaries, associations, crop types, and benefit events.
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold removes diacritics (MARÍA → MARIA).
func Fold(s string) string {
	out, _, err := transform.String(foldAccents, s)
	if err != nil {
		return s
	}
	return out
}

// CleanText trims and collapses internal whitespace.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName standardizes a free-text name for natural-key matching:
// collapse whitespace, uppercase, fold accents.
func NormalizeName(s string) string {
	return Fold(strings.ToUpper(CleanText(s)))
}

// NormalizeCedula strips all whitespace from a national ID. An empty result
// means the record has no usable natural key.
func NormalizeCedula(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

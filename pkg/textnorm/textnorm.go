// Package textnorm provides accent-insensitive text normalization for
// patient-name and medication searches. "Pérez", "Perez" and "perez" all
// normalize to the same canonical form.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks, and recomposes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns the canonical search form of s: accents removed, lower-cased,
// surrounding whitespace trimmed. Invalid UTF-8 falls back to the input.
func Fold(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ContainsFold reports whether needle occurs in haystack after both sides
// are folded. An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

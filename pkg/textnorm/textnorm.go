// Package textnorm normalizes French text for keyword matching and domain
// guessing: lower-casing, accent folding and whitespace collapsing. Keyword
// detection across the pipeline always compares folded forms so that
// "ingénierie" matches "INGENIERIE".
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folder decomposes to NFD, strips combining marks and recomposes. It is
// stateless and safe for concurrent use through transform.String.
var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC) //nolint: gochecknoglobals

// Fold returns s lower-cased, with accents removed and runs of whitespace
// collapsed to a single space.
func Fold(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}

	if out, _, err := transform.String(folder, s); err == nil {
		s = out
	} // else: keep the accented form, matching degrades gracefully

	return strings.Join(strings.Fields(s), " ")
}

// Contains reports whether the folded form of needle occurs in the folded
// form of haystack. An empty needle never matches.
func Contains(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return false
	}

	return strings.Contains(Fold(haystack), n)
}

// AnyKeyword returns the subset of keywords whose folded form occurs in the
// folded text, preserving the order of the keyword list. The text is folded
// once, not per keyword.
func AnyKeyword(text string, keywords []string) []string {
	folded := Fold(text)
	if folded == "" {
		return nil
	}

	var found []string
	for _, k := range keywords {
		if fk := Fold(k); fk != "" && strings.Contains(folded, fk) {
			found = append(found, k)
		}
	}

	return found
}

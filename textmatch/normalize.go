// Package textmatch canonicalizes catalog text and compares it fuzzily.
//
// Everything here operates on runes, so Cyrillic and Latin input are
// measured the same way.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s, strips diacritics through compatibility
// decomposition and replaces every rune that is not a Latin letter, a
// Cyrillic letter or a digit with a single space. The result is trimmed.
//
// Normalize is idempotent and accepts the empty string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// transform chains are stateful, build one per call
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(t, s)
	if err != nil {
		decomposed = s
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	gap := false
	for _, r := range strings.ToLower(decomposed) {
		if !keep(r) {
			gap = true
			continue
		}
		if gap && b.Len() > 0 {
			b.WriteByte(' ')
		}
		gap = false
		b.WriteRune(r)
	}
	return b.String()
}

func keep(r rune) bool {
	if unicode.IsDigit(r) {
		return true
	}
	if !unicode.IsLetter(r) {
		return false
	}
	return unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Cyrillic, r)
}

// NormalizeAll normalizes every element and drops the ones that end up empty.
func NormalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

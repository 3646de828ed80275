// geo/normalize.go
package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName upper-cases s, collapses inner whitespace and strips diacritics,
// so "  Côte d'Ivoire " becomes "COTE D'IVOIRE".
func NormalizeName(s string) string {
	// transform.Chain keeps state, build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(folded), " "))
}

// NormalizeRegion maps user input such as "middle east" or "Middle-East" to a portfolio name.
// The second result is false when no portfolio matches.
func NormalizeRegion(name string) (string, bool) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(NormalizeName(name))
	if ValidRegion(key) {
		return key, true
	}
	return "", false
}

// fuzzyKey reduces a normalized name to letters, digits and single spaces.
// Apostrophes vanish, "&" reads as "AND", a leading or trailing "THE" is dropped and "ST" becomes "SAINT".
func fuzzyKey(s string) string {
	var b strings.Builder
	for _, r := range NormalizeName(s) {
		switch {
		case r == '\'' || r == '’' || r == '`':
		case r == '&':
			b.WriteString(" AND ")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	if len(words) > 1 && words[0] == "THE" {
		words = words[1:]
	}
	if len(words) > 1 && words[len(words)-1] == "THE" {
		words = words[:len(words)-1]
	}
	if len(words) > 1 && words[0] == "ST" {
		words[0] = "SAINT"
	}
	return strings.Join(words, " ")
}

// initialism joins single-letter words ("U S A" -> "USA"); it returns "" for anything else.
func initialism(key string) string {
	words := strings.Fields(key)
	if len(words) < 2 {
		return ""
	}
	for _, w := range words {
		if len(w) != 1 {
			return ""
		}
	}
	return strings.Join(words, "")
}

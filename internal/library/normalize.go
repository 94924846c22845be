// Package library holds the pure text and ranking logic behind the phrase
// library: search normalisation, duplicate fingerprints, category formatting
// and the cascading company/reason/document filters.
package library

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining diacritics. Transformers are stateful, so one is
// built per call.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases s and strips diacritics. It is the form used for search.
func Normalize(s string) string {
	return strings.ToLower(stripMarks(s))
}

// Fingerprint is the duplicate-detection key for a phrase body: normalised,
// punctuation removed, whitespace collapsed.
func Fingerprint(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range Normalize(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}

// TitleCase trims s, collapses inner whitespace and capitalises every word.
func TitleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.BrazilianPortuguese).String(s)
}

// CleanContent trims a phrase body and upper-cases its first letter. The rest
// of the text is left untouched so intentional casing survives.
func CleanContent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

// CategoryOr returns the title-cased category or fallback when it is blank.
func CategoryOr(s, fallback string) string {
	if t := TitleCase(s); t != "" {
		return t
	}
	return fallback
}

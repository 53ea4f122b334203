package normalizers

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// StemToken reduces one token to its English snowball stem. Tokens containing
// digits (sizes, model numbers) and non-latin words are returned unchanged.
func StemToken(token string) string {
	if token == "" || strings.ContainsFunc(token, unicode.IsDigit) {
		return token
	}
	if strings.ContainsFunc(token, func(r rune) bool { return r > unicode.MaxASCII }) {
		return token
	}
	return english.Stem(token, true)
}

// Stem reduces every token to its stem and returns the set of stems.
func Stem(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[StemToken(token)] = struct{}{}
	}
	return set
}

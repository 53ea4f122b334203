// Package normalizers turns free text and URLs into comparable tokens.
package normalizers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("strip_accents", StripAccents)
	Register("alphanumeric", Alphanumeric)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names leave the value unchanged.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents removes combining marks (é -> e). Cyrillic and other scripts are kept as is.
func StripAccents(s string) string {
	result, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return result
}

// Alphanumeric keeps only letters and digits, lowercased
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Slug lowercases and joins alphanumeric runs with "-"
func Slug(s string) string {
	return strings.Join(NormalizeText(s), "-")
}

// NormalizeText splits s into lowercase alphanumeric tokens, in order.
// Empty input yields an empty slice.
func NormalizeText(s string) []string {
	if s == "" {
		return []string{}
	}
	s = StripAccents(strings.ToLower(s))
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if tokens == nil {
		return []string{}
	}
	return tokens
}

var protocolRe = regexp.MustCompile(`^(?i)[a-z][a-z0-9+.-]*://(www\.)?`)

// NormalizeURL strips the protocol and splits the remaining host, path and query into tokens.
func NormalizeURL(u string) []string {
	u = strings.TrimSpace(u)
	if u == "" {
		return []string{}
	}
	u = protocolRe.ReplaceAllString(u, "")
	u = strings.NewReplacer("/", " ", "-", " ", "_", " ").Replace(u)
	return NormalizeText(u)
}

// Bigrams concatenates adjacent tokens ("128", "gb" -> "128gb").
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return []string{}
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+tokens[i+1])
	}
	return out
}

// TokenSet builds a lookup set from one or more token slices
func TokenSet(groups ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, group := range groups {
		for _, token := range group {
			set[token] = struct{}{}
		}
	}
	return set
}

// Domain reduces a host or URL to its bare lowercase host ("https://www.Shop.bg/x" -> "shop.bg").
func Domain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = protocolRe.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

// Scalar renders a decoded JSON scalar as trimmed text. Whole numbers have no
// fractional part; null is empty.
func Scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Package fingerprint derives stable keys from free-text lookup queries.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/Ramsey-B/sage/pkg/normalizers"
)

// Query fingerprints a lookup query. Case, punctuation, accents and word
// order do not change the result, so "Apple iPhone 16, 128GB" and
// "iphone 16 128gb apple" share a fingerprint. Blank text yields "".
func Query(text string) string {
	tokens := normalizers.NormalizeText(text)
	if len(tokens) == 0 {
		return ""
	}
	sort.Strings(tokens)
	return hash(strings.Join(tokens, " "))
}

func hash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

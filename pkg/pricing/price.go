// Package pricing parses listing prices, corrects missing-decimal-point
// outliers and selects one offer per source domain.
package pricing

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParsePrice reads a retail price string such as "1 299,00 лв.", "1,299.00"
// or "227900". Currency symbols, letters and spaces are ignored. When both
// "," and "." appear the last one is the decimal separator; a lone separator
// followed by exactly three digits is a thousands separator.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' {
			return r
		}
		return -1
	}, raw)
	s = strings.Trim(s, ".,")
	if s == "" {
		return decimal.Zero, fmt.Errorf("no digits in price %q", raw)
	}

	lastComma, lastDot := strings.LastIndexByte(s, ','), strings.LastIndexByte(s, '.')
	var decimalSep byte
	switch {
	case lastComma >= 0 && lastDot >= 0:
		decimalSep = ','
		if lastDot > lastComma {
			decimalSep = '.'
		}
	case lastComma >= 0:
		decimalSep = loneSeparator(s, ',')
	case lastDot >= 0:
		decimalSep = loneSeparator(s, '.')
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == decimalSep:
			b.WriteByte('.')
		case c == ',' || c == '.':
		default:
			b.WriteByte(c)
		}
	}
	if decimalSep != 0 && strings.Count(s, string(decimalSep)) > 1 {
		return decimal.Zero, fmt.Errorf("ambiguous separators in price %q", raw)
	}

	amount, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return amount, nil
}

// loneSeparator returns sep when it reads as a decimal point, 0 when it is
// a thousands separator.
func loneSeparator(s string, sep byte) byte {
	if strings.Count(s, string(sep)) > 1 {
		return 0
	}
	if len(s)-strings.IndexByte(s, sep)-1 == 3 {
		return 0
	}
	return sep
}

var outOfStockMarkers = []string{
	"out of stock",
	"out_of_stock",
	"outofstock",
	"sold out",
	"unavailable",
	"not available",
	"изчерпан",
	"няма наличност",
	"не е наличен",
}

// InStock interprets listing availability text. Missing text means available.
func InStock(availability string) bool {
	a := strings.ToLower(strings.TrimSpace(availability))
	switch a {
	case "":
		return true
	case "false", "no", "0":
		return false
	}
	for _, marker := range outOfStockMarkers {
		if strings.Contains(a, marker) {
			return false
		}
	}
	return true
}

var currencyAliases = map[string]string{
	"лв":  "BGN",
	"лв.": "BGN",
	"bgn": "BGN",
	"€":   "EUR",
	"eur": "EUR",
	"$":   "USD",
	"usd": "USD",
}

// NormalizeCurrency maps a currency hint to an ISO code. Empty or unknown
// hints fall back to local.
func NormalizeCurrency(hint, local string) string {
	h := strings.ToLower(strings.TrimSpace(hint))
	if code, ok := currencyAliases[h]; ok {
		return code
	}
	if len(h) == 3 && strings.IndexFunc(h, func(r rune) bool { return r < 'a' || r > 'z' }) == -1 {
		return strings.ToUpper(h)
	}
	return local
}

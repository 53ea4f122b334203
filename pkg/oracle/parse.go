package oracle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// extractBlock returns the outermost span opened by open and closed by close,
// with markdown fences and trailing commas removed.
func extractBlock(text string, open, close byte) (string, bool) {
	text = fenceRe.ReplaceAllString(text, "")
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return trailingCommaRe.ReplaceAllString(text[start:end+1], "$1"), true
}

// DecodeObject reads the first JSON object embedded in free text.
func DecodeObject(text string, v any) error {
	block, ok := extractBlock(text, '{', '}')
	if !ok {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("invalid JSON object: %w", err)
	}
	return nil
}

// DecodeList reads a JSON array of objects embedded in free text. A lone
// object is accepted as a one-element list.
func DecodeList[T any](text string) ([]T, error) {
	arrayStart := strings.IndexByte(text, '[')
	objectStart := strings.IndexByte(text, '{')

	if arrayStart >= 0 && (objectStart < 0 || arrayStart < objectStart) {
		if block, ok := extractBlock(text, '[', ']'); ok {
			var items []T
			if err := json.Unmarshal([]byte(block), &items); err != nil {
				return nil, fmt.Errorf("invalid JSON array: %w", err)
			}
			return items, nil
		}
	}

	var item T
	if err := DecodeObject(text, &item); err != nil {
		return nil, fmt.Errorf("no JSON array in response: %w", err)
	}
	return []T{item}, nil
}

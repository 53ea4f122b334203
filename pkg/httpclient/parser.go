package httpclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxErrorSnippet bounds how much of an error body is echoed back
const maxErrorSnippet = 512

// DecodeJSON unmarshals a successful JSON response into v
func DecodeJSON(resp *Response, v any) error {
	if !resp.IsSuccess() {
		return StatusError(resp)
	}
	if len(resp.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// StatusError describes a non-2xx response, including the start of its body
func StatusError(resp *Response) error {
	snippet := strings.TrimSpace(string(resp.Body))
	if len(snippet) > maxErrorSnippet {
		snippet = snippet[:maxErrorSnippet] + "..."
	}
	if snippet == "" {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
}

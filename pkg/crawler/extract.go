package crawler

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"
)

// DefaultListingPath selects listings from the crawling service's standard response.
const DefaultListingPath = "extracted_data"

// Extractor pulls raw listings out of a crawl response with a JMESPath
// expression. Compiled expressions are cached per expression text.
type Extractor struct {
	cache map[string]*jmespath.JMESPath
	mu    sync.RWMutex
}

func NewExtractor() *Extractor {
	return &Extractor{cache: make(map[string]*jmespath.JMESPath)}
}

// Listings evaluates path against body and decodes the result as listings.
// An empty path uses DefaultListingPath; a path matching nothing yields no listings.
func (e *Extractor) Listings(path string, body []byte) ([]rawListing, error) {
	if path == "" {
		path = DefaultListingPath
	}
	compiled, err := e.compile(path)
	if err != nil {
		return nil, fmt.Errorf("invalid listing path %q: %w", path, err)
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate listing path %q: %w", path, err)
	}
	if result == nil {
		return nil, nil
	}

	// round trip through JSON so the selected objects decode with rawListing's tags
	selected, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var listings []rawListing
	if err := json.Unmarshal(selected, &listings); err != nil {
		return nil, fmt.Errorf("listing path %q did not select a list of listings: %w", path, err)
	}
	return listings, nil
}

func (e *Extractor) compile(path string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	compiled, ok := e.cache[path]
	e.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := jmespath.Compile(path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[path] = compiled
	e.mu.Unlock()
	return compiled, nil
}

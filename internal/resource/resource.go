// Package resource uploads captured page resources to the visual-testing
// service, which caches them by URL for later checks.
package resource

import (
	"net/url"
	"strings"
)

// Resource is one captured asset. Its identity is URL.
type Resource struct {
	URL   string
	Type  string
	Value []byte
}

// BlobData is the metadata of a Resource that travels inside a check request.
type BlobData struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Meta strips a resource down to its metadata.
func (r Resource) Meta() BlobData {
	return BlobData{URL: r.URL, Type: r.Type}
}

// MetaOf maps resources to their metadata, keeping order.
func MetaOf(resources []Resource) []BlobData {
	out := make([]BlobData, 0, len(resources))
	for _, r := range resources {
		out = append(out, r.Meta())
	}
	return out
}

// EncodeURIComponent escapes s the way JavaScript's encodeURIComponent does:
// everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is percent-encoded.
func EncodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	// QueryEscape writes spaces as '+' and escapes a few characters that
	// encodeURIComponent leaves alone.
	return componentFixer.Replace(escaped)
}

var componentFixer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

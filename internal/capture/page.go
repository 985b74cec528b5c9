// Package capture reads page state for a visual check: the document's URL and
// markup, a structural DOM tree, a styled DOM capture and the page resources.
package capture

import (
	"context"
	"encoding/json"
	"errors"
)

// Page is a handle to the document under test.
type Page interface {
	// Location is the document URL.
	Location(ctx context.Context) (string, error)
	// OuterHTML is the serialized document.
	OuterHTML(ctx context.Context) (string, error)
	// CaptureDOM returns an opaque capture of the rendered DOM including the
	// listed computed style properties.
	CaptureDOM(ctx context.Context, props []string) (json.RawMessage, error)
}

// StaticPage is a Page with fixed content, for pages rendered elsewhere.
type StaticPage struct {
	URL  string
	HTML string
	// DOM is returned by CaptureDOM as is. Nil encodes as JSON null.
	DOM json.RawMessage
}

func (p *StaticPage) Location(context.Context) (string, error) {
	if p.URL == "" {
		return "", errors.New("static page has no url")
	}
	return p.URL, nil
}

func (p *StaticPage) OuterHTML(context.Context) (string, error) {
	return p.HTML, nil
}

func (p *StaticPage) CaptureDOM(context.Context, []string) (json.RawMessage, error) {
	if p.DOM == nil {
		return json.RawMessage("null"), nil
	}
	return p.DOM, nil
}

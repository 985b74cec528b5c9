package capture

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/resource"
)

// Snapshot is everything a check needs from the current page.
type Snapshot struct {
	URL          string
	CDT          CDT
	DOMCapture   json.RawMessage
	ResourceURLs []string
	Blobs        []resource.Resource
}

// ResourceExtractor finds a document's external resources.
type ResourceExtractor interface {
	Extract(ctx context.Context, pageURL, doc string) (*Resources, error)
}

// Capturer combines the page reads, CDT building and resource extraction.
type Capturer struct {
	extractor ResourceExtractor
	domProps  []string
	logger    logging.Logger
}

// NewCapturer creates a Capturer reading the given computed style properties.
func NewCapturer(extractor ResourceExtractor, domProps []string, logger logging.Logger) *Capturer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Capturer{
		extractor: extractor,
		domProps:  domProps,
		logger:    logger.With(logging.F("component", "capturer")),
	}
}

// Capture reads page and returns its snapshot. Any failing step fails the
// whole capture.
func (c *Capturer) Capture(ctx context.Context, page Page) (*Snapshot, error) {
	if page == nil {
		return nil, fmt.Errorf("capture: nil page")
	}
	loc, err := page.Location(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := page.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}

	cdt, err := BuildCDT(doc)
	if err != nil {
		return nil, err
	}
	dom, err := page.CaptureDOM(ctx, c.domProps)
	if err != nil {
		return nil, err
	}
	res, err := c.extractor.Extract(ctx, loc, doc)
	if err != nil {
		return nil, fmt.Errorf("extract resources: %w", err)
	}

	c.logger.Debug("captured page",
		logging.F("url", loc),
		logging.F("nodes", len(cdt)),
		logging.F("blobs", len(res.Blobs)))

	return &Snapshot{
		URL:          loc,
		CDT:          cdt,
		DOMCapture:   dom,
		ResourceURLs: res.ResourceURLs,
		Blobs:        res.Blobs,
	}, nil
}

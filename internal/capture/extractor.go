package capture

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/resource"
	"github.com/raysh454/eyes/internal/webclient"
)

// Resources is what the extractor found on a page. Blobs were fetched here;
// ResourceURLs are left for the service to fetch on its own.
type Resources struct {
	ResourceURLs []string
	Blobs        []resource.Resource
}

// Extractor discovers the externally referenced assets of a document
// (images, stylesheets, icons, fonts and other url() references).
type Extractor struct {
	wc          webclient.WebClient
	concurrency int
	logger      logging.Logger
}

// NewExtractor creates an Extractor that fetches same-origin assets through wc.
func NewExtractor(wc webclient.WebClient, concurrency int, logger logging.Logger) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Extractor{
		wc:          wc,
		concurrency: concurrency,
		logger:      logger.With(logging.F("component", "extractor")),
	}
}

var (
	cssURLPattern    = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)
	cssImportPattern = regexp.MustCompile(`@import\s+['"]([^'"]+)['"]`)
)

// Extract walks doc (served from pageURL) and returns its resources. Assets on
// the page's origin are fetched into blobs, and stylesheets among them are
// scanned for further references. Cross-origin assets, and same-origin ones
// that answer with a non-2xx status, are listed in ResourceURLs. Transport
// errors abort the extraction.
func (e *Extractor) Extract(ctx context.Context, pageURL, doc string) (*Resources, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if href, ok := gq.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(href); err == nil {
			base = b
		}
	}

	out := &Resources{}
	seen := map[string]bool{}
	pending := e.queue(base, documentRefs(gq), seen, out)

	for len(pending) > 0 {
		fetched, err := e.fetchAll(ctx, pending)
		if err != nil {
			return nil, err
		}
		pending = nil
		for _, f := range fetched {
			if f.blob == nil {
				out.ResourceURLs = append(out.ResourceURLs, f.url)
				continue
			}
			out.Blobs = append(out.Blobs, *f.blob)
			if isCSS(f.blob.Type) {
				cssBase, err := url.Parse(f.url)
				if err != nil {
					continue
				}
				pending = append(pending, e.queue(cssBase, cssRefs(string(f.blob.Value)), seen, out)...)
			}
		}
	}

	e.logger.Debug("extracted resources",
		logging.F("url", pageURL),
		logging.F("blobs", len(out.Blobs)),
		logging.F("resource_urls", len(out.ResourceURLs)))
	return out, nil
}

// queue resolves refs against base and returns the same-origin URLs that
// still need fetching. Cross-origin URLs go straight to out.ResourceURLs.
func (e *Extractor) queue(base *url.URL, refs []string, seen map[string]bool, out *Resources) []string {
	var fetch []string
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "#") ||
			strings.HasPrefix(ref, "javascript:") {
			continue
		}
		u, err := base.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		u.Fragment = ""
		abs := u.String()
		if seen[abs] {
			continue
		}
		seen[abs] = true
		if sameOrigin(base, u) {
			fetch = append(fetch, abs)
		} else {
			out.ResourceURLs = append(out.ResourceURLs, abs)
		}
	}
	return fetch
}

type fetchResult struct {
	url  string
	blob *resource.Resource
}

// fetchAll downloads urls with bounded concurrency, keeping input order.
func (e *Extractor) fetchAll(ctx context.Context, urls []string) ([]fetchResult, error) {
	results := make([]fetchResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			resp, err := e.wc.Get(gctx, u)
			if err != nil {
				return fmt.Errorf("fetch resource %s: %w", u, err)
			}
			results[i].url = u
			if !resp.OK() {
				e.logger.Warn("resource fetch returned non-2xx, leaving it to the service",
					logging.F("url", u),
					logging.F("status", resp.StatusCode))
				return nil
			}
			results[i].blob = &resource.Resource{
				URL:   u,
				Type:  contentType(u, resp.Headers.Get("Content-Type")),
				Value: resp.Body,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// documentRefs lists every asset reference in the document, in document order.
func documentRefs(doc *goquery.Document) []string {
	var refs []string
	attr := func(sel, name string) {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(name); ok {
				refs = append(refs, v)
			}
		})
	}
	srcset := func(sel string) {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("srcset"); ok {
				refs = append(refs, parseSrcset(v)...)
			}
		})
	}

	doc.Find("link[rel][href]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		for _, r := range strings.Fields(rel) {
			if r == "stylesheet" || r == "icon" || r == "preload" {
				refs = append(refs, s.AttrOr("href", ""))
				return
			}
		}
	})
	attr("img[src]", "src")
	srcset("img[srcset]")
	attr("source[src]", "src")
	srcset("source[srcset]")
	attr("video[poster]", "poster")
	attr(`input[type="image"][src]`, "src")
	attr("image[href]", "href")
	attr("use[href]", "href")

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		refs = append(refs, cssRefs(s.Text())...)
	})
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		refs = append(refs, cssRefs(s.AttrOr("style", ""))...)
	})
	return refs
}

func cssRefs(css string) []string {
	var refs []string
	for _, m := range cssImportPattern.FindAllStringSubmatch(css, -1) {
		refs = append(refs, m[1])
	}
	for _, m := range cssURLPattern.FindAllStringSubmatch(css, -1) {
		refs = append(refs, m[1])
	}
	return refs
}

func parseSrcset(v string) []string {
	var out []string
	for _, candidate := range strings.Split(v, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

func contentType(rawURL, header string) string {
	if header != "" {
		return header
	}
	if u, err := url.Parse(rawURL); err == nil {
		if t := mime.TypeByExtension(path.Ext(u.Path)); t != "" {
			return t
		}
	}
	return "application/octet-stream"
}

func isCSS(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.HasPrefix(contentType, "text/css")
	}
	return mediaType == "text/css"
}

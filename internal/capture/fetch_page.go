package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/webclient"
)

// FetchPage is a Page that loads documents over plain HTTP without running
// scripts. It is the browserless alternative to ChromePage.
type FetchPage struct {
	wc     webclient.WebClient
	logger logging.Logger

	mu   sync.RWMutex
	url  string
	html string
}

func NewFetchPage(wc webclient.WebClient, logger logging.Logger) *FetchPage {
	if logger == nil {
		logger = logging.Nop()
	}
	return &FetchPage{wc: wc, logger: logger.With(logging.F("component", "fetch_page"))}
}

// Navigate loads url. A non-2xx answer is an error and leaves the previous
// document in place.
func (p *FetchPage) Navigate(ctx context.Context, url string) error {
	resp, err := p.wc.Get(ctx, url)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("navigate %s: status %d", url, resp.StatusCode)
	}
	p.mu.Lock()
	p.url = url
	p.html = string(resp.Body)
	p.mu.Unlock()
	p.logger.Debug("navigated", logging.F("url", url), logging.F("bytes", len(resp.Body)))
	return nil
}

func (p *FetchPage) Location(context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.url == "" {
		return "", errors.New("fetch page: nothing loaded")
	}
	return p.url, nil
}

func (p *FetchPage) OuterHTML(context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.html, nil
}

// CaptureDOM has no rendering to capture and returns JSON null.
func (p *FetchPage) CaptureDOM(context.Context, []string) (json.RawMessage, error) {
	return json.RawMessage("null"), nil
}

// Close is a no-op.
func (p *FetchPage) Close() error { return nil }

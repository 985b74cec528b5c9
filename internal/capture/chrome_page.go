package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/domsnapshot"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/eyes/internal/config"
	"github.com/raysh454/eyes/internal/logging"
)

// ChromePage is a Page backed by a chromedp-driven browser tab.
type ChromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	idleAfter   time.Duration
	maxSettle   time.Duration
	logger      logging.Logger
}

// NewChromePage starts a browser and opens a tab in it.
func NewChromePage(cfg config.BrowserConfig, logger logging.Logger) (*ChromePage, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.Width > 0 && cfg.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Width, cfg.Height))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// An empty Run launches the browser so start-up failures surface here.
	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	idleAfter := cfg.IdleAfter
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}
	maxSettle := cfg.MaxSettle
	if maxSettle < idleAfter {
		maxSettle = idleAfter + 10*time.Second
	}
	return &ChromePage{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		idleAfter:   idleAfter,
		maxSettle:   maxSettle,
		logger:      logger.With(logging.F("component", "chrome_page")),
	}, nil
}

// run executes actions on the tab, stopping early when ctx is done.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits until the network has been idle for the
// configured period. Pages that keep a request open (long polls, event
// streams) are given up on after MaxSettle and used as they are.
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	listenCtx, stopListening := context.WithCancel(p.ctx)
	defer stopListening()
	idle := waitNetworkIdle(listenCtx, p.idleAfter)
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	idle.arm()

	settled, err := awaitSettle(ctx, p.ctx, idle.done, p.maxSettle)
	if err != nil {
		return err
	}
	if settled {
		p.logger.Debug("page settled", logging.F("url", url))
	} else {
		p.logger.Warn("network never went idle, capturing anyway",
			logging.F("url", url),
			logging.F("max_settle", p.maxSettle.String()))
	}
	return nil
}

// awaitSettle waits for done, at most limit. It reports false when limit ran
// out first and an error when either context ended.
func awaitSettle(ctx, pageCtx context.Context, done <-chan struct{}, limit time.Duration) (bool, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-done:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-pageCtx.Done():
		return false, pageCtx.Err()
	}
}

func (p *ChromePage) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (p *ChromePage) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

type domCapture struct {
	Documents []*domsnapshot.DocumentSnapshot `json:"documents"`
	Strings   []string                        `json:"strings"`
}

// CaptureDOM takes a DOMSnapshot of the tab with the given computed styles.
func (p *ChromePage) CaptureDOM(ctx context.Context, props []string) (json.RawMessage, error) {
	var snap domCapture
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		snap.Documents, snap.Strings, err = domsnapshot.CaptureSnapshot(props).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("capture dom: %w", err)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode dom capture: %w", err)
	}
	return raw, nil
}

// Close shuts the tab and the browser down.
func (p *ChromePage) Close() error {
	p.cancel()
	p.allocCancel()
	return nil
}

type idleWatcher struct {
	done chan struct{}
	arm  func()
}

// waitNetworkIdle tracks in-flight requests on the tab. After arm is called,
// done closes once no request has been active for idleAfter. The listener
// goes away when ctx is cancelled.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) *idleWatcher {
	w := &idleWatcher{done: make(chan struct{})}
	var active int32
	var armed atomic.Bool
	var mu sync.Mutex
	var once sync.Once
	var timer *time.Timer

	restart := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&active) == 0 {
				once.Do(func() { close(w.done) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&active, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&active, -1) <= 0 && armed.Load() {
				restart()
			}
		}
	})

	w.arm = func() {
		armed.Store(true)
		restart()
	}
	return w
}

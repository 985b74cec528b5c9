// Package eyes implements the visual-check commands: open a session, check
// the current window, close the session, and bracket a run with batch
// start/end.
package eyes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/config"
	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/resource"
	"github.com/raysh454/eyes/internal/transport"
	"github.com/raysh454/eyes/internal/webclient"
)

// Transport sends commands to the service. *transport.Client implements it.
type Transport interface {
	transport.Sender
	PollCommand(ctx context.Context, req *transport.Request, opts transport.PollOptions) (json.RawMessage, error)
}

// Uploader stores a check's resources on the service.
type Uploader interface {
	PutAll(ctx context.Context, resources []resource.Resource) error
}

// Capturer reads the current page for a check.
type Capturer interface {
	Capture(ctx context.Context, page capture.Page) (*capture.Snapshot, error)
}

// TestContext identifies the calling test. The harness passes it explicitly
// to every Open.
type TestContext struct {
	TestName string
	Page     capture.Page
}

// Eyes issues commands against one service endpoint.
type Eyes struct {
	tr           Transport
	uploader     Uploader
	capturer     Capturer
	pollInterval time.Duration
	logger       logging.Logger
}

// New wires Eyes from its collaborators.
func New(tr Transport, uploader Uploader, capturer Capturer, pollInterval time.Duration, logger logging.Logger) *Eyes {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Eyes{
		tr:           tr,
		uploader:     uploader,
		capturer:     capturer,
		pollInterval: pollInterval,
		logger:       logger.With(logging.F("component", "eyes")),
	}
}

// NewFromConfig builds the default stack: a net/http client, the service
// transport, the resource uploader and a goquery-based capturer.
func NewFromConfig(cfg config.Config, logger logging.Logger) *Eyes {
	if logger == nil {
		logger = logging.Nop()
	}
	wc := webclient.NewNetHTTPClient(cfg.HTTPTimeout, logger, nil)
	tr := transport.New(cfg.BaseURL(), wc, logger)
	up := resource.NewUploader(tr, cfg.UploadConcurrency, logger)
	ex := capture.NewExtractor(wc, cfg.FetchConcurrency, logger)
	return New(tr, up, capture.NewCapturer(ex, cfg.DOMProps, logger), cfg.PollInterval, logger)
}

// BatchStart tells the service a run is beginning.
func (e *Eyes) BatchStart(ctx context.Context) error {
	e.logger.Info("Eyes: batch start")
	_, err := e.tr.Send(ctx, &transport.Request{Command: "batchStart"})
	return err
}

// BatchEnd asks the service to finalize the run and polls until it confirms
// or timeout elapses. The result is the service's final batch result.
func (e *Eyes) BatchEnd(ctx context.Context, timeout time.Duration) (json.RawMessage, error) {
	e.logger.Info("Eyes: batch end", logging.F("timeout", timeout.String()))
	req := &transport.Request{
		Command: "batchEnd",
		Data:    map[string]any{"timeout": timeout.Milliseconds()},
	}
	result, err := e.tr.PollCommand(ctx, req, transport.PollOptions{
		Interval: e.pollInterval,
		Timeout:  timeout,
	})
	if err != nil {
		if errors.Is(err, transport.ErrPollTimeout) {
			e.logger.Error("batch end not confirmed in time", logging.Err(err))
			return nil, fmt.Errorf("batchEnd: %w", err)
		}
		return nil, err
	}
	return result, nil
}

// Open starts a session for the test in tc.
func (e *Eyes) Open(ctx context.Context, tc TestContext, opts OpenOptions) (*Session, error) {
	logger := e.logger.With(logging.F("test", tc.TestName))
	logger.Info("Eyes: open")

	if _, err := e.tr.Send(ctx, &transport.Request{Command: "open", Data: opts.payload(tc.TestName)}); err != nil {
		return nil, err
	}
	return &Session{eyes: e, tc: tc, state: stateOpen, logger: logger}, nil
}

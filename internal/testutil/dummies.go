// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O.
package testutil

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/transport"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// InfoMessages returns a copy of the recorded info messages.
func (l *DummyLogger) InfoMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Infos...)
}

// ─── Transport ─────────────────────────────────────────────────────────

// DummyTransport implements eyes.Transport. Every command succeeds with a nil
// result unless listed in Results or Failures. Commands are recorded in the
// order they complete.
type DummyTransport struct {
	// Delay is applied to every resource upload, to shake out ordering bugs.
	UploadDelay time.Duration
	Results     map[string]json.RawMessage
	Failures    map[string]string
	// Pending makes batchEnd report WIP this many times before finishing.
	Pending int

	mu       sync.Mutex
	commands []string
	data     []any
}

func (d *DummyTransport) Send(ctx context.Context, req *transport.Request) (json.RawMessage, error) {
	if d.UploadDelay > 0 && strings.HasPrefix(req.Command, "resource/") {
		select {
		case <-time.After(d.UploadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, req.Command)
	d.data = append(d.data, req.Data)

	if msg, ok := d.Failures[req.Command]; ok {
		return nil, &transport.ServiceError{Command: req.Command, Message: msg}
	}
	if req.Command == "batchEnd" && d.Pending > 0 {
		d.Pending--
		return json.RawMessage(`{"status":"WIP"}`), nil
	}
	return d.Results[req.Command], nil
}

func (d *DummyTransport) PollCommand(ctx context.Context, req *transport.Request, opts transport.PollOptions) (json.RawMessage, error) {
	return transport.Poll(ctx, opts, func(ctx context.Context) (json.RawMessage, bool, error) {
		res, err := d.Send(ctx, req)
		if err != nil {
			return nil, false, err
		}
		return res, !transport.IsPending(res), nil
	})
}

// Commands returns the recorded command names.
func (d *DummyTransport) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// DataFor returns the payload of the n-th (0-based) request with command.
func (d *DummyTransport) DataFor(command string, n int) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.commands {
		if c != command {
			continue
		}
		if n == 0 {
			return d.data[i]
		}
		n--
	}
	return nil
}

// ─── Capturer ──────────────────────────────────────────────────────────

// DummyCapturer implements eyes.Capturer by returning Snapshot (or Err).
type DummyCapturer struct {
	Snapshot *capture.Snapshot
	Err      error

	mu    sync.Mutex
	Calls int
}

func (d *DummyCapturer) Capture(_ context.Context, _ capture.Page) (*capture.Snapshot, error) {
	d.mu.Lock()
	d.Calls++
	d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Snapshot, nil
}

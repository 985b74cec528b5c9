package eyes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/transport"
)

type sessionState int

const (
	stateNew sessionState = iota
	stateOpen
	stateClosed
)

// Session is one open test on the service. Its calls run one at a time.
type Session struct {
	eyes   *Eyes
	tc     TestContext
	logger logging.Logger

	mu    sync.Mutex
	state sessionState
}

// TestName is the name the session was opened for.
func (s *Session) TestName() string { return s.tc.TestName }

func (s *Session) ready() error {
	switch {
	case s.eyes == nil || s.state == stateNew:
		return ErrSessionNotOpen
	case s.state == stateClosed:
		return ErrSessionClosed
	}
	return nil
}

// CheckWindow captures the current page, uploads its resources and sends the
// check. The check request goes out only after every upload has succeeded;
// any failing step aborts the call. Service failures come back unwrapped so
// the error text is the service's own message.
func (s *Session) CheckWindow(ctx context.Context, target CheckTarget) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	var tag string
	if target != nil {
		tag = target.checkSettings().Tag
	}
	s.logger.Info("Eyes: check window", logging.F("tag", tag))

	snap, err := s.eyes.capturer.Capture(ctx, s.tc.Page)
	if err != nil {
		return nil, fmt.Errorf("checkWindow: %w", err)
	}
	if err := s.eyes.uploader.PutAll(ctx, snap.Blobs); err != nil {
		var se *transport.ServiceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, fmt.Errorf("checkWindow: %w", err)
	}

	result, err := s.eyes.tr.Send(ctx, &transport.Request{
		Command: "checkWindow",
		Data:    NewCheckRequest(snap, target),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close ends the session. The session is closed afterwards even when the
// service reports an error.
func (s *Session) Close(ctx context.Context) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.logger.Info("Eyes: close")

	s.state = stateClosed
	return s.eyes.tr.Send(ctx, &transport.Request{Command: "close"})
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateClosed
}

package eyes

import "errors"

var (
	// ErrSessionNotOpen is returned for calls on a session that was never opened.
	ErrSessionNotOpen = errors.New("eyes: session not open")
	// ErrSessionClosed is returned for calls on a session after Close.
	ErrSessionClosed = errors.New("eyes: session already closed")
)

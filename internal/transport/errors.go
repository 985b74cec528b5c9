package transport

import (
	"errors"
	"fmt"
)

// ErrPollTimeout is returned when a poll runs out of time before the service
// reports completion.
var ErrPollTimeout = errors.New("poll timed out")

// ServiceError is a failure the service reported with success=false. Its
// message is exactly the service-provided error text.
type ServiceError struct {
	Command string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// TransportError covers everything that kept a request from producing a
// well-formed envelope: connection failures and malformed responses.
type TransportError struct {
	Command    string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Command, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

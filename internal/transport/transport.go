// Package transport sends commands to the local visual-testing service and
// unwraps its {success, result, error} response envelope.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/webclient"
)

// Sender is the contract the orchestrator and uploader depend on.
type Sender interface {
	Send(ctx context.Context, req *Request) (json.RawMessage, error)
}

// Request is one command. Data is JSON-encoded; Body, when set, is sent as is
// and Data is ignored.
type Request struct {
	Command string
	Data    any
	Body    []byte
	Method  string
	Headers http.Header
}

// Envelope is the service's response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client is bound to one service endpoint for its whole lifetime.
type Client struct {
	baseURL string
	wc      webclient.WebClient
	logger  logging.Logger
}

// New creates a Client for baseURL (for example config.Config.BaseURL()).
func New(baseURL string, wc webclient.WebClient, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wc:      wc,
		logger:  logger.With(logging.F("component", "transport")),
	}
}

// URL returns the endpoint a command is sent to.
func (c *Client) URL(command string) string {
	return c.baseURL + "/eyes/" + command
}

// Send performs one round trip. On success=true it returns the envelope's
// result untouched (nil when the service sent none). On success=false it
// returns a *ServiceError. Anything else is a *TransportError. There is no retry.
func (c *Client) Send(ctx context.Context, req *Request) (json.RawMessage, error) {
	if req == nil || req.Command == "" {
		return nil, errors.New("transport: empty command")
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	headers := req.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}

	body := req.Body
	if body == nil && req.Data != nil {
		encoded, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("transport: encode %s: %w", req.Command, err)
		}
		body = encoded
		if headers.Get("Content-Type") == "" {
			headers.Set("Content-Type", "application/json")
		}
	}

	c.logger.Debug("sending command",
		logging.F("command", req.Command),
		logging.F("method", method),
		logging.F("bytes", len(body)))

	resp, err := c.wc.Do(ctx, &webclient.Request{
		Method:  method,
		URL:     c.URL(req.Command),
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, &TransportError{Command: req.Command, Err: err}
	}

	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		return nil, &TransportError{Command: req.Command, StatusCode: resp.StatusCode, Err: err}
	}
	if !env.Success {
		c.logger.Warn("service reported failure",
			logging.F("command", req.Command),
			logging.F("message", env.Error))
		return nil, &ServiceError{Command: req.Command, Message: env.Error}
	}
	return env.Result, nil
}

func decodeEnvelope(body []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty response body")
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed response envelope: %w", err)
	}
	return &env, nil
}

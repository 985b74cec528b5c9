// Package webclient is the HTTP plumbing shared by the service transport and
// the resource extractor.
package webclient

import "context"

// WebClient executes a single HTTP round trip.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Get is a convenience method for simple GET requests.
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}

package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/transport"
)

// Uploader PUTs resources through a transport.Sender.
type Uploader struct {
	sender      transport.Sender
	concurrency int
	logger      logging.Logger
}

// NewUploader creates an Uploader running at most concurrency uploads at once.
func NewUploader(sender transport.Sender, concurrency int, logger logging.Logger) *Uploader {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Uploader{
		sender:      sender,
		concurrency: concurrency,
		logger:      logger.With(logging.F("component", "uploader")),
	}
}

// Command is the command name a resource is uploaded under.
func Command(resourceURL string) string {
	return "resource/" + EncodeURIComponent(resourceURL)
}

// Put uploads a single resource's raw bytes with its declared content type.
// A rejection from the service is returned as is; other failures are
// wrapped with the resource URL.
func (u *Uploader) Put(ctx context.Context, r Resource) error {
	headers := http.Header{}
	headers.Set("Content-Type", r.Type)

	body := r.Value
	if body == nil {
		body = []byte{}
	}

	_, err := u.sender.Send(ctx, &transport.Request{
		Command: Command(r.URL),
		Method:  http.MethodPut,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		var se *transport.ServiceError
		if errors.As(err, &se) {
			return err
		}
		return fmt.Errorf("put resource %s: %w", r.URL, err)
	}
	u.logger.Debug("uploaded resource",
		logging.F("url", r.URL),
		logging.F("type", r.Type),
		logging.F("bytes", len(r.Value)))
	return nil
}

// PutAll uploads every resource concurrently and returns once all of them
// have settled. The first failure cancels the remaining uploads and is
// returned. Uploads already sent are not rolled back.
func (u *Uploader) PutAll(ctx context.Context, resources []Resource) error {
	if len(resources) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, r := range resources {
		r := r
		g.Go(func() error {
			return u.Put(gctx, r)
		})
	}
	return g.Wait()
}

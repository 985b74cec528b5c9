package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PollOptions bounds a poll. Interval defaults to 500ms.
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

// PollFunc performs one attempt. done=false means the service is not ready yet.
type PollFunc func(ctx context.Context) (result json.RawMessage, done bool, err error)

// Poll calls fn until it reports done, returns an error, or opts.Timeout
// elapses. The timeout also bounds an attempt in flight: fn receives a
// context that expires with it. A timeout yields an error wrapping
// ErrPollTimeout; cancellation of ctx is returned as ctx.Err().
func Poll(ctx context.Context, opts PollOptions, fn PollFunc) (json.RawMessage, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	timedOut := func(attempt int) error {
		return fmt.Errorf("%w after %d attempts (%s)", ErrPollTimeout, attempt, opts.Timeout)
	}

	for attempt := 1; ; attempt++ {
		result, done, err := fn(pollCtx)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return nil, timedOut(attempt)
			}
			return nil, err
		}
		if done {
			return result, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-pollCtx.Done():
			timer.Stop()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, timedOut(attempt)
		case <-timer.C:
		}
	}
}

// pendingStatus is the batchEnd result the service sends while comparisons
// are still running.
const pendingStatus = "WIP"

// IsPending reports whether a result is the service's "not ready" marker,
// {"status":"WIP"}.
func IsPending(result json.RawMessage) bool {
	if len(result) == 0 {
		return false
	}
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(result, &probe); err != nil {
		return false
	}
	return probe.Status == pendingStatus
}

// PollCommand repeats req until its result is no longer pending.
func (c *Client) PollCommand(ctx context.Context, req *Request, opts PollOptions) (json.RawMessage, error) {
	return Poll(ctx, opts, func(ctx context.Context) (json.RawMessage, bool, error) {
		result, err := c.Send(ctx, req)
		if err != nil {
			return nil, false, err
		}
		return result, !IsPending(result), nil
	})
}

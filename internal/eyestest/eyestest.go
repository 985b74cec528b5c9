// Package eyestest hooks eyes into go test: the batch is started before the
// package's tests run and finalized after they finish, and each test opens
// its own session named after itself.
//
//	var harness = eyestest.New(eyes.NewFromConfig(cfg, logger), cfg.BatchTimeout)
//
//	func TestMain(m *testing.M) { os.Exit(harness.Main(m)) }
//
//	func TestHome(t *testing.T) {
//		s := harness.Open(t, page, eyes.OpenOptions{AppName: "shop"})
//		harness.Check(t, s, eyes.Tag("home"))
//	}
package eyestest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/eyes"
)

// TestRunner is satisfied by *testing.M.
type TestRunner interface {
	Run() int
}

// Harness binds an Eyes to a test binary.
type Harness struct {
	eyes         *eyes.Eyes
	batchTimeout time.Duration

	// Stderr receives batch failures. Defaults to os.Stderr.
	Stderr io.Writer
}

// New creates a Harness that waits up to batchTimeout for batchEnd.
func New(e *eyes.Eyes, batchTimeout time.Duration) *Harness {
	return &Harness{eyes: e, batchTimeout: batchTimeout, Stderr: os.Stderr}
}

// Main starts the batch, runs the tests and ends the batch. It returns the
// exit code for os.Exit. If the batch cannot be started no test runs. Batch
// end runs whatever the tests did; its failure makes a passing run fail.
func (h *Harness) Main(m TestRunner) int {
	ctx := context.Background()
	if err := h.eyes.BatchStart(ctx); err != nil {
		fmt.Fprintf(h.Stderr, "eyes: batch start: %v\n", err)
		return 1
	}

	code := m.Run()

	if _, err := h.eyes.BatchEnd(ctx, h.batchTimeout); err != nil {
		fmt.Fprintf(h.Stderr, "eyes: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

// Open opens a session for t on page and closes it when t finishes, unless
// the test closed it already. Failing to open stops the test.
func (h *Harness) Open(t testing.TB, page capture.Page, opts eyes.OpenOptions) *eyes.Session {
	t.Helper()
	s, err := h.eyes.Open(context.Background(), eyes.TestContext{TestName: t.Name(), Page: page}, opts)
	if err != nil {
		t.Fatalf("eyes open: %v", err)
	}
	t.Cleanup(func() {
		if s.Closed() {
			return
		}
		if _, err := s.Close(context.Background()); err != nil {
			t.Errorf("eyes close: %v", err)
		}
	})
	return s
}

// Check runs a window check and fails t on error.
func (h *Harness) Check(t testing.TB, s *eyes.Session, target eyes.CheckTarget) json.RawMessage {
	t.Helper()
	res, err := s.CheckWindow(context.Background(), target)
	if err != nil {
		t.Fatalf("eyes check window: %v", err)
	}
	return res
}

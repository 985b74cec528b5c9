// Package runner executes YAML scenarios of browser tests that issue eyes
// commands, bracketing the whole run with batch start and batch end.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/eyes"
	"github.com/raysh454/eyes/internal/logging"
)

// Browser is the page the tests drive.
type Browser interface {
	capture.Page
	Navigate(ctx context.Context, url string) error
}

// Options tune a Runner.
type Options struct {
	// BatchTimeout bounds the batch end poll.
	BatchTimeout time.Duration
	// Commands overrides DefaultCommands when non-nil.
	Commands Commands
}

// Runner runs scenarios against one service and one browser.
type Runner struct {
	eyes     *eyes.Eyes
	browser  Browser
	commands Commands
	timeout  time.Duration
	logger   logging.Logger
}

// New creates a Runner driving browser. A nil opts.Commands means DefaultCommands.
func New(e *eyes.Eyes, browser Browser, opts Options, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	cmds := opts.Commands
	if cmds == nil {
		cmds = DefaultCommands()
	}
	return &Runner{
		eyes:     e,
		browser:  browser,
		commands: cmds,
		timeout:  opts.BatchTimeout,
		logger:   logger.With(logging.F("component", "runner")),
	}
}

// Run executes sc. The before hook (batch start) runs first; if it fails no
// test runs and the error is returned. Tests then run in order, a failing
// test does not stop the next one. The after hook (batch end) always runs
// once the before hook succeeded, and its failure is reported in
// Results.TeardownErr.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Results, error) {
	r.logger.Info("starting scenario", logging.F("scenario", sc.Name), logging.F("tests", len(sc.Tests)))

	if err := r.eyes.BatchStart(ctx); err != nil {
		r.logger.Error("before hook failed", logging.Err(err))
		return nil, fmt.Errorf("before hook: %w", err)
	}

	res := &Results{}
	for _, tc := range sc.Tests {
		tr := r.runTest(ctx, tc)
		res.add(tr)
	}

	// The batch must be finalized even if the run was cancelled.
	teardownCtx := ctx
	if ctx.Err() != nil {
		teardownCtx = context.WithoutCancel(ctx)
	}
	batch, err := r.eyes.BatchEnd(teardownCtx, r.timeout)
	if err != nil {
		r.logger.Error("after hook failed", logging.Err(err))
		res.TeardownErr = err
	}
	res.Batch = batch

	r.logger.Info("scenario finished",
		logging.F("scenario", sc.Name),
		logging.F("failures", len(res.Failures)))
	return res, nil
}

func (r *Runner) runTest(ctx context.Context, tc TestCase) TestResult {
	start := time.Now()
	logger := r.logger.With(logging.F("test", tc.Name))
	st := &State{
		Eyes: r.eyes,
		Test: eyes.TestContext{TestName: tc.Name, Page: r.browser},
	}

	err := r.runSteps(ctx, tc, st)
	if err != nil {
		logger.Warn("test failed", logging.Err(err))
	}
	if st.Session != nil && !st.Session.Closed() {
		logger.Warn("test ended with an open session")
	}

	return TestResult{
		Name:     tc.Name,
		Err:      err,
		Duration: time.Since(start),
		Steps:    st.Steps,
	}
}

func (r *Runner) runSteps(ctx context.Context, tc TestCase, st *State) error {
	if tc.URL != "" {
		if err := r.browser.Navigate(ctx, tc.URL); err != nil {
			return fmt.Errorf("navigate %s: %w", tc.URL, err)
		}
	}
	for i := range tc.Steps {
		step := &tc.Steps[i]
		fn, err := r.commands.Lookup(step.Command)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := fn(ctx, st, &step.Args); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Command, err)
		}
	}
	return nil
}

package runner

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	testPassedColor = color.New(color.FgGreen)
	testFailedColor = color.New(color.FgRed)
	testErrorColor  = color.New(color.FgYellow)
	batchInfoColor  = color.New(color.Faint, color.FgBlue)
)

// TestResult is the outcome of one test.
type TestResult struct {
	Name     string
	Err      error
	Duration time.Duration
	Steps    []StepResult
}

// Failed reports whether the test failed.
func (t TestResult) Failed() bool { return t.Err != nil }

// Results collects a scenario's outcomes.
type Results struct {
	Tests    []TestResult
	Failures []TestResult

	// Batch is the service's final batch result.
	Batch       json.RawMessage
	TeardownErr error
}

func (r *Results) add(t TestResult) {
	r.Tests = append(r.Tests, t)
	if t.Failed() {
		r.Failures = append(r.Failures, t)
	}
}

// OK is true when every test passed and the batch was finalized.
func (r *Results) OK() bool {
	return len(r.Failures) == 0 && r.TeardownErr == nil
}

// Print writes a colored summary of r to w.
func (r *Results) Print(w io.Writer) {
	for _, t := range r.Tests {
		if !t.Failed() {
			_, _ = testPassedColor.Fprintf(w, "  ok    %s (%s)\n", t.Name, t.Duration.Round(time.Millisecond))
			continue
		}
		_, _ = testFailedColor.Fprintf(w, "  FAIL  %s (%s)\n", t.Name, t.Duration.Round(time.Millisecond))
		for _, line := range strings.Split(t.Err.Error(), "\n") {
			_, _ = testErrorColor.Fprintf(w, "        %s\n", line)
		}
	}

	if len(r.Batch) > 0 {
		_, _ = batchInfoColor.Fprintf(w, "batch: %s\n", r.Batch)
	}
	if r.TeardownErr != nil {
		_, _ = testFailedColor.Fprintf(w, "batch end failed: %v\n", r.TeardownErr)
	}

	if r.OK() {
		_, _ = testPassedColor.Fprintf(w, "All %d tests passed\n", len(r.Tests))
		return
	}
	_, _ = testFailedColor.Fprintf(w, "FAILED TESTS (%d/%d):\n", len(r.Failures), len(r.Tests))
	for _, f := range r.Failures {
		_, _ = testFailedColor.Fprintf(w, "  * %s\n", f.Name)
	}
}

// LastResult returns the service result of the last step that produced one.
func (t TestResult) LastResult() json.RawMessage {
	if len(t.Steps) == 0 {
		return nil
	}
	return t.Steps[len(t.Steps)-1].Result
}

package mockservice

import "time"

// Step statuses.
const (
	StepNew       = "new"
	StepMatched   = "matched"
	StepDifferent = "different"
)

// Test statuses.
const (
	TestPassed     = "Passed"
	TestUnresolved = "Unresolved"
	TestNew        = "New"
)

// StepResult is the checkWindow result.
type StepResult struct {
	AsExpected bool    `json:"asExpected"`
	Status     string  `json:"status"`
	StepIndex  int     `json:"stepIndex"`
	Tag        string  `json:"tag"`
	Diff       []Chunk `json:"diff,omitempty"`
}

// TestSummary is the close result and one entry of a batch summary.
type TestSummary struct {
	SessionID string       `json:"sessionId"`
	AppName   string       `json:"appName"`
	TestName  string       `json:"testName"`
	Status    string       `json:"status"`
	Steps     []StepResult `json:"steps"`
	Duration  string       `json:"duration"`
}

// BatchSummary is the final batchEnd result.
type BatchSummary struct {
	BatchID    string        `json:"batchId"`
	Tests      []TestSummary `json:"tests"`
	Passed     int           `json:"passed"`
	Unresolved int           `json:"unresolved"`
	New        int           `json:"new"`
}

// RecordedRequest is a request as the service received it.
type RecordedRequest struct {
	Method      string
	Command     string
	ContentType string
	Body        []byte
	At          time.Time
}

type batch struct {
	id     string
	name   string
	tests  []TestSummary
	ending bool
	polls  int
}

type session struct {
	id        string
	appName   string
	testName  string
	steps     []StepResult
	startedAt time.Time
}

func (s *session) summary() TestSummary {
	status := TestPassed
	isNew := len(s.steps) > 0
	for _, st := range s.steps {
		if st.Status == StepDifferent {
			status = TestUnresolved
		}
		if st.Status != StepNew {
			isNew = false
		}
	}
	if status == TestPassed && isNew {
		status = TestNew
	}
	steps := s.steps
	if steps == nil {
		steps = []StepResult{}
	}
	return TestSummary{
		SessionID: s.id,
		AppName:   s.appName,
		TestName:  s.testName,
		Status:    status,
		Steps:     steps,
		Duration:  time.Since(s.startedAt).Round(time.Millisecond).String(),
	}
}

func (b *batch) summary() BatchSummary {
	sum := BatchSummary{BatchID: b.id, Tests: b.tests}
	if sum.Tests == nil {
		sum.Tests = []TestSummary{}
	}
	for _, t := range b.tests {
		switch t.Status {
		case TestPassed:
			sum.Passed++
		case TestUnresolved:
			sum.Unresolved++
		case TestNew:
			sum.New++
		}
	}
	return sum
}

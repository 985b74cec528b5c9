package eyestest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/eyes"
	"github.com/raysh454/eyes/internal/resource"
	"github.com/raysh454/eyes/internal/testutil"
)

type fakeM struct {
	code int
	ran  bool
}

func (m *fakeM) Run() int {
	m.ran = true
	return m.code
}

func newHarness(tr *testutil.DummyTransport, timeout time.Duration) (*Harness, *bytes.Buffer) {
	logger := &testutil.DummyLogger{}
	snap := &capture.Snapshot{URL: "http://app.test/"}
	e := eyes.New(tr, resource.NewUploader(tr, 1, logger), &testutil.DummyCapturer{Snapshot: snap}, time.Millisecond, logger)
	h := New(e, timeout)
	var stderr bytes.Buffer
	h.Stderr = &stderr
	return h, &stderr
}

// ─── Main ──────────────────────────────────────────────────────────────

func TestHarnessMain_BracketsTests(t *testing.T) {
	t.Parallel()
	tr := &testutil.DummyTransport{Pending: 1}
	h, _ := newHarness(tr, time.Second)
	m := &fakeM{}

	assert.Equal(t, 0, h.Main(m))
	assert.True(t, m.ran)
	assert.Equal(t, []string{"batchStart", "batchEnd", "batchEnd"}, tr.Commands())
}

func TestHarnessMain_BatchStartFailureSkipsTests(t *testing.T) {
	t.Parallel()
	tr := &testutil.DummyTransport{Failures: map[string]string{"batchStart": "refused"}}
	h, stderr := newHarness(tr, time.Second)
	m := &fakeM{}

	assert.Equal(t, 1, h.Main(m))
	assert.False(t, m.ran)
	assert.Contains(t, stderr.String(), "refused")
}

func TestHarnessMain_BatchEndRunsAfterFailingTests(t *testing.T) {
	t.Parallel()
	tr := &testutil.DummyTransport{}
	h, _ := newHarness(tr, time.Second)

	assert.Equal(t, 3, h.Main(&fakeM{code: 3}))
	assert.Equal(t, []string{"batchStart", "batchEnd"}, tr.Commands())
}

func TestHarnessMain_BatchEndTimeoutFailsPassingRun(t *testing.T) {
	t.Parallel()
	tr := &testutil.DummyTransport{Pending: 1 << 20}
	h, stderr := newHarness(tr, 20*time.Millisecond)

	assert.Equal(t, 1, h.Main(&fakeM{}))
	assert.Contains(t, stderr.String(), "batchEnd")
}

// ─── Open ──────────────────────────────────────────────────────────────

func TestOpen_NamesSessionAfterTestAndClosesOnCleanup(t *testing.T) {
	t.Parallel()
	tr := &testutil.DummyTransport{}
	h, _ := newHarness(tr, time.Second)

	var session *eyes.Session
	t.Run("home page", func(t *testing.T) {
		session = h.Open(t, &capture.StaticPage{URL: "http://app.test/"}, eyes.OpenOptions{})
		h.Check(t, session, eyes.Tag("home"))
		assert.False(t, session.Closed())
	})

	require.NotNil(t, session)
	assert.True(t, session.Closed())
	assert.Equal(t, []string{"open", "checkWindow", "close"}, tr.Commands())
	assert.Equal(t, map[string]any{"testName": "TestOpen_NamesSessionAfterTestAndClosesOnCleanup/home_page"}, tr.DataFor("open", 0))
}

func TestOpen_ExplicitCloseNotRepeated(t *testing.T) {
	t.Parallel()
	tr := &testutil.DummyTransport{}
	h, _ := newHarness(tr, time.Second)

	t.Run("closes itself", func(t *testing.T) {
		s := h.Open(t, &capture.StaticPage{URL: "http://app.test/"}, eyes.OpenOptions{})
		_, err := s.Close(t.Context())
		require.NoError(t, err)
	})

	assert.Equal(t, []string{"open", "close"}, tr.Commands())
}

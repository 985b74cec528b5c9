package mockservice

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/config"
	"github.com/raysh454/eyes/internal/eyes"
	"github.com/raysh454/eyes/internal/testutil"
	"github.com/raysh454/eyes/internal/transport"
)

// ─── Helpers ───────────────────────────────────────────────────────────

const appIndex = `<!DOCTYPE html>
<html>
<head><link rel="stylesheet" href="/style.css"></head>
<body><h1>Storefront</h1><img src="/logo.png"></body>
</html>`

var appAssets = map[string]struct {
	contentType string
	body        string
}{
	"/style.css": {"text/css", "body { background: url(bg.png) }"},
	"/logo.png":  {"image/png", "\x89PNG logo"},
	"/bg.png":    {"image/png", "\x89PNG bg"},
}

func newAppServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		asset, ok := appAssets[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", asset.contentType)
		_, _ = w.Write([]byte(asset.body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	svc  *Service
	eyes *eyes.Eyes
	page *capture.StaticPage
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	svc := New(cfg, nil, &testutil.DummyLogger{})
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ecfg := config.DefaultConfig()
	ecfg.Host = host
	ecfg.Port = port
	ecfg.PollInterval = 5 * time.Millisecond

	app := newAppServer(t)
	return &fixture{
		svc:  svc,
		eyes: eyes.NewFromConfig(ecfg, &testutil.DummyLogger{}),
		page: &capture.StaticPage{URL: app.URL + "/", HTML: appIndex},
	}
}

func (f *fixture) open(t *testing.T, name string) *eyes.Session {
	t.Helper()
	s, err := f.eyes.Open(context.Background(), eyes.TestContext{TestName: name, Page: f.page}, eyes.OpenOptions{AppName: "shop"})
	require.NoError(t, err)
	return s
}

// ─── End to end ────────────────────────────────────────────────────────

func TestService_OpenCheckCheckClose(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	s := f.open(t, "checkout")
	_, err := s.CheckWindow(ctx, eyes.Tag("step1"))
	require.NoError(t, err)
	_, err = s.CheckWindow(ctx, eyes.CheckSettings{
		Tag:    "step2",
		Ignore: []eyes.Region{{X: 1, Y: 1, Width: 2, Height: 2}},
	})
	require.NoError(t, err)
	_, err = s.Close(ctx)
	require.NoError(t, err)

	var commands []string
	uploadsBefore := map[int]int{}
	uploads := 0
	var checkBodies [][]byte
	for _, req := range f.svc.Requests() {
		if strings.HasPrefix(req.Command, "resource/") {
			uploads++
			continue
		}
		if req.Command == "checkWindow" {
			uploadsBefore[len(checkBodies)] = uploads
			checkBodies = append(checkBodies, req.Body)
			uploads = 0
		}
		commands = append(commands, req.Command)
	}

	assert.Equal(t, []string{"open", "checkWindow", "checkWindow", "close"}, commands)
	assert.Equal(t, map[int]int{0: 3, 1: 3}, uploadsBefore)

	var second map[string]any
	require.NoError(t, json.Unmarshal(checkBodies[1], &second))
	assert.Equal(t, "step2", second["tag"])
	assert.Equal(t, []any{map[string]any{
		"x": float64(1), "y": float64(1), "width": float64(2), "height": float64(2),
	}}, second["ignore"])
	assert.Len(t, second["blobData"], 3)
}

func TestService_UploadsAreByteExact(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	s := f.open(t, "bytes")
	_, err := s.CheckWindow(ctx, eyes.Tag("one"))
	require.NoError(t, err)

	for path, asset := range appAssets {
		res, err := f.svc.store.GetResource(ctx, strings.TrimSuffix(f.page.URL, "/")+path)
		require.NoError(t, err, path)
		assert.Equal(t, asset.body, string(res.Data))
		assert.Equal(t, asset.contentType, res.ContentType)
	}

	for _, req := range f.svc.Requests() {
		if strings.HasPrefix(req.Command, "resource/") {
			assert.Equal(t, "PUT", req.Method)
			assert.NotContains(t, strings.TrimPrefix(req.Command, "resource/"), "/")
		}
	}
}

func TestService_BaselineComparison(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	check := func(html string) StepResult {
		f.page.HTML = html
		s := f.open(t, "home")
		raw, err := s.CheckWindow(ctx, eyes.Tag("main"))
		require.NoError(t, err)
		_, err = s.Close(ctx)
		require.NoError(t, err)
		var step StepResult
		require.NoError(t, json.Unmarshal(raw, &step))
		return step
	}

	first := check(appIndex)
	assert.Equal(t, StepNew, first.Status)
	assert.True(t, first.AsExpected)

	same := check(appIndex)
	assert.Equal(t, StepMatched, same.Status)

	changed := check(strings.Replace(appIndex, "Storefront", "Clearance", 1))
	assert.Equal(t, StepDifferent, changed.Status)
	assert.False(t, changed.AsExpected)
	assert.NotEmpty(t, changed.Diff)
}

func TestService_BatchEndReportsWIPThenSummary(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{PendingPolls: 2})
	ctx := context.Background()

	require.NoError(t, f.eyes.BatchStart(ctx))
	s := f.open(t, "only test")
	_, err := s.CheckWindow(ctx, nil)
	require.NoError(t, err)
	_, err = s.Close(ctx)
	require.NoError(t, err)

	raw, err := f.eyes.BatchEnd(ctx, 5*time.Second)
	require.NoError(t, err)

	var sum BatchSummary
	require.NoError(t, json.Unmarshal(raw, &sum))
	require.Len(t, sum.Tests, 1)
	assert.Equal(t, "only test", sum.Tests[0].TestName)
	assert.Equal(t, TestNew, sum.Tests[0].Status)
	assert.Equal(t, "step 1", sum.Tests[0].Steps[0].Tag)
	assert.Equal(t, 1, sum.New)

	ends := 0
	for _, req := range f.svc.Requests() {
		if req.Command == "batchEnd" {
			ends++
			assert.JSONEq(t, `{"timeout":5000}`, string(req.Body))
		}
	}
	assert.Equal(t, 3, ends)
}

func TestService_BatchEndTimesOutWhileWIP(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{PendingPolls: 1 << 20})
	ctx := context.Background()

	require.NoError(t, f.eyes.BatchStart(ctx))
	_, err := f.eyes.BatchEnd(ctx, 30*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrPollTimeout)
}

// ─── Failures ──────────────────────────────────────────────────────────

func TestService_InjectedFailureMessageReachesCaller(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{Failures: map[string]string{"open": "quota exceeded"}})

	_, err := f.eyes.Open(context.Background(), eyes.TestContext{TestName: "x", Page: f.page}, eyes.OpenOptions{})
	require.Error(t, err)
	assert.Equal(t, "quota exceeded", err.Error())

	f.svc.SetFailure("open", "")
	f.open(t, "x")
}

func TestService_UploadFailureStopsCheck(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())
	f.svc.SetFailure("resource", "disk full")

	s := f.open(t, "upload")
	_, err := s.CheckWindow(context.Background(), eyes.Tag("t"))
	require.Error(t, err)
	assert.Equal(t, "disk full", err.Error())

	for _, req := range f.svc.Requests() {
		assert.NotEqual(t, "checkWindow", req.Command)
	}
}

func TestService_ProtocolErrors(t *testing.T) {
	t.Parallel()
	svc := New(DefaultConfig(), nil, &testutil.DummyLogger{})

	tests := []struct {
		name    string
		command string
		body    string
		want    string
	}{
		{"check without open", "checkWindow", `{"url":"http://x/","cdt":[]}`, "no test is open"},
		{"close without open", "close", ``, "no test is open"},
		{"batch end without start", "batchEnd", `{"timeout":1}`, "no batch in progress"},
		{"open without name", "open", `{}`, "testName is required"},
		{"unknown command", "frobnicate", `{}`, `unknown command "frobnicate"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/eyes/"+tt.command, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			svc.ServeHTTP(rec, req)

			var env transport.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, tt.want, env.Error)
		})
	}
}

func TestService_CheckRejectsMissingResource(t *testing.T) {
	t.Parallel()
	svc := New(DefaultConfig(), nil, &testutil.DummyLogger{})

	post := func(command, body string) transport.Envelope {
		rec := httptest.NewRecorder()
		svc.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/eyes/"+command, strings.NewReader(body)))
		var env transport.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		return env
	}

	require.True(t, post("open", `{"testName":"t"}`).Success)
	env := post("checkWindow", `{"url":"http://x/","cdt":[],"blobData":[{"url":"http://x/a.css","type":"text/css"}]}`)
	assert.False(t, env.Success)
	assert.Equal(t, "resource not uploaded: http://x/a.css", env.Error)
}

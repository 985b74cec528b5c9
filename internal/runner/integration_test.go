package runner

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
	"github.com/raysh454/eyes/internal/demoserver"
	"github.com/raysh454/eyes/internal/eyes"
	"github.com/raysh454/eyes/internal/mockservice"
	"github.com/raysh454/eyes/internal/testutil"
	"github.com/raysh454/eyes/internal/webclient"
)

func storefrontScenario(base string) string {
	return strings.ReplaceAll(`
name: storefront
tests:
  - name: home
    url: BASE/
    steps:
      - command: eyesOpen
        args: {appName: demo-store}
      - command: eyesCheckWindow
        args: landing
      - command: eyesClose
  - name: cart
    url: BASE/cart
    steps:
      - command: eyesOpen
        args: {appName: demo-store}
      - command: eyesCheckWindow
      - command: eyesClose
`, "BASE", base)
}

func TestIntegration_StorefrontAgainstMockService(t *testing.T) {
	t.Parallel()

	demo := demoserver.NewDemoServer(demoserver.DefaultConfig())
	site := httptest.NewServer(demo.Handler())
	defer site.Close()

	svc := mockservice.New(mockservice.Config{PendingPolls: 1}, nil, &testutil.DummyLogger{})
	service := httptest.NewServer(svc)
	defer service.Close()

	u, err := url.Parse(service.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Host, cfg.Port = host, port
	cfg.PollInterval = 5 * time.Millisecond
	cfg.BatchTimeout = 5 * time.Second

	logger := &testutil.DummyLogger{}
	page := capture.NewFetchPage(webclient.NewNetHTTPClient(5*time.Second, logger, nil), logger)
	r := New(eyes.NewFromConfig(cfg, logger), page, Options{BatchTimeout: cfg.BatchTimeout}, logger)
	sc := mustParse(t, storefrontScenario(site.URL))

	run := func() mockservice.BatchSummary {
		res, err := r.Run(context.Background(), sc)
		require.NoError(t, err)
		require.True(t, res.OK(), "failures: %v", res.Failures)
		var sum mockservice.BatchSummary
		require.NoError(t, json.Unmarshal(res.Batch, &sum))
		return sum
	}

	first := run()
	assert.Equal(t, 2, first.New)

	second := run()
	assert.Equal(t, 2, second.Passed)

	resp, err := http.Post(site.URL+"/demo/bump-all", "", nil)
	require.NoError(t, err)
	resp.Body.Close()

	third := run()
	assert.Equal(t, 1, third.Unresolved)
	assert.Equal(t, 1, third.Passed)
	for _, tc := range third.Tests {
		if tc.TestName == "home" {
			assert.Equal(t, mockservice.TestUnresolved, tc.Status)
			assert.Equal(t, "landing", tc.Steps[0].Tag)
		}
	}

	uploads := 0
	for _, req := range svc.Requests() {
		if strings.HasPrefix(req.Command, "resource/") {
			uploads++
		}
	}
	// home: site.css, logo.svg, fonts.css, header-bg.svg; cart: the same
	// minus the icon link, which the img tag still references.
	assert.Equal(t, 3*(4+4), uploads)
}

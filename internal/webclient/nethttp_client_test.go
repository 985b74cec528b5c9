package webclient_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/eyes/internal/logging"
	"github.com/raysh454/eyes/internal/webclient"
)

func newClient(t *testing.T, httpClient *http.Client) *webclient.NetHTTPClient {
	t.Helper()
	c := webclient.NewNetHTTPClient(0, logging.Nop(), httpClient)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ─── Do: real HTTP round-trip via httptest ──────────────────────────────

func TestNetHTTPClient_Do_GET_ReturnsBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "hello")
		_, _ = io.WriteString(w, "response body")
	}))
	defer ts.Close()

	resp, err := newClient(t, ts.Client()).Do(context.Background(), &webclient.Request{
		Method: "get",
		URL:    ts.URL + "/test",
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "response body", string(resp.Body))
	assert.Equal(t, "hello", resp.Headers.Get("X-Custom"))
}

func TestNetHTTPClient_Do_PUT_SendsBinaryBodyAndHeaders(t *testing.T) {
	t.Parallel()
	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	var gotBody []byte
	var gotMethod, gotType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	hdrs := http.Header{}
	hdrs.Set("Content-Type", "image/png")
	resp, err := newClient(t, ts.Client()).Do(context.Background(), &webclient.Request{
		Method:  http.MethodPut,
		URL:     ts.URL,
		Headers: hdrs,
		Body:    payload,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "image/png", gotType)
	assert.True(t, bytes.Equal(payload, gotBody))
}

func TestNetHTTPClient_Do_PropagatesStatusCode(t *testing.T) {
	t.Parallel()
	for _, code := range []int{200, 404, 500} {
		code := code
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
			}))
			defer ts.Close()

			resp, err := newClient(t, ts.Client()).Get(context.Background(), ts.URL)
			require.NoError(t, err)
			assert.Equal(t, code, resp.StatusCode)
			assert.Equal(t, code == 200, resp.OK())
		})
	}
}

func TestNetHTTPClient_Do_NilRequest_ReturnsError(t *testing.T) {
	t.Parallel()
	_, err := newClient(t, nil).Do(context.Background(), nil)
	require.Error(t, err)
}

func TestNetHTTPClient_Do_ConnectionRefused_ReturnsError(t *testing.T) {
	t.Parallel()
	c := newClient(t, &http.Client{Timeout: time.Second})
	_, err := c.Get(context.Background(), "http://127.0.0.1:1")
	require.Error(t, err)
}

func TestNetHTTPClient_Do_ContextCanceled_ReturnsError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, ts.Client()).Get(ctx, ts.URL)
	require.Error(t, err)
}

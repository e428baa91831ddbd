package prober

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProber(cfg Config) *Prober {
	return New(NewHTTPClient(cfg), cfg)
}

func TestProbeClassification(t *testing.T) {
	cases := []struct {
		code   int
		up     bool
		strict bool
	}{
		{200, true, true},
		{204, true, true},
		{301, true, false},
		{404, true, false},
		{499, true, false},
		{500, false, false},
		{503, false, false},
	}
	for _, tc := range cases {
		// A 3xx without Location is returned as-is instead of followed.
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.code)
		}))
		cfg := Config{}
		res := newTestProber(cfg).Probe(context.Background(), srv.URL, time.Second)
		assert.Equal(t, tc.up, res.Up, "default classifier, code %d", tc.code)

		strict := newTestProber(cfg).WithClassifier(StrictClassifier).Probe(context.Background(), srv.URL, time.Second)
		assert.Equal(t, tc.strict, strict.Up, "strict classifier, code %d", tc.code)
		srv.Close()
	}
}

func TestProbeFollowsRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, srv.URL+"/new", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := newTestProber(Config{}).Probe(context.Background(), srv.URL+"/old", time.Second)
	assert.True(t, res.Up)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestProbeTooManyRedirectsIsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer srv.Close()

	res := newTestProber(Config{MaxRedirects: 2}).Probe(context.Background(), srv.URL, time.Second)
	assert.False(t, res.Up)
	assert.ErrorIs(t, res.Err, errTooManyRedirects)
}

func TestProbeTimeoutIsDownWithLatency(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res := newTestProber(Config{}).Probe(context.Background(), srv.URL, 100*time.Millisecond)
	assert.False(t, res.Up)
	assert.Zero(t, res.StatusCode)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, context.DeadlineExceeded) || strings.Contains(res.Err.Error(), "deadline"))
	assert.GreaterOrEqual(t, res.LatencyMs, int64(90))
}

func TestProbeConnectionRefusedIsDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := newTestProber(Config{}).Probe(context.Background(), url, time.Second)
	assert.False(t, res.Up)
	assert.Error(t, res.Err)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "http://example.com", normalizeURL(" example.com "))
	assert.Equal(t, "https://example.com", normalizeURL("https://example.com"))
	assert.Equal(t, "", normalizeURL(""))
}

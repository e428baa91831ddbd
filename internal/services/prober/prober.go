package prober

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Result struct {
	Up         bool
	LatencyMs  int64
	StatusCode int
	Err        error
}

var (
	mProbes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_probes_total", Help: "Total probes attempted",
	})
	mUp = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_probe_up_total", Help: "UP results",
	})
	mDown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigil_probe_down_total", Help: "DOWN results",
	})
	mLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vigil_probe_latency_seconds",
		Help:    "Probe latency until response headers, timeout or error",
		Buckets: prometheus.DefBuckets,
	})
)

type Prober struct {
	client         *http.Client
	classify       Classifier
	userAgent      string
	defaultTimeout time.Duration
}

func New(client *http.Client, cfg Config) *Prober {
	classify := Classifier(DefaultClassifier)
	if cfg.Strict {
		classify = StrictClassifier
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Vigil-Monitor/1.0"
	}
	return &Prober{client: client, classify: classify, userAgent: ua, defaultTimeout: timeout}
}

func (p *Prober) WithClassifier(c Classifier) *Prober {
	cp := *p
	cp.classify = c
	return &cp
}

// Probe performs one GET. It never retries; a network failure is a down result, not an error.
func (p *Prober) Probe(ctx context.Context, url string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mProbes.Inc()
	start := time.Now()
	code, err := p.do(ctx, normalizeURL(url))
	lat := time.Since(start)

	res := Result{
		Up:         p.classify(code, err),
		LatencyMs:  lat.Milliseconds(),
		StatusCode: code,
		Err:        err,
	}
	mLatency.Observe(lat.Seconds())
	if res.Up {
		mUp.Inc()
	} else {
		mDown.Inc()
	}
	return res
}

func (p *Prober) do(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func normalizeURL(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return t
	}
	if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
		return t
	}
	return "http://" + t
}

package prober

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NordCoder/Vigil/internal/obs"
)

type Config struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxRedirects   int           `mapstructure:"max_redirects"`
	VerifyTLS      bool          `mapstructure:"verify_tls"`
	Strict         bool          `mapstructure:"strict"`
}

var errTooManyRedirects = errors.New("too many redirects")

// NewHTTPClient builds the shared probe client. Per-request deadlines come from the
// probe context, so the client itself carries no Timeout.
func NewHTTPClient(cfg Config) *http.Client {
	dialTimeout := cfg.DefaultTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}

	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}
	return &http.Client{
		Transport: obs.HTTPTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: %d", errTooManyRedirects, len(via))
			}
			return nil
		},
	}
}

package httpx

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout   = 60 * time.Second
)

var log = logger.Get("HTTP")

type (
	// Doer is satisfied by *http.Client, and allows strategies to
	// be exercised against a test double.
	Doer interface {
		Do(req *http.Request) (*http.Response, error)
	}

	Config struct {
		TimeoutSeconds int    `yaml:"timeout_seconds" env:"HTTP_TIMEOUT_SECONDS" env-default:"60"`
		ProxyURL       string `yaml:"proxy_url" env:"HTTP_PROXY_URL"`
		UserAgent      string `yaml:"user_agent" env:"HTTP_USER_AGENT"`
	}
)

func (config Config) timeout() time.Duration {
	if config.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}

	return time.Duration(config.TimeoutSeconds) * time.Second
}

// Agent returns the User-Agent which should be used for outbound requests.
func (config Config) Agent() string {
	if config.UserAgent == "" {
		return DefaultUserAgent
	}

	return config.UserAgent
}

// New constructs the connection-pooled client shared by every
// strategy. When a SOCKS5 proxy URL is configured (socks5:// or socks5h://), all
// outbound connections are dialed through it.
func New(config Config) (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if config.ProxyURL != "" {
		u, err := url.Parse(config.ProxyURL)
		if err != nil {
			return nil, errors.Wrapf(err, "parse proxy url %q", config.ProxyURL)
		}

		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, errors.Wrap(err, "create proxy dialer")
		}

		transport.Proxy = nil
		if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = ctxDialer.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}

		log.Emit(logger.INFO, "Outbound requests will be proxied via %s\n", u.Redacted())
	}

	return &http.Client{
		Timeout:   config.timeout(),
		Transport: transport,
	}, nil
}

// NewRequest builds a request bound to the provided context with the
// User-Agent header set (unless empty).
func NewRequest(ctx context.Context, method, rawURL string, body io.Reader, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s request for %s", method, rawURL)
	}

	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	return req, nil
}

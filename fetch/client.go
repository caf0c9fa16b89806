package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

const DefaultTimeout = 15 * time.Second

// Request is a single GET against a source.
type Request struct {
	URL     string
	Query   url.Values
	Headers map[string]string
	Timeout time.Duration
}

// Target returns the request URL with Query merged into it.
func (r Request) Target() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	sep := "?"
	if strings.Contains(r.URL, "?") {
		sep = "&"
	}
	return r.URL + sep + r.Query.Encode()
}

// Fetcher retrieves a page body as text. Implementations make exactly one
// attempt per call.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (string, error)
}

type Client struct {
	userAgent      string
	transport      http.RoundTripper
	tracerProvider trace.TracerProvider
	cache          *PageCache
	logger         *zap.Logger
}

type Option func(*Client)

// WithCache serves and stores bodies through cache.
func WithCache(cache *PageCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithTransport replaces the default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithTracerProvider records a client span per request through tp instead of
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracerProvider = tp }
}

// NewClient creates a fetcher sharing one transport across requests. An
// empty proxyURL connects directly; socks5:// URLs are dialed through
// golang.org/x/net/proxy, anything else is used as an HTTP proxy.
func NewClient(userAgent, proxyURL string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport, err := NewTransport(proxyURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		userAgent: userAgent,
		transport: transport,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	var otelOpts []otelhttp.Option
	if c.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(c.tracerProvider))
	}
	c.transport = otelhttp.NewTransport(c.transport, otelOpts...)
	return c, nil
}

func NewTransport(proxyURL string) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	if proxyURL == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if u.Scheme == "socks5" || u.Scheme == "socks5h" {
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
		return transport, nil
	}
	transport.Proxy = http.ProxyURL(u)
	return transport, nil
}

// Fetch performs one GET. Non-2xx statuses, timeouts and network failures
// are returned as *TransportError. A context deadline shortens the request
// timeout but never extends it.
func (c *Client) Fetch(ctx context.Context, req Request) (string, error) {
	target := req.Target()
	if err := ctx.Err(); err != nil {
		return "", &TransportError{URL: target, Err: err}
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(target); ok {
			c.logger.Debug("page cache hit", zap.String("url", target))
			return body, nil
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return "", &TransportError{URL: target, Err: context.DeadlineExceeded}
	}

	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetClient(&http.Client{
		Transport: c.transport,
		Timeout:   timeout,
	})
	// every status reaches OnResponse; the 2xx check below decides
	collector.ParseHTTPErrorResponse = true

	var (
		body   string
		status int
	)
	collector.OnRequest(func(r *colly.Request) {
		for k, v := range req.Headers {
			r.Headers.Set(k, v)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	// Visit has no context parameter; the client timeout bounds the
	// abandoned request when ctx is canceled first.
	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- collector.Visit(target) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
		c.logger.Debug("fetch canceled", zap.String("url", target), zap.Error(err))
		return "", &TransportError{URL: target, Err: err}
	}
	if err != nil {
		c.logger.Debug("fetch failed",
			zap.String("url", target),
			zap.Int("status_code", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", &TransportError{URL: target, Status: status, Err: err}
	}
	if status < 200 || status > 299 {
		return "", &TransportError{URL: target, Status: status, Err: fmt.Errorf("unexpected status %d", status)}
	}

	c.logger.Debug("fetched",
		zap.String("url", target),
		zap.Int("status_code", status),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	if c.cache != nil {
		if err := c.cache.Put(target, body); err != nil {
			c.logger.Warn("page cache write failed", zap.String("url", target), zap.Error(err))
		}
	}
	return body, nil
}

package transport

import (
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

type HTTPClientOption func(*http.Client, *http.Transport)

// HTTPWithTimeout bounds a whole request, including reading the body.
func HTTPWithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *http.Client, _ *http.Transport) {
		c.Timeout = timeout
	}
}

// DefaultHTTPClient returns a client whose transport negotiates HTTP/2 over
// TLS and falls back to HTTP/1.1 for plain-text endpoints.
func DefaultHTTPClient() *http.Client {
	return NewHTTPClient()
}

// NewHTTPClient builds an HTTP client for object storage traffic.
func NewHTTPClient(opts ...HTTPClientOption) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 8

	client := &http.Client{Transport: t}
	for _, opt := range opts {
		opt(client, t)
	}

	// Only fails when the transport was already configured for HTTP/2
	_, _ = http2.ConfigureTransports(t)
	return client
}

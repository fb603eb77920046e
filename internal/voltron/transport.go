package voltron

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Transport carries one encoded request to the sync endpoint and returns
// the raw response body.
type Transport interface {
	// RoundTrip sends body and returns the response body.
	RoundTrip(ctx context.Context, body []byte) ([]byte, error)

	// Close releases any connections held by the transport.
	Close() error
}

// requestPath is the endpoint Voltron serves typed requests on.
const requestPath = "/api/request"

// MaxResponseLength bounds a single response body (64MB). Stack windows
// are the largest payloads and stay well below this.
const MaxResponseLength = 64 * 1024 * 1024

// HTTPTransport implements Transport over Voltron's HTTP API, either over
// TCP or over a unix domain socket.
type HTTPTransport struct {
	client *http.Client
	url    string
}

// NewTCPTransport creates a transport for a Voltron server listening on
// address ("host:port").
func NewTCPTransport(address string, dialTimeout time.Duration) *HTTPTransport {
	dialer := &net.Dialer{Timeout: dialTimeout}
	return &HTTPTransport{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:       dialer.DialContext,
				DisableKeepAlives: true,
			},
		},
		url: "http://" + address + requestPath,
	}
}

// NewUnixTransport creates a transport for a Voltron server listening on
// a unix socket at path.
func NewUnixTransport(path string, dialTimeout time.Duration) *HTTPTransport {
	dialer := &net.Dialer{Timeout: dialTimeout}
	return &HTTPTransport{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialer.DialContext(ctx, "unix", path)
				},
				DisableKeepAlives: true,
			},
		},
		url: "http://voltron" + requestPath,
	}
}

// newHTTPTransport wraps an existing client and base URL. Used by tests
// against httptest servers.
func newHTTPTransport(client *http.Client, baseURL string) *HTTPTransport {
	return &HTTPTransport{client: client, url: baseURL + requestPath}
}

// RoundTrip posts body to the request endpoint.
func (t *HTTPTransport) RoundTrip(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", t.url, err)
	}
	defer resp.Body.Close()

	// Voltron reports protocol errors in the body with a non-2xx status in
	// some versions, so the body is read regardless of the status code.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLength+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > MaxResponseLength {
		return nil, fmt.Errorf("response exceeds maximum allowed %d bytes", MaxResponseLength)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response (HTTP %d)", resp.StatusCode)
	}

	return data, nil
}

// Close drops idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

package http_request

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// NewClient returns a pooled HTTP client shared by every request node of an
// application. A non-positive timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// CloseClient releases the idle connections held by client.
func CloseClient(client *http.Client) {
	if client != nil {
		client.CloseIdleConnections()
	}
}

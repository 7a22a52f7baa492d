package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HealthURL returns the /health URL of the server behind a ws:// or wss://
// endpoint
func HealthURL(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", wsURL, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported scheme %q in %q", u.Scheme, wsURL)
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String(), nil
}

// WaitForHealthy polls healthURL until it returns 200 OK or the context is
// cancelled.
func WaitForHealthy(ctx context.Context, healthURL string) error {
	client := &http.Client{Timeout: 1 * time.Second}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			resp, err := client.Get(healthURL)
			if err == nil && resp.StatusCode == http.StatusOK {
				resp.Body.Close()
				return nil
			}
			if resp != nil {
				resp.Body.Close()
			}
		}
	}
}

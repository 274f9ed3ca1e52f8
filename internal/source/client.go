package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "newsPipeline/1.0 (+rss)"

// contextTransport injects a context into every outgoing request so that
// context cancellation and deadlines propagate through the rss library. It also
// turns non-2xx responses into errors, which the rss library would otherwise
// try to parse.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.WithContext(t.ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, req.URL.Host)
	}

	return resp, nil
}

// clientFor returns a copy of base bound to ctx. A nil base gets a client
// with the given timeout.
func clientFor(ctx context.Context, base *http.Client, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport
	if base != nil && base.Transport != nil {
		transport = base.Transport
	}
	if base != nil && base.Timeout > 0 {
		timeout = base.Timeout
	}

	return &http.Client{
		Transport: contextTransport{ctx: ctx, base: transport},
		Timeout:   timeout,
	}
}

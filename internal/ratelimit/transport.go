package ratelimit

import (
	"fmt"
	"net/http"
)

// Transport is an http.RoundTripper that waits for the request host's
// limiter before sending. A request whose context ends while waiting fails
// without reaching the network.
type Transport struct {
	Pacer *Pacer
	Base  http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Pacer != nil {
		if err := t.Pacer.Wait(req.Context(), req.URL.Host); err != nil {
			return nil, fmt.Errorf("ratelimit: wait for %s: %w", req.URL.Host, err)
		}
	}
	return base.RoundTrip(req)
}

// CloseIdleConnections forwards to the base transport when it supports it.
func (t *Transport) CloseIdleConnections() {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if c, ok := base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

package obs

import (
	"net/http"
	"time"
)

// Transport wraps an http.RoundTripper and emits one structured event per
// outgoing request, tagged with the correlation fields of the request context.
type Transport struct {
	Pkg  string
	Base http.RoundTripper
}

// NewTransport returns a logging transport around base.
// A nil base uses http.DefaultTransport.
func NewTransport(pkg string, base http.RoundTripper) *Transport {
	return &Transport{Pkg: pkg, Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	durMS := float64(time.Since(start).Microseconds()) / 1000.0

	reqBytes := int64(0)
	if req.ContentLength > 0 {
		reqBytes = req.ContentLength
	}

	l := From(req.Context()).With("pkg", t.Pkg)
	if err != nil {
		l.Warn(
			"http_client_error",
			"method", req.Method,
			"path", req.URL.Path,
			"dur_ms", durMS,
			"error", err,
		)
		return nil, err
	}
	l.Debug(
		"http_client",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"dur_ms", durMS,
		"req_bytes", reqBytes,
	)
	return resp, nil
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

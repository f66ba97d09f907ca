package resilience

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// Response is a fully-buffered HTTP response. Buffering lets the per-call
// timeout context be released before callers inspect the body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPClient wraps an http.Client with a bounded per-call timeout and a
// circuit breaker. Each call is single-shot: failed requests are not retried,
// the caller decides whether the failure is retryable.
type HTTPClient struct {
	Client  *http.Client
	Breaker *Breaker
	Timeout time.Duration
}

// Do executes the request, honouring the breaker and the configured timeout.
// When the breaker is open ErrOpenCircuit is returned without touching the
// network. A response with status >= 500 counts as a breaker failure.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	if cl.Breaker != nil && !cl.Breaker.Allow(ctx) {
		return nil, ErrOpenCircuit
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if cl.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, cl.Timeout)
		defer cancel()
	}

	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cl.report(ctx, false)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		cl.report(ctx, false)
		return nil, err
	}
	cl.report(ctx, resp.StatusCode < http.StatusInternalServerError)
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (cl HTTPClient) report(ctx context.Context, success bool) {
	if cl.Breaker != nil {
		cl.Breaker.Report(ctx, success)
	}
}

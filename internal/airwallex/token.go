package airwallex

import (
	"context"
	"sync"
	"time"
)

// TokenSource caches the processor bearer token until shortly before expiry.
// The mutex is held across the refresh so concurrent requests single-flight a
// single login instead of racing the authentication endpoint.
type TokenSource struct {
	mu      sync.Mutex
	fetch   func(context.Context) (AuthToken, error)
	current AuthToken
	margin  time.Duration
}

// NewTokenSource wraps a login function with expiry-aware caching. margin is
// the window before expiry at which the token is treated as stale.
func NewTokenSource(fetch func(context.Context) (AuthToken, error), margin time.Duration) *TokenSource {
	if margin <= 0 {
		margin = time.Minute
	}
	return &TokenSource{fetch: fetch, margin: margin}
}

// Token returns a valid bearer token, refreshing it when absent or stale.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Value != "" && time.Until(s.current.ExpiresAt) > s.margin {
		return s.current.Value, nil
	}
	token, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.current = token
	return token.Value, nil
}

// Invalidate discards the cached token. Called when a downstream call is
// rejected with 401, so the next operation re-authenticates.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = AuthToken{}
}

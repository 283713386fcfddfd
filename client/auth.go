package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshMargin is how long before expiry a cached token is replaced.
const refreshMargin = 5 * time.Minute

// TokenSource supplies bearer tokens for the FHIR service.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns the same token forever. Useful for tests and
// for services fronted by a sidecar that handles auth.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// CachingTokenSource wraps a fetch function and reuses its token until
// shortly before the JWT exp claim. The signature is not verified here;
// the service rejects bad tokens on its own.
type CachingTokenSource struct {
	fetch func(ctx context.Context) (string, error)

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewCachingTokenSource wraps fetch with expiry-aware caching.
func NewCachingTokenSource(fetch func(ctx context.Context) (string, error)) *CachingTokenSource {
	return &CachingTokenSource{fetch: fetch}
}

func (s *CachingTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.expires) > refreshMargin {
		return s.token, nil
	}

	token, err := s.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}

	s.token = token
	s.expires = tokenExpiry(token)
	return token, nil
}

// tokenExpiry extracts the exp claim from a JWT without verification.
// Unparseable tokens get a short synthetic lifetime so they are refetched
// soon rather than cached forever.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Now().Add(refreshMargin + time.Minute)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now().Add(refreshMargin + time.Minute)
	}
	return exp.Time
}

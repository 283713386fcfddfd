package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	fl "github.com/gofhir/loader"
)

// RetryPolicy bounds retries of transient request failures with
// exponential backoff.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt; it doubles
	// for each subsequent one.
	InitialBackoff time.Duration

	// MaxBackoff caps the per-attempt delay. Zero means uncapped.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy matches the engine's default submit retry settings.
func DefaultRetryPolicy() RetryPolicy {
	o := fl.DefaultOptions()
	return RetryPolicy{
		MaxAttempts:    o.SubmitRetries,
		InitialBackoff: o.SubmitBackoff,
		MaxBackoff:     60 * time.Second,
	}
}

// IsTransient reports whether an HTTP status is worth retrying. Token
// expiry (401/403) is included because the token source refreshes on the
// next attempt.
func IsTransient(status int) bool {
	switch status {
	case http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusRequestTimeout,
		http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

// Do runs attempt until it returns a success status, a non-transient
// status, or attempts run out. A zero status with an error counts as
// transient transport failure. Retries are recorded into m when non-nil.
func (p RetryPolicy) Do(ctx context.Context, log zerolog.Logger, attempt func() (int, error), m *fl.Metrics) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := p.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastStatus int
	var lastErr error
	for i := 1; i <= attempts; i++ {
		status, err := attempt()
		if err == nil && !IsTransient(status) {
			// Success and permanent failures both end the loop; the
			// caller inspects the status.
			return nil
		}
		lastStatus, lastErr = status, err

		if i == attempts {
			break
		}
		if m != nil {
			m.RecordRetry()
		}

		log.Warn().
			Int("attempt", i).
			Int("max_attempts", attempts).
			Int("status", status).
			Err(err).
			Dur("backoff", backoff).
			Msg("transient request failure, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}

	if lastErr != nil {
		return fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
	}
	return fmt.Errorf("request failed after %d attempts: status %d", attempts, lastStatus)
}

package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ListWithRetry lists the store, waiting out authorization failures with a
// fixed-interval retry. Freshly assigned data-reader roles can take several
// minutes to propagate; other errors fail immediately.
func ListWithRetry(ctx context.Context, store Store, attempts int, interval time.Duration, log zerolog.Logger) ([]ObjectInfo, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		objects, err := store.List(ctx)
		if err == nil {
			return objects, nil
		}
		if !IsAuthError(err) {
			return nil, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_in", interval).
			Msg("store listing not authorized yet, waiting for role propagation")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, fmt.Errorf("listing store after %d attempts: %w", attempts, lastErr)
}

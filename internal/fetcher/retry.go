package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// statusError is a non-200 HTTP response.
type statusError struct {
	Code int
	URL  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Code, e.URL)
}

// retryable reports whether a failed attempt is worth repeating: transport
// errors, 429 and 5xx are; other statuses and cancellation are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// backoff grows exponentially from base, capped at max, with up to 50% jitter.
type backoff struct {
	base time.Duration
	max  time.Duration
}

func (b backoff) delay(attempt int) time.Duration {
	d := time.Duration(float64(b.base) * math.Pow(2, float64(attempt)))
	if d > b.max {
		d = b.max
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}

// withRetry calls fn up to attempts times while its error is retryable.
func withRetry[T any](ctx context.Context, attempts int, b backoff, target string, fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := range attempts {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil || attempt == attempts-1 {
			break
		}

		zap.L().Warn("fetcher: attempt failed, retrying",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		t := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, lastErr
		case <-t.C:
		}
	}
	return zero, lastErr
}

package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrSourceUnavailable is returned without contacting the host while its
// breaker is open.
var ErrSourceUnavailable = eris.New("source temporarily unavailable")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker stops calls to a host after threshold consecutive failed downloads
// (each already retried) and lets one probe through after cooldown.
type breaker struct {
	host      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

func newBreaker(host string, threshold int, cooldown time.Duration) *breaker {
	return &breaker{host: host, threshold: threshold, cooldown: cooldown, now: time.Now, state: breakerClosed}
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return eris.Wrapf(ErrSourceUnavailable, "fetcher: %s", b.host)
		}
		b.transition(breakerHalfOpen)
		return nil
	case breakerHalfOpen:
		// One probe at a time.
		return eris.Wrapf(ErrSourceUnavailable, "fetcher: %s probing", b.host)
	default:
		return nil
	}
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Says nothing about the host; let the next call probe again.
		if b.state == breakerHalfOpen {
			b.transition(breakerOpen)
		}
		return
	}
	if err == nil || !retryable(err) {
		b.failures = 0
		if b.state != breakerClosed {
			b.transition(breakerClosed)
		}
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		if b.state != breakerOpen {
			b.transition(breakerOpen)
		}
	}
}

// transition must be called with mu held.
func (b *breaker) transition(to breakerState) {
	zap.L().Info("fetcher: breaker state change",
		zap.String("host", b.host),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}

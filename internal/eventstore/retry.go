package eventstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// busyBreakers holds one circuit breaker per open user database, so a user
// whose writes keep hitting SQLITE_BUSY stops hammering its own file
// without affecting any other user's breaker.
var (
	busyBreakersMu sync.Mutex
	busyBreakers   = map[*DB]*gobreaker.CircuitBreaker[struct{}]{}
)

func breakerFor(db *DB) *gobreaker.CircuitBreaker[struct{}] {
	busyBreakersMu.Lock()
	defer busyBreakersMu.Unlock()

	if cb, ok := busyBreakers[db]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "eventstore-write",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(db.retryBudget)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isBusyError(err)
		},
	})
	busyBreakers[db] = cb
	return cb
}

// retryOnBusy runs fn, resubmitting with exponential backoff while it fails
// with SQLITE_BUSY, up to db.retryBudget attempts. The module's circuit
// breaker (github.com/sony/gobreaker/v2, the pack's circuit-breaking
// dependency, repurposed here from HTTP calls to backoff-on-BUSY writes)
// trips once a database's writes keep exhausting their retry budget, so a
// wedged SQLite file fails fast instead of re-attempting on every
// subsequent call.
func retryOnBusy(ctx context.Context, db *DB, fn func() error) error {
	cb := breakerFor(db)

	_, err := cb.Execute(func() (struct{}, error) {
		var lastErr error
		delay := 10 * time.Millisecond

		for attempt := 0; attempt < db.retryBudget; attempt++ {
			lastErr = fn()
			if lastErr == nil {
				return struct{}{}, nil
			}
			if !isBusyError(lastErr) {
				return struct{}{}, lastErr
			}

			select {
			case <-ctx.Done():
				return struct{}{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		return struct{}{}, lastErr
	})

	return err
}

// forgetBreaker drops db's circuit breaker, called when Mall evicts db so
// the breaker map doesn't grow unbounded across the process lifetime.
func forgetBreaker(db *DB) {
	busyBreakersMu.Lock()
	defer busyBreakersMu.Unlock()
	delete(busyBreakers, db)
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

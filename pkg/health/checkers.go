package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger matches pgxpool.Pool and anything else with a context Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseCheck returns a readiness CheckFunc that pings the database.
func DatabaseCheck(db Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return errors.Wrap(err, "database ping")
		}
		return nil
	}
}

// GoroutineCountCheck returns a liveness CheckFunc that fails when the
// goroutine count exceeds threshold, catching goroutine leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if count := runtime.NumGoroutine(); count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

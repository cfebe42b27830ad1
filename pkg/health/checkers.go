package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCount returns a liveness probe that fails once the process runs
// more than limit goroutines. Catches leaks from abandoned workers.
func GoroutineCount(limit int) ProbeFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines, limit %d", n, limit)
		}
		return nil
	}
}

// MaxGCPause returns a liveness probe that fails once any observed
// stop-the-world GC pause exceeds limit.
func MaxGCPause(limit time.Duration) ProbeFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		for _, pause := range stats.Pause {
			if pause > limit {
				return errors.Errorf("GC pause %s, limit %s", pause, limit)
			}
		}
		return nil
	}
}

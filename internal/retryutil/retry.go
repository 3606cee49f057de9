// Package retryutil schedules one delayed background retry for a failed
// side-effect, used when the first helpdesk submission attempt fails while
// the user has already been told the ticket is on its way.
package retryutil

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultRetryDelay   = 3 * time.Second
	defaultRetryTimeout = 30 * time.Second
)

// AsyncRetry runs fn once in the background after delay, bounded by timeout.
// It logs the scheduling and the outcome but never blocks the caller.
func AsyncRetry(logger *slog.Logger, name string, delay, timeout time.Duration, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	if timeout <= 0 {
		timeout = defaultRetryTimeout
	}
	if logger != nil {
		logger.Info(name+"_retry_scheduled", "delay", delay.String(), "timeout", timeout.String())
	}
	go func() {
		timer := time.NewTimer(delay)
		<-timer.C
		timer.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			if logger != nil {
				logger.Warn(name+"_retry_failed", "error", err.Error())
			}
			return
		}
		if logger != nil {
			logger.Info(name + "_retry_ok")
		}
	}()
}

// Package process supervises the running server process.
package process

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"
)

// ExitRestart is the exit status used after a memory-triggered shutdown.
// The supervisor restarts the process on any non-zero status.
const ExitRestart = 75

// DefaultInterval is how often memory is sampled
const DefaultInterval = 30 * time.Second

// ErrMemoryLimit is returned by Run when the process exceeded its limit
var ErrMemoryLimit = errors.New("memory limit exceeded")

// Sampler reports the process's current memory use in bytes
type Sampler func() (uint64, error)

// ResidentMemory reads the resident set size from /proc, falling back to
// the memory the Go runtime has obtained from the OS.
func ResidentMemory() (uint64, error) {
	if proc, err := procfs.Self(); err == nil {
		if stat, err := proc.Stat(); err == nil {
			return uint64(stat.ResidentMemory()), nil
		}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Sys, nil
}

// Watchdog stops the process once its memory use passes a limit
type Watchdog struct {
	limit    uint64
	interval time.Duration
	sample   Sampler
	logger   *zap.Logger
}

// NewWatchdog creates a Watchdog. A limit of zero disables it.
func NewWatchdog(limit int64, interval time.Duration, sample Sampler, logger *zap.Logger) *Watchdog {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if sample == nil {
		sample = ResidentMemory
	}
	return &Watchdog{
		limit:    uint64(max(limit, 0)),
		interval: interval,
		sample:   sample,
		logger:   logger,
	}
}

// Run samples memory until ctx is done, returning nil, or until the limit
// is exceeded, returning ErrMemoryLimit. Sampling errors are logged and
// the next tick tried.
func (w *Watchdog) Run(ctx context.Context) error {
	if w.limit == 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			used, err := w.sample()
			if err != nil {
				w.logger.Warn("Failed to sample memory", zap.Error(err))
				continue
			}
			if used > w.limit {
				w.logger.Warn("Memory limit exceeded, restarting",
					zap.Uint64("used", used), zap.Uint64("limit", w.limit))
				return ErrMemoryLimit
			}
		}
	}
}

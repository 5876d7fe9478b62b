package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// reapTimeout bounds a single reaper pass
const reapTimeout = 30 * time.Second

// cronLogger routes cron's own logging through slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Reaper periodically closes sessions left active past their deadline
type Reaper struct {
	service  Service
	schedule string
	grace    time.Duration
	cron     *cron.Cron
}

// NewReaper creates a reaper running on a standard cron schedule or an "@every" descriptor
func NewReaper(s Service, schedule string, grace time.Duration) *Reaper {
	logger := cronLogger{}
	return &Reaper{
		service:  s,
		schedule: schedule,
		grace:    grace,
		cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
	}
}

// RunOnce performs a single pass and returns the number of closed sessions
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	n, err := r.service.ReapExpired(ctx, r.grace)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Reaper closed expired sessions", "count", n)
	}
	return n, nil
}

// Start registers the job and starts the scheduler in its own goroutine
func (r *Reaper) Start() error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reapTimeout)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			slog.Error("Reaper pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", r.schedule, err)
	}

	r.cron.Start()
	slog.Info("Session reaper started", "schedule", r.schedule, "grace", r.grace)
	return nil
}

// Stop stops scheduling and waits for a running pass to finish
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

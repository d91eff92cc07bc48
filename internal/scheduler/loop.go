package scheduler

import (
	"context"
	"time"

	"trapline/internal/logger"
)

// Loop runs a task at a fixed cadence. A task error is logged and followed by
// Backoff instead of the regular Interval, so a flapping collaborator does not
// get hammered.
type Loop struct {
	Name           string
	Interval       time.Duration
	Backoff        time.Duration
	RunImmediately bool
}

func NewLoop(name string, interval time.Duration) *Loop {
	return &Loop{Name: name, Interval: interval}
}

func (l *Loop) Start(ctx context.Context, task func(context.Context) error) error {
	if l == nil || task == nil {
		return nil
	}
	if l.Interval <= 0 {
		logger.Warnf("Loop %s: invalid interval=%s, exit", l.Name, l.Interval)
		return nil
	}
	backoff := l.Backoff
	if backoff <= 0 {
		backoff = l.Interval
	}
	logger.Infof("Loop %s: started interval=%s backoff=%s run_immediately=%v",
		l.Name, l.Interval, backoff, l.RunImmediately)

	wait := l.Interval
	if l.RunImmediately {
		wait = l.runOnce(ctx, task, backoff)
	}
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("Loop %s: ctx done, exit", l.Name)
			return ctx.Err()
		case <-timer.C:
		}
		wait = l.runOnce(ctx, task, backoff)
	}
}

func (l *Loop) runOnce(ctx context.Context, task func(context.Context) error, backoff time.Duration) time.Duration {
	if err := task(ctx); err != nil {
		logger.Errorf("Loop %s: task error: %v", l.Name, err)
		return backoff
	}
	return l.Interval
}

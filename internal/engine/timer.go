package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DeadlineTimer owns the session's absolute deadline. The deadline is
// computed exactly once from startedAt + duration and never recomputed from
// "time remaining", so re-renders and tab suspension cannot drift it.
// Remaining is derived display state; expiry fires the one-shot callback at
// most once per session no matter how many ticks observe zero.
type DeadlineTimer struct {
	mu       sync.Mutex
	logger   *slog.Logger
	deadline *time.Time
	fired    bool
	onExpire func()
}

func NewDeadlineTimer(onExpire func(), logger *slog.Logger) *DeadlineTimer {
	return &DeadlineTimer{logger: logger, onExpire: onExpire}
}

// Configure arms the timer. A second call is ignored: the deadline is
// authoritative once computed.
func (t *DeadlineTimer) Configure(startedAt time.Time, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deadline != nil || duration <= 0 {
		return
	}
	d := startedAt.Add(duration)
	t.deadline = &d
	t.logger.Info("session deadline armed", "deadline", d)
}

// Timed reports whether a deadline was configured.
func (t *DeadlineTimer) Timed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline != nil
}

// Remaining returns the display countdown, clamped at zero. The second
// return is false for untimed sessions.
func (t *DeadlineTimer) Remaining(now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deadline == nil {
		return 0, false
	}
	r := t.deadline.Sub(now)
	if r < 0 {
		r = 0
	}
	return r, true
}

// Tick checks for expiry. The callback runs outside the lock, exactly once.
func (t *DeadlineTimer) Tick(now time.Time) {
	t.mu.Lock()
	if t.deadline == nil || t.fired || now.Before(*t.deadline) {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()

	t.logger.Info("session deadline reached")
	if t.onExpire != nil {
		t.onExpire()
	}
}

// Run drives Tick from a wall-clock ticker until the context is cancelled.
func (t *DeadlineTimer) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Tick(now)
		}
	}
}

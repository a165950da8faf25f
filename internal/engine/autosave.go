package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type saveState int

const (
	stateIdle saveState = iota
	stateDirty
	stateSaving
)

// SaveFunc performs one draft save. Errors are the callee's problem: a
// transient failure is logged there and the scheduler simply tries again on
// the next debounce or periodic tick.
type SaveFunc func(ctx context.Context) error

// AutosaveScheduler coalesces widget mutations into draft saves. Any
// mutation signals MarkDirty, which starts a quiet-period window; expiry
// triggers exactly one save. A fixed long period independently triggers a
// save as a safety net. At most one save is in flight at a time; dirt that
// arrives mid-save collapses into exactly one follow-up save.
//
// The scheduler is pure over MarkDirty/Tick/Flush so it can be unit-tested
// without timers; Run drives Tick from a wall-clock ticker in production.
type AutosaveScheduler struct {
	mu     sync.Mutex
	logger *slog.Logger
	save   SaveFunc
	now    func() time.Time

	quiet  time.Duration
	period time.Duration

	state    saveState
	dirtyAt  time.Time
	lastSave time.Time
	followUp bool
	stopped  bool
}

func NewAutosaveScheduler(save SaveFunc, quiet, period time.Duration, logger *slog.Logger) *AutosaveScheduler {
	s := &AutosaveScheduler{
		logger: logger,
		save:   save,
		now:    time.Now,
		quiet:  quiet,
		period: period,
	}
	s.lastSave = s.now()
	return s
}

// MarkDirty signals a widget-originated mutation and (re)starts the quiet
// window. During an in-flight save it only requests a single follow-up.
func (s *AutosaveScheduler) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	switch s.state {
	case stateSaving:
		s.followUp = true
	default:
		s.state = stateDirty
		s.dirtyAt = s.now()
	}
}

// Tick advances the state machine to the given instant, firing a save when
// the quiet window expired or the safety-net period elapsed. Concurrent
// ticks never overlap saves: a tick that observes an in-flight save returns.
func (s *AutosaveScheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	if s.stopped || s.state == stateSaving {
		s.mu.Unlock()
		return
	}

	due := false
	if s.state == stateDirty && !now.Before(s.dirtyAt.Add(s.quiet)) {
		due = true
	}
	if s.state == stateDirty && !now.Before(s.lastSave.Add(s.period)) {
		// Safety net against a user who stops interacting mid-mutation.
		due = true
	}
	if !due {
		s.mu.Unlock()
		return
	}

	s.state = stateSaving
	s.mu.Unlock()

	s.runSave(ctx, now)
}

// Flush forces an immediate save when state is dirty, regardless of windows.
func (s *AutosaveScheduler) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.stopped || s.state != stateDirty {
		s.mu.Unlock()
		return
	}
	s.state = stateSaving
	s.mu.Unlock()

	s.runSave(ctx, s.now())
}

func (s *AutosaveScheduler) runSave(ctx context.Context, now time.Time) {
	if err := s.save(ctx); err != nil {
		s.logger.Warn("autosave failed, will retry on next tick", "error", err)
	}

	s.mu.Lock()
	s.lastSave = now
	if s.followUp {
		// Mutations during the save collapse into one queued follow-up.
		s.followUp = false
		s.state = stateDirty
		s.dirtyAt = now
	} else {
		s.state = stateIdle
	}
	s.mu.Unlock()
}

// Stop permanently silences the scheduler; called once the session leaves
// IN_PROGRESS or is torn down.
func (s *AutosaveScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.followUp = false
	s.mu.Unlock()
}

// Run drives Tick from a wall-clock ticker until the context is cancelled.
func (s *AutosaveScheduler) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.Tick(ctx, t)
		}
	}
}

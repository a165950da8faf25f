package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestScheduler(save SaveFunc) *AutosaveScheduler {
	return NewAutosaveScheduler(save, 2*time.Second, 30*time.Second, testLogger())
}

func TestSchedulerQuietWindow(t *testing.T) {
	saves := 0
	s := newTestScheduler(func(ctx context.Context) error { saves++; return nil })
	base := time.Now()
	s.now = func() time.Time { return base }
	s.lastSave = base

	s.MarkDirty()

	// Inside the quiet window nothing fires.
	s.Tick(context.Background(), base.Add(time.Second))
	assert.Equal(t, 0, saves)

	// Quiet expiry fires exactly one save.
	s.Tick(context.Background(), base.Add(2*time.Second))
	assert.Equal(t, 1, saves)

	// Clean state: further ticks are no-ops.
	s.Tick(context.Background(), base.Add(time.Minute))
	assert.Equal(t, 1, saves)
}

func TestSchedulerQuietWindowRestartsOnNewDirt(t *testing.T) {
	saves := 0
	s := newTestScheduler(func(ctx context.Context) error { saves++; return nil })
	base := time.Now()
	s.lastSave = base

	s.now = func() time.Time { return base }
	s.MarkDirty()

	// A second mutation before expiry restarts the window.
	s.now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	s.MarkDirty()

	s.Tick(context.Background(), base.Add(2*time.Second))
	assert.Equal(t, 0, saves)

	s.Tick(context.Background(), base.Add(3500*time.Millisecond))
	assert.Equal(t, 1, saves)
}

func TestSchedulerPeriodicSafetyNet(t *testing.T) {
	saves := 0
	s := newTestScheduler(func(ctx context.Context) error { saves++; return nil })
	base := time.Now()
	s.lastSave = base

	// Keep the widget "busy": dirt refreshed right before each tick so the
	// quiet window never expires.
	for i := 1; i <= 30; i++ {
		now := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return now }
		s.MarkDirty()
		s.Tick(context.Background(), now)
	}

	// The long period still forced a save.
	assert.GreaterOrEqual(t, saves, 1)
}

func TestSchedulerMidSaveDirtCollapsesToOneFollowUp(t *testing.T) {
	s := newTestScheduler(nil)
	base := time.Now()
	s.lastSave = base
	s.now = func() time.Time { return base }

	saves := 0
	s.save = func(ctx context.Context) error {
		saves++
		if saves == 1 {
			// Three mutations while the save is in flight.
			s.MarkDirty()
			s.MarkDirty()
			s.MarkDirty()
		}
		return nil
	}

	s.MarkDirty()
	s.Tick(context.Background(), base.Add(2*time.Second))
	assert.Equal(t, 1, saves)

	// The collapsed follow-up fires after its own quiet window.
	s.Tick(context.Background(), base.Add(4*time.Second))
	assert.Equal(t, 2, saves)

	// No third save: follow-ups do not multiply.
	s.Tick(context.Background(), base.Add(6*time.Second))
	assert.Equal(t, 2, saves)
}

func TestSchedulerFailedSaveRetriesOnNextTick(t *testing.T) {
	attempts := 0
	s := newTestScheduler(func(ctx context.Context) error {
		attempts++
		return assert.AnError
	})
	base := time.Now()
	s.lastSave = base
	s.now = func() time.Time { return base }

	s.MarkDirty()
	s.Tick(context.Background(), base.Add(2*time.Second))
	assert.Equal(t, 1, attempts)

	// A failed save does not leave dirt behind by itself; the next mutation
	// starts a fresh cycle.
	s.MarkDirty()
	s.Tick(context.Background(), base.Add(5*time.Second))
	assert.Equal(t, 2, attempts)
}

func TestSchedulerFlush(t *testing.T) {
	saves := 0
	s := newTestScheduler(func(ctx context.Context) error { saves++; return nil })

	// Flush with nothing dirty is a no-op.
	s.Flush(context.Background())
	assert.Equal(t, 0, saves)

	s.MarkDirty()
	s.Flush(context.Background())
	assert.Equal(t, 1, saves)
}

func TestSchedulerStop(t *testing.T) {
	saves := 0
	s := newTestScheduler(func(ctx context.Context) error { saves++; return nil })

	s.MarkDirty()
	s.Stop()
	s.Tick(context.Background(), time.Now().Add(time.Hour))
	s.Flush(context.Background())
	assert.Equal(t, 0, saves)

	// MarkDirty after stop is inert.
	s.MarkDirty()
	s.Tick(context.Background(), time.Now().Add(2*time.Hour))
	assert.Equal(t, 0, saves)
}

package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
)

// Acknowledgement is the blocking notice shown for the first offense of a
// category, carrying the captured context.
type Acknowledgement struct {
	Category models.ViolationCategory `json:"category"`
	OldValue []string                 `json:"oldValue,omitempty"`
	NewValue []string                 `json:"newValue,omitempty"`
	Content  string                   `json:"content,omitempty"`
}

// IntegrityMonitor runs the two-phase escalation policy over violation
// events: the first occurrence of a category warns, the second and later
// enqueue a reportable log. Counters and queue are owned by the instance so
// concurrent sessions (and tests) never share state.
type IntegrityMonitor struct {
	mu      sync.Mutex
	logger  *slog.Logger
	enabled bool
	counts  map[models.ViolationCategory]int
	queue   []queuedLog
}

type queuedLog struct {
	log      models.ViolationLog
	queuedAt time.Time
}

// NewIntegrityMonitor builds a monitor. Pass enabled=false for view-only
// sessions or assessments that were not configured to require proctoring;
// a disabled monitor ignores every event.
func NewIntegrityMonitor(enabled bool, logger *slog.Logger) *IntegrityMonitor {
	return &IntegrityMonitor{
		logger:  logger,
		enabled: enabled,
		counts:  make(map[models.ViolationCategory]int),
	}
}

// SetEnabled flips detection, used when the session transitions to view-only.
func (m *IntegrityMonitor) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

// HandleEvent applies the escalation policy to one detected event. It
// returns the blocking acknowledgement for a first offense, and reports
// whether a ViolationLog was enqueued (second and later offenses).
func (m *IntegrityMonitor) HandleEvent(ev models.ViolationEvent) (*Acknowledgement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return nil, false
	}

	m.counts[ev.Category]++
	occurrence := m.counts[ev.Category]

	if occurrence == 1 {
		m.logger.Info("first integrity violation, warning only",
			"category", ev.Category)
		return &Acknowledgement{
			Category: ev.Category,
			OldValue: ev.OldValue,
			NewValue: ev.NewValue,
			Content:  ev.Content,
		}, false
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	m.queue = append(m.queue, queuedLog{
		log: models.ViolationLog{
			Event:      ev.Category.EventName(),
			Timestamp:  ts,
			OldValue:   ev.OldValue,
			NewValue:   ev.NewValue,
			DurationMs: ev.DurationMs,
			Content:    ev.Content,
		},
		queuedAt: time.Now(),
	})
	m.logger.Info("repeat integrity violation queued",
		"category", ev.Category,
		"occurrence", occurrence,
		"pending", len(m.queue))
	return nil, true
}

// Drain removes and returns every queued log for one flush attempt. On a
// failed delivery the caller must hand the same batch back via Requeue;
// entries already sent in a prior drain are gone from the queue and can
// never be duplicated. Flushes are scheduler-serialized.
func (m *IntegrityMonitor) Drain() []models.ViolationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	out := make([]models.ViolationLog, len(m.queue))
	for i, q := range m.queue {
		out[i] = q.log
	}
	m.queue = nil
	return out
}

// Requeue puts a failed batch back at the front of the queue, ahead of
// anything enqueued while the flush was in flight.
func (m *IntegrityMonitor) Requeue(logs []models.ViolationLog) {
	if len(logs) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	front := make([]queuedLog, 0, len(logs)+len(m.queue))
	now := time.Now()
	for _, l := range logs {
		front = append(front, queuedLog{log: l, queuedAt: now})
	}
	m.queue = append(front, m.queue...)
}

// Pending returns the queued log count.
func (m *IntegrityMonitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// OldestQueuedAt supports the max-staleness flush policy: a drain is forced
// when the oldest entry has waited longer than the configured age, so logs
// cannot be delayed forever by a session whose autosaves keep failing.
func (m *IntegrityMonitor) OldestQueuedAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return time.Time{}, false
	}
	return m.queue[0].queuedAt, true
}

// Occurrences returns the running counter for a category.
func (m *IntegrityMonitor) Occurrences(c models.ViolationCategory) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[c]
}

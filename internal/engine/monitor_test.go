package engine

import (
	"testing"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tabSwitch() models.ViolationEvent {
	return models.ViolationEvent{
		Category:   models.ViolationTabSwitch,
		Timestamp:  time.Now(),
		DurationMs: 1200,
	}
}

func copyEvent(text string) models.ViolationEvent {
	return models.ViolationEvent{
		Category:  models.ViolationCopy,
		Timestamp: time.Now(),
		OldValue:  []string{text},
	}
}

func TestMonitorEscalationLadder(t *testing.T) {
	m := NewIntegrityMonitor(true, testLogger())

	// First offense: blocking acknowledgement, nothing queued.
	ack, enqueued := m.HandleEvent(copyEvent("first"))
	require.NotNil(t, ack)
	assert.Equal(t, models.ViolationCopy, ack.Category)
	assert.Equal(t, []string{"first"}, ack.OldValue)
	assert.False(t, enqueued)
	assert.Equal(t, 0, m.Pending())

	// Second and third offenses: logged, no acknowledgement.
	ack, enqueued = m.HandleEvent(copyEvent("second"))
	assert.Nil(t, ack)
	assert.True(t, enqueued)

	_, enqueued = m.HandleEvent(copyEvent("third"))
	assert.True(t, enqueued)

	assert.Equal(t, 2, m.Pending())
	assert.Equal(t, 3, m.Occurrences(models.ViolationCopy))
}

func TestMonitorCountsPerCategory(t *testing.T) {
	m := NewIntegrityMonitor(true, testLogger())

	// A copy offense does not consume the tab-switch warning.
	ack, _ := m.HandleEvent(copyEvent("x"))
	assert.NotNil(t, ack)

	ack, enqueued := m.HandleEvent(tabSwitch())
	assert.NotNil(t, ack)
	assert.False(t, enqueued)

	_, enqueued = m.HandleEvent(tabSwitch())
	assert.True(t, enqueued)
}

func TestMonitorDisabled(t *testing.T) {
	m := NewIntegrityMonitor(false, testLogger())

	for i := 0; i < 5; i++ {
		ack, enqueued := m.HandleEvent(tabSwitch())
		assert.Nil(t, ack)
		assert.False(t, enqueued)
	}
	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, 0, m.Occurrences(models.ViolationTabSwitch))
}

func TestMonitorDrainAndRequeue(t *testing.T) {
	m := NewIntegrityMonitor(true, testLogger())

	m.HandleEvent(copyEvent("warn-only"))
	m.HandleEvent(copyEvent("a"))
	m.HandleEvent(copyEvent("b"))

	batch := m.Drain()
	require.Len(t, batch, 2)
	assert.Equal(t, 0, m.Pending())

	// Another log arrives while the flush is in flight.
	m.HandleEvent(copyEvent("c"))

	// The failed batch goes back to the front, ahead of the newcomer.
	m.Requeue(batch)
	requeued := m.Drain()
	require.Len(t, requeued, 3)
	assert.Equal(t, []string{"a"}, requeued[0].OldValue)
	assert.Equal(t, []string{"b"}, requeued[1].OldValue)
	assert.Equal(t, []string{"c"}, requeued[2].OldValue)
}

func TestMonitorDrainEmptyIsNil(t *testing.T) {
	m := NewIntegrityMonitor(true, testLogger())
	assert.Nil(t, m.Drain())

	_, ok := m.OldestQueuedAt()
	assert.False(t, ok)
}

func TestMonitorOldestQueuedAt(t *testing.T) {
	m := NewIntegrityMonitor(true, testLogger())

	m.HandleEvent(copyEvent("warn"))
	before := time.Now()
	m.HandleEvent(copyEvent("queued"))

	queuedAt, ok := m.OldestQueuedAt()
	require.True(t, ok)
	assert.False(t, queuedAt.Before(before))
}

func TestMonitorEventNameMapping(t *testing.T) {
	m := NewIntegrityMonitor(true, testLogger())

	m.HandleEvent(models.ViolationEvent{Category: models.ViolationPaste})
	m.HandleEvent(models.ViolationEvent{Category: models.ViolationPaste, NewValue: []string{"clip"}})

	batch := m.Drain()
	require.Len(t, batch, 1)
	assert.Equal(t, models.EventPasteAttempt, batch[0].Event)
	assert.Equal(t, []string{"clip"}, batch[0].NewValue)
	assert.False(t, batch[0].Timestamp.IsZero())
}

package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCollectAll(t *testing.T) {
	reg := NewAnswerRegistry(testLogger())

	answered := &CollectedAnswer{Record: &models.AnswerRecord{Kind: models.AnswerKindChoice, Selected: "a"}}
	reg.RegisterCollector(7, func() *CollectedAnswer { return answered })
	reg.RegisterCollector(3, func() *CollectedAnswer { return nil })

	raw := reg.CollectAll()
	require.Len(t, raw, 2)
	// Sorted by question id, unanswered entries still present.
	assert.Equal(t, uint(3), raw[0].QuestionID)
	assert.Nil(t, raw[0].Collected)
	assert.Equal(t, uint(7), raw[1].QuestionID)
	assert.Same(t, answered, raw[1].Collected)
}

func TestRegistryUnregisterIsTokenScoped(t *testing.T) {
	reg := NewAnswerRegistry(testLogger())

	first := reg.RegisterCollector(1, func() *CollectedAnswer { return nil })
	reg.RegisterCollector(1, func() *CollectedAnswer {
		return &CollectedAnswer{Record: &models.AnswerRecord{Kind: models.AnswerKindText, Text: "second"}}
	})

	// The stale unregister must not evict the replacement.
	first()
	raw := reg.CollectAll()
	require.Len(t, raw, 1)
	require.NotNil(t, raw[0].Collected)
	assert.Equal(t, "second", raw[0].Collected.Record.Text)
}

func snapshotFor(questionID uint, items ...models.ContentItem) *models.SubmissionSnapshot {
	return &models.SubmissionSnapshot{
		SectionDetails: []models.SectionDetail{{
			QuestionResults: []models.QuestionResult{{
				QuestionID:       questionID,
				SubmittedContent: models.AnswerContent{Data: items},
			}},
		}},
	}
}

func TestRegistryRestoreImmediate(t *testing.T) {
	reg := NewAnswerRegistry(testLogger())

	var got []models.ContentItem
	reg.RegisterRestorer(4, func(items []models.ContentItem) { got = items })

	reg.RestoreFrom(snapshotFor(4, models.ContentItem{ID: "x", Value: "cat"}))
	require.Len(t, got, 1)
	assert.Equal(t, "cat", got[0].Value)
}

func TestRegistryRestoreRetriesUntilMount(t *testing.T) {
	reg := NewAnswerRegistry(testLogger())
	reg.retryInterval = 5 * time.Millisecond
	defer reg.Close()

	var mu sync.Mutex
	var got []models.ContentItem

	reg.RestoreFrom(snapshotFor(9, models.ContentItem{ID: "y", Value: "late"}))

	// Mount the widget after the snapshot arrived.
	time.Sleep(10 * time.Millisecond)
	reg.RegisterRestorer(9, func(items []models.ContentItem) {
		mu.Lock()
		got = items
		mu.Unlock()
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].Value == "late"
	}, time.Second, 5*time.Millisecond)
}

func TestRegistryRestoreGivesUpAfterClose(t *testing.T) {
	reg := NewAnswerRegistry(testLogger())
	reg.retryInterval = 5 * time.Millisecond

	var mu sync.Mutex
	called := false

	reg.RestoreFrom(snapshotFor(2, models.ContentItem{ID: "z", Value: "never"}))
	reg.Close()

	time.Sleep(20 * time.Millisecond)
	reg.RegisterRestorer(2, func(items []models.ContentItem) {
		mu.Lock()
		called = true
		mu.Unlock()
	})

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, called, "retry loop should stop at close")
}

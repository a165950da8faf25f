package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolationBatchRecords(t *testing.T) {
	ts := time.Now().Truncate(time.Second)
	batch := ViolationBatch{
		SubmissionID: 12,
		Logs: []models.ViolationLog{
			{Event: models.EventCopyAttempt, Timestamp: ts, OldValue: []string{"copied text"}},
			{Event: models.EventTabSwitch, Timestamp: ts, DurationMs: 4200},
		},
	}

	records, err := batch.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, uint(12), records[0].SubmissionID)
	assert.Equal(t, models.EventCopyAttempt, records[0].Event)
	assert.Equal(t, ts, records[0].RecordedAt)

	// The full log round-trips through the jsonb column.
	var log models.ViolationLog
	require.NoError(t, json.Unmarshal(records[1].Data, &log))
	assert.Equal(t, models.EventTabSwitch, log.Event)
	assert.Equal(t, int64(4200), log.DurationMs)
}

func TestGetViolationsOwnership(t *testing.T) {
	repo := newFakeRepository()
	repo.submission.submissions = []*models.Submission{
		{ID: 101, StudentID: "student-1", Status: models.SessionSubmitted},
	}
	repo.violation.records = []*models.ViolationRecord{
		{ID: 1, SubmissionID: 101, Event: models.EventTabSwitch},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewProctoringService(nil, repo, logger)
	ctx := context.Background()

	t.Run("owner reads their history", func(t *testing.T) {
		records, err := svc.GetViolations(ctx, 101, "student-1")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, models.EventTabSwitch, records[0].Event)
	})

	t.Run("other students are denied", func(t *testing.T) {
		_, err := svc.GetViolations(ctx, 101, "student-2")
		var pe *PermissionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "submission", pe.Resource)
	})

	t.Run("unknown submission", func(t *testing.T) {
		_, err := svc.GetViolations(ctx, 999, "student-1")
		assert.ErrorIs(t, err, ErrSubmissionNotFound)
	})
}

func TestViolationBatchRoundTrip(t *testing.T) {
	batch := ViolationBatch{
		SubmissionID: 3,
		Logs:         []models.ViolationLog{{Event: models.EventPasteAttempt, NewValue: []string{"clip"}}},
	}

	data, err := json.Marshal(&batch)
	require.NoError(t, err)

	var decoded ViolationBatch
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, batch.SubmissionID, decoded.SubmissionID)
	require.Len(t, decoded.Logs, 1)
	assert.Equal(t, []string{"clip"}, decoded.Logs[0].NewValue)
}

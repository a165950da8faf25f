package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/SAP-F-2025/session-engine/internal/repositories"
	"github.com/SAP-F-2025/session-engine/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ===== FAKE REPOSITORY =====

type fakeChallengeRepo struct {
	challenge *models.Challenge
}

func (f *fakeChallengeRepo) GetByID(ctx context.Context, id uint) (*models.Challenge, error) {
	if f.challenge == nil || f.challenge.ID != id {
		return nil, repositories.ErrRecordNotFound
	}
	return f.challenge, nil
}

type fakeQuestionRepo struct{}

func (f *fakeQuestionRepo) GetByChallenge(ctx context.Context, challengeID uint) ([]models.Question, error) {
	return nil, nil
}

type fakeSubmissionRepo struct {
	submissions []*models.Submission
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	for _, s := range f.submissions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repositories.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) GetInProgress(ctx context.Context, challengeID uint, studentID string) (*models.Submission, error) {
	return nil, repositories.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) List(ctx context.Context, challengeID uint, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	return f.submissions, int64(len(f.submissions)), nil
}

func (f *fakeSubmissionRepo) Save(ctx context.Context, submissionID, challengeID uint, studentID string, payload *models.SavePayload) (*models.Submission, error) {
	return nil, repositories.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) MarkStarted(ctx context.Context, challengeID uint, studentID string, at time.Time) error {
	return nil
}

func (f *fakeSubmissionRepo) Timing(ctx context.Context, challengeID uint, studentID string) (*models.SessionTiming, error) {
	return nil, repositories.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) Snapshot(ctx context.Context, submissionID uint) (*models.SubmissionSnapshot, error) {
	return nil, repositories.ErrRecordNotFound
}

type fakeViolationRepo struct {
	records []*models.ViolationRecord
}

func (f *fakeViolationRepo) CreateBatch(ctx context.Context, records []*models.ViolationRecord) error {
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeViolationRepo) GetBySubmission(ctx context.Context, submissionID uint) ([]*models.ViolationRecord, error) {
	return f.records, nil
}

type fakeRepository struct {
	challenge  *fakeChallengeRepo
	question   *fakeQuestionRepo
	submission *fakeSubmissionRepo
	violation  *fakeViolationRepo
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		challenge:  &fakeChallengeRepo{},
		question:   &fakeQuestionRepo{},
		submission: &fakeSubmissionRepo{},
		violation:  &fakeViolationRepo{},
	}
}

func (f *fakeRepository) Challenge() repositories.ChallengeRepository   { return f.challenge }
func (f *fakeRepository) Question() repositories.QuestionRepository     { return f.question }
func (f *fakeRepository) Submission() repositories.SubmissionRepository { return f.submission }
func (f *fakeRepository) Violation() repositories.ViolationRepository   { return f.violation }

// ===== TESTS =====

func newTestExportService(repo repositories.Repository) ExportService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExportService(repo, logger, utils.NewValidator())
}

func TestExportSubmissions(t *testing.T) {
	repo := newFakeRepository()
	repo.challenge.challenge = &models.Challenge{ID: 5, Title: "Final Exam"}

	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	reason := "TIMEOUT"
	repo.submission.submissions = []*models.Submission{
		{
			ID:        101,
			StudentID: "student-1",
			Status:    models.SessionSubmitted,
			StartedAt: &started,
			EndReason: &reason,
			Answers:   []models.SubmissionAnswer{{QuestionID: 1}, {QuestionID: 2}},
		},
		{ID: 102, StudentID: "student-2", Status: models.SessionInProgress},
	}

	svc := newTestExportService(repo)
	data, err := svc.ExportSubmissions(context.Background(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Submissions")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Submission ID", rows[0][0])
	assert.Equal(t, "101", rows[1][0])
	assert.Equal(t, "student-1", rows[1][1])
	assert.Equal(t, "TIMEOUT", rows[1][5])
	assert.Equal(t, "2", rows[1][6])
	assert.Equal(t, "student-2", rows[2][1])
}

func TestExportSubmissionsUnknownChallenge(t *testing.T) {
	svc := newTestExportService(newFakeRepository())

	_, err := svc.ExportSubmissions(context.Background(), 999)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestExportViolations(t *testing.T) {
	repo := newFakeRepository()
	repo.violation.records = []*models.ViolationRecord{
		{
			ID:           1,
			SubmissionID: 101,
			Event:        models.EventTabSwitch,
			Data:         []byte(`{"durationMs":3000}`),
			RecordedAt:   time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC),
		},
	}

	svc := newTestExportService(repo)
	data, err := svc.ExportViolations(context.Background(), 101)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Violations")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.EventTabSwitch, rows[1][2])
	assert.Equal(t, `{"durationMs":3000}`, rows[1][4])
}

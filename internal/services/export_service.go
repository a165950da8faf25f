package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/session-engine/internal/repositories"
	"github.com/SAP-F-2025/session-engine/internal/utils"
	"github.com/xuri/excelize/v2"
)

// ExportService renders submission and violation history for review.
type ExportService interface {
	ExportSubmissions(ctx context.Context, challengeID uint) ([]byte, error)
	ExportViolations(ctx context.Context, submissionID uint) ([]byte, error)
}

type exportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
}

func NewExportService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator) ExportService {
	return &exportService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *exportService) ExportSubmissions(ctx context.Context, challengeID uint) ([]byte, error) {
	if _, err := s.repo.Challenge().GetByID(ctx, challengeID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	submissions, _, err := s.repo.Submission().List(ctx, challengeID, repositories.SubmissionFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Submissions"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Submission ID", "Student ID", "Status", "Started At", "Submitted At",
		"End Reason", "Answers Saved",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, submission := range submissions {
		row := []interface{}{
			submission.ID,
			submission.StudentID,
			string(submission.Status),
		}

		if submission.StartedAt != nil {
			row = append(row, submission.StartedAt.Format("2006-01-02 15:04:05"))
		} else {
			row = append(row, "")
		}
		if submission.SubmittedAt != nil {
			row = append(row, submission.SubmittedAt.Format("2006-01-02 15:04:05"))
		} else {
			row = append(row, "")
		}
		if submission.EndReason != nil {
			row = append(row, *submission.EndReason)
		} else {
			row = append(row, "")
		}
		row = append(row, len(submission.Answers))

		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("submissions exported",
		"challenge_id", challengeID,
		"count", len(submissions))
	return buf.Bytes(), nil
}

func (s *exportService) ExportViolations(ctx context.Context, submissionID uint) ([]byte, error) {
	records, err := s.repo.Violation().GetBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get violations: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Violations"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Submission ID", "Event", "Recorded At", "Data"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, record := range records {
		row := []interface{}{
			record.ID,
			record.SubmissionID,
			record.Event,
			record.RecordedAt.Format("2006-01-02 15:04:05"),
			string(record.Data),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("violations exported",
		"submission_id", submissionID,
		"count", len(records))
	return buf.Bytes(), nil
}

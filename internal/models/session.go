package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
	SessionGraded     SessionStatus = "graded"
)

const SessionEndReasonTimeout = "time_out"

// Session is one attempt at one assessment, created when the take screen
// mounts and destroyed on navigation away.
type Session struct {
	ChallengeID  uint          `json:"challenge_id"`
	SubmissionID uint          `json:"submission_id"` // 0 until resolved; stable afterwards
	StudentID    string        `json:"student_id"`
	Status       SessionStatus `json:"status"`

	// Deadline is computed once from startedAt + duration and never
	// recomputed from remaining time.
	StartedAt *time.Time `json:"started_at"`
	Deadline  *time.Time `json:"deadline"`

	RequireProctoring bool `json:"require_proctoring"`
}

// ViewOnly reports whether the session is past the point of accepting input.
func (s *Session) ViewOnly() bool {
	return s.Status != SessionInProgress
}

// SessionTiming is the backend's answer to a session-timing fetch.
type SessionTiming struct {
	DurationSeconds int        `json:"duration_seconds"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
}

// ===== PERSISTED RECORDS =====

// Submission is the backend record identifying one attempt; exactly one per session.
type Submission struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	ChallengeID uint          `json:"challenge_id" gorm:"not null;index"`
	StudentID   string        `json:"student_id" gorm:"not null;index;size:255"`
	Status      SessionStatus `json:"status" gorm:"default:in_progress;index"`

	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	EndReason   *string    `json:"end_reason" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []SubmissionAnswer `json:"answers" gorm:"foreignKey:SubmissionID"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmissionAnswer is one persisted question answer, stored in the canonical
// wire shape so restoration can replay it directly.
type SubmissionAnswer struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	SubmissionID uint `json:"submission_id" gorm:"not null;index"`
	QuestionID   uint `json:"question_id" gorm:"not null;index"`

	// Content holds the serialized AnswerContent.
	Content datatypes.JSON `json:"content" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SubmissionAnswer) TableName() string {
	return "submission_answers"
}

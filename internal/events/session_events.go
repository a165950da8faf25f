package events

import (
	"time"

	"github.com/google/uuid"
)

type SessionEventType string

const (
	EventSessionStarted     SessionEventType = "session.started"
	EventDraftSaved         SessionEventType = "session.draft_saved"
	EventSessionSubmitted   SessionEventType = "session.submitted"
	EventSessionTimedOut    SessionEventType = "session.timed_out"
	EventViolationEscalated SessionEventType = "session.violation_escalated"
)

// SessionEvent is the envelope published for every session lifecycle change.
type SessionEvent struct {
	ID        string           `json:"id"`
	Type      SessionEventType `json:"type"`
	Source    string           `json:"source"`
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Data      interface{}      `json:"data"`
}

// NewSessionEvent stamps a fresh envelope around event data.
func NewSessionEvent(eventType SessionEventType, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "session-engine",
		Version:   "1.0",
		Timestamp: time.Now(),
		Data:      data,
	}
}

// ===== EVENT DATA =====

type SessionStartedEvent struct {
	ChallengeID uint       `json:"challenge_id"`
	StudentID   string     `json:"student_id"`
	StartedAt   time.Time  `json:"started_at"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

type DraftSavedEvent struct {
	ChallengeID  uint `json:"challenge_id"`
	SubmissionID uint `json:"submission_id"`
	Answered     int  `json:"answered"`
	Total        int  `json:"total"`
}

type SessionSubmittedEvent struct {
	ChallengeID  uint   `json:"challenge_id"`
	SubmissionID uint   `json:"submission_id"`
	StudentID    string `json:"student_id"`
	EndReason    string `json:"end_reason,omitempty"`
}

type ViolationEscalatedEvent struct {
	SubmissionID uint   `json:"submission_id"`
	Event        string `json:"event"`
	Occurrence   int    `json:"occurrence"`
}

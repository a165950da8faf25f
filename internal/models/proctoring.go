package models

import (
	"time"

	"gorm.io/datatypes"
)

type ViolationCategory string

const (
	ViolationTabSwitch ViolationCategory = "TAB_SWITCH"
	ViolationCopy      ViolationCategory = "COPY"
	ViolationPaste     ViolationCategory = "PASTE"
)

// Reportable event names, one per category.
const (
	EventTabSwitch    = "TAB_SWITCH"
	EventCopyAttempt  = "COPY_ATTEMPT"
	EventPasteAttempt = "PASTE_ATTEMPT"
)

// EventName maps a category to its report entry name.
func (c ViolationCategory) EventName() string {
	switch c {
	case ViolationCopy:
		return EventCopyAttempt
	case ViolationPaste:
		return EventPasteAttempt
	default:
		return EventTabSwitch
	}
}

// ViolationEvent is a raw detection from the host environment. Ephemeral;
// it becomes a ViolationLog only from the second occurrence of its category.
type ViolationEvent struct {
	Category  ViolationCategory `json:"category" validate:"required,oneof=TAB_SWITCH COPY PASTE"`
	Timestamp time.Time         `json:"timestamp"`

	// Contextual payload: selected text for copy, clipboard text for paste,
	// away-duration for tab switches.
	OldValue   []string `json:"oldValue,omitempty"`
	NewValue   []string `json:"newValue,omitempty"`
	DurationMs int64    `json:"durationMs,omitempty"`
	Content    string   `json:"content,omitempty"`
}

// ViolationLog is the reportable projection of a ViolationEvent, queued
// until flushed to the backend.
type ViolationLog struct {
	Event      string    `json:"event"`
	Timestamp  time.Time `json:"timestamp"`
	OldValue   []string  `json:"oldValue"`
	NewValue   []string  `json:"newValue"`
	DurationMs int64     `json:"durationMs"`
	Content    string    `json:"content"`
}

// ViolationRecord is the persisted form of a ViolationLog.
type ViolationRecord struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	SubmissionID uint   `json:"submission_id" gorm:"not null;index"`
	Event        string `json:"event" gorm:"not null;index;size:40"`

	Data       datatypes.JSON `json:"data" gorm:"type:jsonb"`
	RecordedAt time.Time      `json:"recorded_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (ViolationRecord) TableName() string {
	return "violation_records"
}

package models

import "time"

// Challenge is the assessment being taken. Authoring lives elsewhere; the
// engine only reads the fields that drive a taking session.
type Challenge struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Title string `json:"title" gorm:"not null;size:200"`

	// DurationSeconds of zero means the session is untimed.
	DurationSeconds   int  `json:"duration_seconds" gorm:"default:0"`
	RequireProctoring bool `json:"require_proctoring" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// ChallengeStart records when a student's session against a challenge was
// first marked started. Written at most once per student and challenge so a
// reload can never extend the effective deadline.
type ChallengeStart struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ChallengeID uint      `json:"challenge_id" gorm:"not null;uniqueIndex:idx_challenge_student_start"`
	StudentID   string    `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_challenge_student_start"`
	StartedAt   time.Time `json:"started_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (ChallengeStart) TableName() string {
	return "challenge_starts"
}

package models

import (
	"regexp"
	"time"
)

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiSelect  QuestionType = "multi_select"
	QuestionTrueFalse    QuestionType = "true_false"
	QuestionDropdown     QuestionType = "dropdown"
	QuestionFillBlank    QuestionType = "fill_blank"
	QuestionDragDrop     QuestionType = "drag_drop"
	QuestionReorder      QuestionType = "reorder"
	QuestionRewrite      QuestionType = "rewrite"
	QuestionWriting      QuestionType = "writing"
	QuestionAudio        QuestionType = "audio_response"
)

// Canonical ids for the two true/false options. Every boolean answer on the
// wire resolves to one of these regardless of how the option pool labels them.
const (
	TrueOptionID  = "true"
	FalseOptionID = "false"
)

// ContentItem is the unit of exchange with the backend, used both as an
// answer option in a question's pool and as a serialized answer fragment.
type ContentItem struct {
	ID         string  `json:"id"`
	Value      string  `json:"value"`
	PositionID *string `json:"positionId,omitempty"`
}

// Question is the immutable description of one question inside a session,
// fetched once when the session starts.
type Question struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	ChallengeID  uint          `json:"challenge_id" gorm:"not null;index"`
	Type         QuestionType  `json:"type" gorm:"not null" validate:"required"`
	PromptText   string        `json:"prompt_text" gorm:"type:text"`
	ContentItems []ContentItem `json:"content_items" gorm:"serializer:json;type:jsonb"`
	OrderNumber  int           `json:"order_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var positionMarkerRe = regexp.MustCompile(`\[\[([A-Za-z0-9_-]+)\]\]`)

// PositionMarkers returns the blank/slot markers found in the prompt text,
// in the order they appear. A prompt like "The [[b1]] sat on the [[b2]]"
// yields ["b1", "b2"].
func (q *Question) PositionMarkers() []string {
	matches := positionMarkerRe.FindAllStringSubmatch(q.PromptText, -1)
	if len(matches) == 0 {
		return nil
	}
	markers := make([]string, 0, len(matches))
	for _, m := range matches {
		markers = append(markers, m[1])
	}
	return markers
}

package models

// AnswerKind tags the closed set of in-memory answer representations.
// One kind per question type; the serialization protocol switches on it.
type AnswerKind string

const (
	AnswerKindChoice      AnswerKind = "choice"
	AnswerKindMultiSelect AnswerKind = "multi_select"
	AnswerKindBoolean     AnswerKind = "boolean"
	AnswerKindPositions   AnswerKind = "positions"
	AnswerKindSequence    AnswerKind = "sequence"
	AnswerKindText        AnswerKind = "text"
	AnswerKindMedia       AnswerKind = "media"
)

// AnswerRecord is a widget's in-memory answer. It is a tagged variant: only
// the fields belonging to Kind are meaningful. It never leaves a widget
// except through the serialization protocol.
type AnswerRecord struct {
	Kind AnswerKind `json:"kind"`

	// AnswerKindChoice / AnswerKindBoolean
	Selected string `json:"selected,omitempty"`
	Checked  *bool  `json:"checked,omitempty"`

	// AnswerKindMultiSelect
	SelectedSet []string `json:"selected_set,omitempty"`

	// AnswerKindPositions: positionID -> value (dropdown, fill-blank, drag-drop)
	Positions map[string]string `json:"positions,omitempty"`

	// AnswerKindSequence: seated values in slot order (reorder)
	Sequence []string `json:"sequence,omitempty"`

	// AnswerKindText (rewrite, writing)
	Text string `json:"text,omitempty"`

	// AnswerKindText fallback and AnswerKindMedia
	FileRefs []string `json:"file_refs,omitempty"`
	MediaURL string   `json:"media_url,omitempty"`
}

// IsEmpty reports whether the record carries no answer at all.
func (r *AnswerRecord) IsEmpty() bool {
	if r == nil {
		return true
	}
	switch r.Kind {
	case AnswerKindChoice:
		return r.Selected == ""
	case AnswerKindBoolean:
		return r.Checked == nil
	case AnswerKindMultiSelect:
		return len(r.SelectedSet) == 0
	case AnswerKindPositions:
		return len(r.Positions) == 0
	case AnswerKindSequence:
		return len(r.Sequence) == 0
	case AnswerKindText:
		return r.Text == "" && len(r.FileRefs) == 0
	case AnswerKindMedia:
		return r.MediaURL == "" && len(r.FileRefs) == 0
	}
	return true
}

// ===== WIRE TYPES =====

// AnswerContent wraps the serialized fragments of one answer.
type AnswerContent struct {
	Data []ContentItem `json:"data"`
}

// QuestionAnswer is one entry in a draft/submit payload.
type QuestionAnswer struct {
	QuestionID uint          `json:"questionId"`
	Content    AnswerContent `json:"content"`
}

// SavePayload is the draft/submit request body.
type SavePayload struct {
	SaveAsDraft     bool             `json:"saveAsDraft"`
	QuestionAnswers []QuestionAnswer `json:"questionAnswers" validate:"required"`
}

// SaveResult is the acknowledged outcome of a draft or final save.
type SaveResult struct {
	SubmissionID uint `json:"submissionId"`
}

// QuestionResult is one restored answer inside a submission snapshot.
type QuestionResult struct {
	QuestionID       uint          `json:"questionId"`
	QuestionType     QuestionType  `json:"questionType"`
	SubmittedContent AnswerContent `json:"submittedContent"`
	Score            *float64      `json:"score,omitempty"`
	ReceivedScore    *float64      `json:"receivedScore,omitempty"`
}

// SectionDetail groups restored answers the way the backend sections them.
type SectionDetail struct {
	Section         map[string]any   `json:"section,omitempty"`
	Questions       []QuestionResult `json:"questions,omitempty"`
	QuestionResults []QuestionResult `json:"questionResults,omitempty"`
}

// SubmissionSnapshot is the draft/result response shape consumed by restoration.
type SubmissionSnapshot struct {
	SectionDetails []SectionDetail `json:"sectionDetails"`
	SubmissionID   *uint           `json:"submissionId,omitempty"`
	ChallengeID    *uint           `json:"challengeId,omitempty"`
}

// Results flattens the snapshot's sections, tolerating both field spellings.
func (s *SubmissionSnapshot) Results() []QuestionResult {
	var out []QuestionResult
	for _, sd := range s.SectionDetails {
		out = append(out, sd.Questions...)
		out = append(out, sd.QuestionResults...)
	}
	return out
}

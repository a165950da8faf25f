package engine

import (
	"strconv"

	"github.com/SAP-F-2025/session-engine/internal/models"
)

// Codec maps a widget's in-memory answer to and from the canonical wire
// format. Pure and stateless given the content index: an unresolvable value
// falls back to itself as the id, never an error, so autosave stays resilient
// to partially-configured questions.
type Codec struct {
	index *ContentIndex
}

func NewCodec(index *ContentIndex) *Codec {
	return &Codec{index: index}
}

// ===== ENCODE =====

// Encode serializes one answer. A nil or empty record still yields an entry
// with empty content data so every question is explicitly accounted for.
func (c *Codec) Encode(q *models.Question, rec *models.AnswerRecord) models.QuestionAnswer {
	out := models.QuestionAnswer{
		QuestionID: q.ID,
		Content:    models.AnswerContent{Data: []models.ContentItem{}},
	}
	if rec == nil {
		return out
	}

	switch q.Type {
	case models.QuestionSingleChoice:
		if rec.Selected != "" {
			out.Content.Data = append(out.Content.Data, models.ContentItem{
				ID:    c.index.ResolveByValue(q.ID, rec.Selected),
				Value: rec.Selected,
			})
		}

	case models.QuestionTrueFalse:
		if rec.Checked != nil {
			id := models.FalseOptionID
			if *rec.Checked {
				id = models.TrueOptionID
			}
			out.Content.Data = append(out.Content.Data, models.ContentItem{
				ID:    id,
				Value: id,
			})
		}

	case models.QuestionMultiSelect:
		for _, sel := range rec.SelectedSet {
			out.Content.Data = append(out.Content.Data, models.ContentItem{
				ID:    c.index.ResolveByValue(q.ID, sel),
				Value: sel,
			})
		}

	case models.QuestionDropdown:
		// Markers with no typed value are omitted.
		for _, marker := range c.index.Markers(q.ID) {
			value, ok := rec.Positions[marker]
			if !ok || value == "" {
				continue
			}
			out.Content.Data = append(out.Content.Data, c.positionalItem(q.ID, marker, value))
		}

	case models.QuestionFillBlank:
		// Fill-blank always emits one record per marker, empty-valued or not,
		// to prove all markers were evaluated.
		for _, marker := range c.index.Markers(q.ID) {
			out.Content.Data = append(out.Content.Data, c.positionalItem(q.ID, marker, rec.Positions[marker]))
		}

	case models.QuestionDragDrop:
		// One record per occupied slot; duplicates from the pool are preserved.
		for _, marker := range c.index.Markers(q.ID) {
			value, ok := rec.Positions[marker]
			if !ok || value == "" {
				continue
			}
			out.Content.Data = append(out.Content.Data, c.positionalItem(q.ID, marker, value))
		}

	case models.QuestionReorder:
		markers := c.index.Markers(q.ID)
		for i, value := range rec.Sequence {
			positionID := strconv.Itoa(i)
			if i < len(markers) {
				positionID = markers[i]
			}
			pos := positionID
			out.Content.Data = append(out.Content.Data, models.ContentItem{
				ID:         c.index.ResolveByValue(q.ID, value),
				Value:      value,
				PositionID: &pos,
			})
		}

	case models.QuestionRewrite:
		if rec.Text != "" {
			out.Content.Data = append(out.Content.Data, models.ContentItem{
				ID:    rec.Text,
				Value: rec.Text,
			})
		}

	case models.QuestionWriting:
		if rec.Text != "" {
			out.Content.Data = append(out.Content.Data, models.ContentItem{
				ID:    rec.Text,
				Value: rec.Text,
			})
		} else {
			for _, ref := range rec.FileRefs {
				out.Content.Data = append(out.Content.Data, models.ContentItem{ID: ref, Value: ref})
			}
		}

	case models.QuestionAudio:
		if rec.MediaURL != "" {
			out.Content.Data = append(out.Content.Data, models.ContentItem{
				ID:    rec.MediaURL,
				Value: rec.MediaURL,
			})
		} else {
			// File-reference array is the accepted fallback projection.
			for _, ref := range rec.FileRefs {
				out.Content.Data = append(out.Content.Data, models.ContentItem{ID: ref, Value: ref})
			}
		}
	}

	return out
}

func (c *Codec) positionalItem(questionID uint, marker, value string) models.ContentItem {
	pos := marker
	return models.ContentItem{
		ID:         c.index.ResolveByPosition(questionID, marker, value),
		Value:      value,
		PositionID: &pos,
	}
}

// ===== DECODE =====

// Decode is the inverse mapping, used to restore a widget from a saved
// snapshot. Values are normalized before comparison against the option pool.
func (c *Codec) Decode(q *models.Question, content models.AnswerContent) *models.AnswerRecord {
	data := content.Data

	switch q.Type {
	case models.QuestionSingleChoice:
		rec := &models.AnswerRecord{Kind: models.AnswerKindChoice}
		if len(data) > 0 {
			rec.Selected = c.poolValue(q.ID, data[0])
		}
		return rec

	case models.QuestionTrueFalse:
		rec := &models.AnswerRecord{Kind: models.AnswerKindBoolean}
		if len(data) > 0 {
			checked := data[0].ID == models.TrueOptionID ||
				NormalizeValue(data[0].Value) == models.TrueOptionID
			rec.Checked = &checked
		}
		return rec

	case models.QuestionMultiSelect:
		rec := &models.AnswerRecord{Kind: models.AnswerKindMultiSelect}
		for _, item := range data {
			rec.SelectedSet = append(rec.SelectedSet, c.poolValue(q.ID, item))
		}
		return rec

	case models.QuestionDropdown, models.QuestionFillBlank, models.QuestionDragDrop:
		rec := &models.AnswerRecord{Kind: models.AnswerKindPositions, Positions: map[string]string{}}
		markers := c.index.Markers(q.ID)
		for i, item := range data {
			if item.Value == "" {
				continue
			}
			switch {
			case item.PositionID != nil:
				rec.Positions[*item.PositionID] = item.Value
			case i < len(markers):
				// Older snapshots may lack position metadata; fall back to
				// the order the markers appear in the prompt.
				rec.Positions[markers[i]] = item.Value
			}
		}
		return rec

	case models.QuestionReorder:
		rec := &models.AnswerRecord{Kind: models.AnswerKindSequence}
		for _, item := range data {
			rec.Sequence = append(rec.Sequence, item.Value)
		}
		return rec

	case models.QuestionRewrite:
		rec := &models.AnswerRecord{Kind: models.AnswerKindText}
		if len(data) > 0 {
			rec.Text = data[0].Value
		}
		return rec

	case models.QuestionWriting:
		rec := &models.AnswerRecord{Kind: models.AnswerKindText}
		if len(data) == 1 {
			rec.Text = data[0].Value
		} else {
			for _, item := range data {
				rec.FileRefs = append(rec.FileRefs, item.Value)
			}
		}
		return rec

	case models.QuestionAudio:
		rec := &models.AnswerRecord{Kind: models.AnswerKindMedia}
		if len(data) == 1 {
			rec.MediaURL = data[0].Value
		} else {
			for _, item := range data {
				rec.FileRefs = append(rec.FileRefs, item.Value)
			}
		}
		return rec
	}

	return nil
}

// poolValue maps a stored item back to the option pool's value, tolerating
// snapshots that stored either the stable id or a literal value.
func (c *Codec) poolValue(questionID uint, item models.ContentItem) string {
	if item.Value != "" {
		return item.Value
	}
	return c.index.ValueForID(questionID, item.ID)
}

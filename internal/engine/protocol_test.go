package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func choiceQuestion(id uint) models.Question {
	return models.Question{
		ID:   id,
		Type: models.QuestionSingleChoice,
		ContentItems: []models.ContentItem{
			{ID: "opt-1", Value: "<p>Paris</p>"},
			{ID: "opt-2", Value: "London"},
			{ID: "opt-3", Value: "Berlin"},
		},
	}
}

func fillBlankQuestion(id uint) models.Question {
	return models.Question{
		ID:         id,
		Type:       models.QuestionFillBlank,
		PromptText: "The [[b1]] sat on the [[b2]]",
	}
}

func dragDropQuestion(id uint) models.Question {
	return models.Question{
		ID:         id,
		Type:       models.QuestionDragDrop,
		PromptText: "[[s1]] and [[s2]] and [[s3]]",
		ContentItems: []models.ContentItem{
			{ID: "w-1", Value: "the"},
			{ID: "w-2", Value: "the"},
			{ID: "w-3", Value: "cat"},
		},
	}
}

func reorderQuestion(id uint) models.Question {
	return models.Question{
		ID:         id,
		Type:       models.QuestionReorder,
		PromptText: "[[p0]] [[p1]] [[p2]]",
		ContentItems: []models.ContentItem{
			{ID: "r-1", Value: "alpha"},
			{ID: "r-2", Value: "beta"},
			{ID: "r-3", Value: "alpha"},
		},
	}
}

func newTestCodec(questions ...models.Question) *Codec {
	return NewCodec(NewContentIndex(questions))
}

func TestCodecEncode_SingleChoice(t *testing.T) {
	q := choiceQuestion(1)
	codec := newTestCodec(q)

	t.Run("resolves id through normalized value", func(t *testing.T) {
		// The stored value has no markup; the pool item does.
		out := codec.Encode(&q, &models.AnswerRecord{Kind: models.AnswerKindChoice, Selected: "Paris"})
		require.Len(t, out.Content.Data, 1)
		assert.Equal(t, "opt-1", out.Content.Data[0].ID)
		assert.Equal(t, "Paris", out.Content.Data[0].Value)
	})

	t.Run("unknown value falls back to itself as id", func(t *testing.T) {
		out := codec.Encode(&q, &models.AnswerRecord{Kind: models.AnswerKindChoice, Selected: "Madrid"})
		require.Len(t, out.Content.Data, 1)
		assert.Equal(t, "Madrid", out.Content.Data[0].ID)
	})

	t.Run("nil record yields empty data entry", func(t *testing.T) {
		out := codec.Encode(&q, nil)
		assert.Equal(t, uint(1), out.QuestionID)
		require.NotNil(t, out.Content.Data)
		assert.Empty(t, out.Content.Data)
	})
}

func TestCodecEncode_TrueFalse(t *testing.T) {
	q := models.Question{ID: 2, Type: models.QuestionTrueFalse}
	codec := newTestCodec(q)

	out := codec.Encode(&q, &models.AnswerRecord{Kind: models.AnswerKindBoolean, Checked: boolPtr(true)})
	require.Len(t, out.Content.Data, 1)
	assert.Equal(t, models.TrueOptionID, out.Content.Data[0].ID)

	out = codec.Encode(&q, &models.AnswerRecord{Kind: models.AnswerKindBoolean, Checked: boolPtr(false)})
	require.Len(t, out.Content.Data, 1)
	assert.Equal(t, models.FalseOptionID, out.Content.Data[0].ID)

	out = codec.Encode(&q, &models.AnswerRecord{Kind: models.AnswerKindBoolean})
	assert.Empty(t, out.Content.Data)
}

func TestCodecEncode_FillBlank(t *testing.T) {
	q := fillBlankQuestion(3)
	codec := newTestCodec(q)

	t.Run("emits one record per marker even when untouched", func(t *testing.T) {
		out := codec.Encode(&q, &models.AnswerRecord{
			Kind:      models.AnswerKindPositions,
			Positions: map[string]string{"b2": "mat"},
		})
		require.Len(t, out.Content.Data, 2)
		assert.Equal(t, "b1", *out.Content.Data[0].PositionID)
		assert.Equal(t, "", out.Content.Data[0].Value)
		assert.Equal(t, "b2", *out.Content.Data[1].PositionID)
		assert.Equal(t, "mat", out.Content.Data[1].Value)
	})

	t.Run("all empty still accounts for every marker", func(t *testing.T) {
		out := codec.Encode(&q, &models.AnswerRecord{Kind: models.AnswerKindPositions, Positions: map[string]string{}})
		assert.Len(t, out.Content.Data, 2)
	})
}

func TestCodecEncode_DragDrop(t *testing.T) {
	q := dragDropQuestion(4)
	codec := newTestCodec(q)

	out := codec.Encode(&q, &models.AnswerRecord{
		Kind:      models.AnswerKindPositions,
		Positions: map[string]string{"s1": "the", "s3": "the"},
	})
	// Only occupied slots appear; duplicate words survive.
	require.Len(t, out.Content.Data, 2)
	assert.Equal(t, "s1", *out.Content.Data[0].PositionID)
	assert.Equal(t, "s3", *out.Content.Data[1].PositionID)
	assert.Equal(t, "the", out.Content.Data[0].Value)
	assert.Equal(t, "the", out.Content.Data[1].Value)
}

func TestCodecEncode_Reorder(t *testing.T) {
	q := reorderQuestion(5)
	codec := newTestCodec(q)

	out := codec.Encode(&q, &models.AnswerRecord{
		Kind:     models.AnswerKindSequence,
		Sequence: []string{"alpha", "beta", "alpha"},
	})
	require.Len(t, out.Content.Data, 3)
	assert.Equal(t, "p0", *out.Content.Data[0].PositionID)
	assert.Equal(t, "p1", *out.Content.Data[1].PositionID)
	assert.Equal(t, "p2", *out.Content.Data[2].PositionID)
	// Repeated words each resolve to the first matching pool id.
	assert.Equal(t, "alpha", out.Content.Data[2].Value)
}

func TestCodecDecode_RoundTrips(t *testing.T) {
	choice := choiceQuestion(1)
	blank := fillBlankQuestion(3)
	reorder := reorderQuestion(5)
	codec := newTestCodec(choice, blank, reorder)

	t.Run("single choice", func(t *testing.T) {
		enc := codec.Encode(&choice, &models.AnswerRecord{Kind: models.AnswerKindChoice, Selected: "London"})
		rec := codec.Decode(&choice, enc.Content)
		require.NotNil(t, rec)
		assert.Equal(t, "London", rec.Selected)
	})

	t.Run("fill blank", func(t *testing.T) {
		enc := codec.Encode(&blank, &models.AnswerRecord{
			Kind:      models.AnswerKindPositions,
			Positions: map[string]string{"b1": "cat", "b2": "mat"},
		})
		rec := codec.Decode(&blank, enc.Content)
		require.NotNil(t, rec)
		assert.Equal(t, map[string]string{"b1": "cat", "b2": "mat"}, rec.Positions)
	})

	t.Run("reorder keeps duplicates and order", func(t *testing.T) {
		enc := codec.Encode(&reorder, &models.AnswerRecord{
			Kind:     models.AnswerKindSequence,
			Sequence: []string{"beta", "alpha", "alpha"},
		})
		rec := codec.Decode(&reorder, enc.Content)
		require.NotNil(t, rec)
		assert.Equal(t, []string{"beta", "alpha", "alpha"}, rec.Sequence)
	})
}

func TestCodecDecode_PositionlessFallsBackToMarkerOrder(t *testing.T) {
	q := fillBlankQuestion(3)
	codec := newTestCodec(q)

	rec := codec.Decode(&q, models.AnswerContent{Data: []models.ContentItem{
		{ID: "x", Value: "cat"},
		{ID: "y", Value: "mat"},
	}})
	require.NotNil(t, rec)
	assert.Equal(t, map[string]string{"b1": "cat", "b2": "mat"}, rec.Positions)
}

func TestCodecDecode_IDOnlyItemResolvesPoolValue(t *testing.T) {
	q := choiceQuestion(1)
	codec := newTestCodec(q)

	rec := codec.Decode(&q, models.AnswerContent{Data: []models.ContentItem{{ID: "opt-2"}}})
	require.NotNil(t, rec)
	assert.Equal(t, "London", rec.Selected)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "Paris", NormalizeValue("<p>Paris</p>"))
	assert.Equal(t, "two words", NormalizeValue("  two \n\t words  "))
	assert.Equal(t, "a b", NormalizeValue("<b>a</b><i>b</i>"))
	assert.Equal(t, "", NormalizeValue("<br/>"))
}

func TestPositionMarkers(t *testing.T) {
	q := models.Question{PromptText: "The [[b1]] sat on the [[b2]], then [[b1]] left"}
	assert.Equal(t, []string{"b1", "b2", "b1"}, q.PositionMarkers())

	q = models.Question{PromptText: "no markers here"}
	assert.Nil(t, q.PositionMarkers())
}

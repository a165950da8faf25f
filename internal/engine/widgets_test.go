package engine

import (
	"testing"

	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWidget(t *testing.T, q *models.Question, codec *Codec, onChange func()) Widget {
	t.Helper()
	w, err := NewWidget(q, codec, onChange)
	require.NoError(t, err)
	return w
}

func TestNewWidgetUnsupportedType(t *testing.T) {
	q := &models.Question{ID: 1, Type: "essay_3d"}
	_, err := NewWidget(q, newTestCodec(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedQuestionType)
}

func TestChoiceWidgetNotifiesOnChange(t *testing.T) {
	q := choiceQuestion(1)
	changes := 0
	w := mustWidget(t, &q, newTestCodec(q), func() { changes++ }).(*ChoiceWidget)

	w.Select("Paris")
	w.Select("London")
	assert.Equal(t, 2, changes)
	assert.Equal(t, "London", w.Selected())
}

func TestMultiSelectToggle(t *testing.T) {
	q := models.Question{ID: 2, Type: models.QuestionMultiSelect, ContentItems: []models.ContentItem{
		{ID: "a", Value: "A"}, {ID: "b", Value: "B"},
	}}
	w := mustWidget(t, &q, newTestCodec(q), nil).(*MultiSelectWidget)

	w.Toggle("A")
	w.Toggle("B")
	assert.Equal(t, []string{"A", "B"}, w.Selected())

	// Toggling again removes.
	w.Toggle("A")
	assert.Equal(t, []string{"B"}, w.Selected())
}

func TestDropdownRejectsUnknownMarker(t *testing.T) {
	q := models.Question{ID: 3, Type: models.QuestionDropdown, PromptText: "pick [[d1]]"}
	w := mustWidget(t, &q, newTestCodec(q), nil).(*DropdownWidget)

	assert.ErrorIs(t, w.SetSelection("nope", "x"), ErrUnknownSlot)
	assert.NoError(t, w.SetSelection("d1", "x"))

	// Empty value clears the selection.
	require.NoError(t, w.SetSelection("d1", ""))
	assert.Nil(t, w.Collect())
}

func TestFillBlankCollectsEvenWhenEmpty(t *testing.T) {
	q := fillBlankQuestion(4)
	w := mustWidget(t, &q, newTestCodec(q), nil).(*FillBlankWidget)

	// An untouched fill-blank still hands the protocol a record so every
	// marker is emitted.
	collected := w.Collect()
	require.NotNil(t, collected)
	require.NotNil(t, collected.Record)

	require.NoError(t, w.SetBlank("b1", "cat"))
	assert.ErrorIs(t, w.SetBlank("zz", "x"), ErrUnknownSlot)
}

func TestDragDropDuplicatePool(t *testing.T) {
	q := dragDropQuestion(5)
	w := mustWidget(t, &q, newTestCodec(q), nil).(*DragDropWidget)

	// Pool: "the" x2, "cat" x1 over slots s1 s2 s3.
	require.NoError(t, w.Place("s1", "the"))
	require.NoError(t, w.Place("s2", "the"))
	assert.ErrorIs(t, w.Place("s3", "the"), ErrItemUnavailable)

	assert.Equal(t, []string{"cat"}, w.Available())

	// Re-placing over an occupied slot reuses its own copy.
	require.NoError(t, w.Place("s2", "the"))

	// Removing returns the copy to the pool.
	w.Remove("s1")
	assert.ElementsMatch(t, []string{"the", "cat"}, w.Available())
	require.NoError(t, w.Place("s3", "the"))

	assert.ErrorIs(t, w.Place("bogus", "cat"), ErrUnknownSlot)
}

func TestReorderSequenceValidation(t *testing.T) {
	q := reorderQuestion(6)
	w := mustWidget(t, &q, newTestCodec(q), nil).(*ReorderWidget)

	// Pool: alpha x2, beta x1.
	require.NoError(t, w.SetSequence([]string{"alpha", "beta", "alpha"}))
	assert.Equal(t, []string{"alpha", "beta", "alpha"}, w.Sequence())

	// Three alphas exceed the pool's two copies.
	assert.ErrorIs(t, w.SetSequence([]string{"alpha", "alpha", "alpha"}), ErrSequenceMismatch)
	assert.ErrorIs(t, w.SetSequence([]string{"gamma"}), ErrSequenceMismatch)

	// Failed validation left the seated order untouched.
	assert.Equal(t, []string{"alpha", "beta", "alpha"}, w.Sequence())
}

func TestAudioCaptureLifecycle(t *testing.T) {
	q := models.Question{ID: 7, Type: models.QuestionAudio}
	w := mustWidget(t, &q, newTestCodec(q), nil).(*AudioWidget)

	assert.ErrorIs(t, w.StopCapture("ref", "a.webm", "audio/webm", nil), ErrNoCaptureActive)

	require.NoError(t, w.StartCapture())
	assert.ErrorIs(t, w.StartCapture(), ErrCaptureActive)

	require.NoError(t, w.StopCapture("blob:1", "a.webm", "audio/webm", []byte("pcm")))
	pending := w.PendingUpload()
	require.NotNil(t, pending)
	assert.Equal(t, "blob:1", pending.LocalRef)
	assert.False(t, pending.Promoted())

	// A fresh capture may start after the previous one finished.
	require.NoError(t, w.StartCapture())
}

func TestWidgetRestoreIsIdempotent(t *testing.T) {
	q := choiceQuestion(8)
	codec := newTestCodec(q)
	w := mustWidget(t, &q, codec, nil).(*ChoiceWidget)

	items := []models.ContentItem{{ID: "opt-2", Value: "London"}}
	w.Restore(items)
	w.Restore(items)
	assert.Equal(t, "London", w.Selected())
}

func TestWritingWidgetTextWinsOverFiles(t *testing.T) {
	q := models.Question{ID: 9, Type: models.QuestionWriting}
	codec := newTestCodec(q)
	w := mustWidget(t, &q, codec, nil).(*WritingWidget)

	w.AttachFile("https://cdn/essay.pdf")
	w.SetText("typed instead")

	enc := codec.Encode(&q, w.Collect().Record)
	require.Len(t, enc.Content.Data, 1)
	assert.Equal(t, "typed instead", enc.Content.Data[0].Value)
}

func TestWidgetMountRegistersWithRegistry(t *testing.T) {
	q := choiceQuestion(10)
	reg := NewAnswerRegistry(testLogger())
	w := mustWidget(t, &q, newTestCodec(q), nil)

	w.Mount(reg)
	w.(*ChoiceWidget).Select("Berlin")

	raw := reg.CollectAll()
	require.Len(t, raw, 1)
	require.NotNil(t, raw[0].Collected)
	assert.Equal(t, "Berlin", raw[0].Collected.Record.Selected)

	w.Unmount()
	assert.Empty(t, reg.CollectAll())
}

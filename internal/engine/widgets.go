package engine

import (
	"sync"

	"github.com/SAP-F-2025/session-engine/internal/models"
)

// Widget is the uniform registration contract every question variant
// implements. Answers enter and leave a widget only through the registry:
// Collect feeds draft/submit payloads, Restore replays a saved snapshot.
type Widget interface {
	QuestionID() uint
	Type() models.QuestionType

	Mount(reg *AnswerRegistry)
	Unmount()

	Collect() *CollectedAnswer
	Restore(items []models.ContentItem)
}

// NewWidget builds the widget variant for a question's type.
func NewWidget(q *models.Question, codec *Codec, onChange func()) (Widget, error) {
	base := baseWidget{question: q, codec: codec, onChange: onChange}
	switch q.Type {
	case models.QuestionSingleChoice:
		return &ChoiceWidget{baseWidget: base}, nil
	case models.QuestionMultiSelect:
		return &MultiSelectWidget{baseWidget: base}, nil
	case models.QuestionTrueFalse:
		return &BooleanWidget{baseWidget: base}, nil
	case models.QuestionDropdown:
		return &DropdownWidget{baseWidget: base, selections: map[string]string{}}, nil
	case models.QuestionFillBlank:
		return &FillBlankWidget{baseWidget: base, blanks: map[string]string{}}, nil
	case models.QuestionDragDrop:
		return &DragDropWidget{baseWidget: base, placements: map[string]string{}}, nil
	case models.QuestionReorder:
		return &ReorderWidget{baseWidget: base}, nil
	case models.QuestionRewrite:
		return &RewriteWidget{baseWidget: base}, nil
	case models.QuestionWriting:
		return &WritingWidget{baseWidget: base}, nil
	case models.QuestionAudio:
		return &AudioWidget{baseWidget: base}, nil
	}
	return nil, ErrUnsupportedQuestionType
}

// ===== BASE =====

type baseWidget struct {
	mu       sync.Mutex
	question *models.Question
	codec    *Codec
	onChange func()

	unregCollector func()
	unregRestorer  func()
}

func (w *baseWidget) QuestionID() uint          { return w.question.ID }
func (w *baseWidget) Type() models.QuestionType { return w.question.Type }

func (w *baseWidget) mount(reg *AnswerRegistry, collect CollectorFunc, restore RestorerFunc) {
	w.unregCollector = reg.RegisterCollector(w.question.ID, collect)
	w.unregRestorer = reg.RegisterRestorer(w.question.ID, restore)
}

func (w *baseWidget) Unmount() {
	if w.unregCollector != nil {
		w.unregCollector()
	}
	if w.unregRestorer != nil {
		w.unregRestorer()
	}
}

func (w *baseWidget) notify() {
	if w.onChange != nil {
		w.onChange()
	}
}

func (w *baseWidget) collected(rec *models.AnswerRecord) *CollectedAnswer {
	if rec.IsEmpty() {
		return nil
	}
	return &CollectedAnswer{
		Record:       rec,
		QuestionType: w.question.Type,
		Options:      w.question.ContentItems,
	}
}

// ===== SINGLE CHOICE =====

type ChoiceWidget struct {
	baseWidget
	selected string
}

func (w *ChoiceWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

func (w *ChoiceWidget) Select(value string) {
	w.mu.Lock()
	w.selected = value
	w.mu.Unlock()
	w.notify()
}

func (w *ChoiceWidget) Selected() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

func (w *ChoiceWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected(&models.AnswerRecord{Kind: models.AnswerKindChoice, Selected: w.selected})
}

func (w *ChoiceWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.selected = rec.Selected
	w.mu.Unlock()
}

// ===== MULTI SELECT =====

type MultiSelectWidget struct {
	baseWidget
	selected []string
}

func (w *MultiSelectWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

// Toggle adds the value to the selection, or removes it when already chosen.
func (w *MultiSelectWidget) Toggle(value string) {
	w.mu.Lock()
	found := -1
	for i, v := range w.selected {
		if v == value {
			found = i
			break
		}
	}
	if found >= 0 {
		w.selected = append(w.selected[:found], w.selected[found+1:]...)
	} else {
		w.selected = append(w.selected, value)
	}
	w.mu.Unlock()
	w.notify()
}

func (w *MultiSelectWidget) Selected() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.selected...)
}

func (w *MultiSelectWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected(&models.AnswerRecord{
		Kind:        models.AnswerKindMultiSelect,
		SelectedSet: append([]string(nil), w.selected...),
	})
}

func (w *MultiSelectWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.selected = rec.SelectedSet
	w.mu.Unlock()
}

// ===== TRUE / FALSE =====

type BooleanWidget struct {
	baseWidget
	checked *bool
}

func (w *BooleanWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

func (w *BooleanWidget) Set(value bool) {
	w.mu.Lock()
	w.checked = &value
	w.mu.Unlock()
	w.notify()
}

func (w *BooleanWidget) Checked() *bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checked
}

func (w *BooleanWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected(&models.AnswerRecord{Kind: models.AnswerKindBoolean, Checked: w.checked})
}

func (w *BooleanWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.checked = rec.Checked
	w.mu.Unlock()
}

// ===== DROPDOWN =====

type DropdownWidget struct {
	baseWidget
	selections map[string]string // positionID -> chosen value
}

func (w *DropdownWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

func (w *DropdownWidget) SetSelection(positionID, value string) error {
	if !w.hasMarker(positionID) {
		return ErrUnknownSlot
	}
	w.mu.Lock()
	if value == "" {
		delete(w.selections, positionID)
	} else {
		w.selections[positionID] = value
	}
	w.mu.Unlock()
	w.notify()
	return nil
}

func (w *DropdownWidget) hasMarker(positionID string) bool {
	for _, m := range w.codec.index.Markers(w.question.ID) {
		if m == positionID {
			return true
		}
	}
	return false
}

func (w *DropdownWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected(&models.AnswerRecord{Kind: models.AnswerKindPositions, Positions: copyMap(w.selections)})
}

func (w *DropdownWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.selections = rec.Positions
	w.mu.Unlock()
}

// ===== FILL BLANK =====

type FillBlankWidget struct {
	baseWidget
	blanks map[string]string // positionID -> typed text
}

func (w *FillBlankWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

func (w *FillBlankWidget) SetBlank(positionID, text string) error {
	known := false
	for _, m := range w.codec.index.Markers(w.question.ID) {
		if m == positionID {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownSlot
	}
	w.mu.Lock()
	if text == "" {
		delete(w.blanks, positionID)
	} else {
		w.blanks[positionID] = text
	}
	w.mu.Unlock()
	w.notify()
	return nil
}

func (w *FillBlankWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	// The protocol still emits a record per marker even when nothing was
	// typed, so an all-empty widget must not report "no answer".
	rec := &models.AnswerRecord{Kind: models.AnswerKindPositions, Positions: copyMap(w.blanks)}
	return &CollectedAnswer{
		Record:       rec,
		QuestionType: w.question.Type,
		Options:      w.question.ContentItems,
	}
}

func (w *FillBlankWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.blanks = rec.Positions
	w.mu.Unlock()
}

// ===== DRAG TO SLOT =====

// DragDropWidget tracks slot occupancy against the question's word pool.
// The pool may contain the same word more than once; each copy is draggable
// and placeable independently.
type DragDropWidget struct {
	baseWidget
	placements map[string]string // slot (positionID) -> placed value
}

func (w *DragDropWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

// Place seats a copy of value into a slot. Fails when the slot is unknown or
// every copy of the value in the pool is already placed elsewhere.
func (w *DragDropWidget) Place(slot, value string) error {
	if !w.knownSlot(slot) {
		return ErrUnknownSlot
	}
	w.mu.Lock()
	if w.remainingCopies(value, slot) <= 0 {
		w.mu.Unlock()
		return ErrItemUnavailable
	}
	w.placements[slot] = value
	w.mu.Unlock()
	w.notify()
	return nil
}

// Remove clears a slot, returning its copy to the pool.
func (w *DragDropWidget) Remove(slot string) {
	w.mu.Lock()
	delete(w.placements, slot)
	w.mu.Unlock()
	w.notify()
}

// Available returns the pool values still draggable, one entry per unplaced
// copy (a word listed twice in the pool appears twice while unplaced).
func (w *DragDropWidget) Available() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	used := map[string]int{}
	for _, v := range w.placements {
		used[NormalizeValue(v)]++
	}
	var out []string
	for _, item := range w.question.ContentItems {
		key := NormalizeValue(item.Value)
		if used[key] > 0 {
			used[key]--
			continue
		}
		out = append(out, item.Value)
	}
	return out
}

func (w *DragDropWidget) knownSlot(slot string) bool {
	for _, m := range w.codec.index.Markers(w.question.ID) {
		if m == slot {
			return true
		}
	}
	return false
}

// remainingCopies counts pool copies of value not yet seated in other slots.
// The target slot's own occupant is excluded so re-placing over it works.
func (w *DragDropWidget) remainingCopies(value, targetSlot string) int {
	key := NormalizeValue(value)
	total := 0
	for _, item := range w.question.ContentItems {
		if NormalizeValue(item.Value) == key {
			total++
		}
	}
	for slot, v := range w.placements {
		if slot != targetSlot && NormalizeValue(v) == key {
			total--
		}
	}
	return total
}

func (w *DragDropWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected(&models.AnswerRecord{Kind: models.AnswerKindPositions, Positions: copyMap(w.placements)})
}

func (w *DragDropWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.placements = rec.Positions
	w.mu.Unlock()
}

// ===== REORDER =====

// ReorderWidget holds the sequence of currently-seated values in slot order.
// Repeated identical words are legal; the sequence is validated against the
// pool as a multiset.
type ReorderWidget struct {
	baseWidget
	sequence []string
}

func (w *ReorderWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

// SetSequence replaces the seated order. Every value must come from the
// pool, consuming one copy per occurrence.
func (w *ReorderWidget) SetSequence(values []string) error {
	remaining := map[string]int{}
	for _, item := range w.question.ContentItems {
		remaining[NormalizeValue(item.Value)]++
	}
	for _, v := range values {
		key := NormalizeValue(v)
		if remaining[key] <= 0 {
			return ErrSequenceMismatch
		}
		remaining[key]--
	}

	w.mu.Lock()
	w.sequence = append([]string(nil), values...)
	w.mu.Unlock()
	w.notify()
	return nil
}

func (w *ReorderWidget) Sequence() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.sequence...)
}

func (w *ReorderWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected(&models.AnswerRecord{
		Kind:     models.AnswerKindSequence,
		Sequence: append([]string(nil), w.sequence...),
	})
}

func (w *ReorderWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.sequence = rec.Sequence
	w.mu.Unlock()
}

// ===== REWRITE =====

type RewriteWidget struct {
	baseWidget
	text string
}

func (w *RewriteWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

func (w *RewriteWidget) SetText(text string) {
	w.mu.Lock()
	w.text = text
	w.mu.Unlock()
	w.notify()
}

func (w *RewriteWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected(&models.AnswerRecord{Kind: models.AnswerKindText, Text: w.text})
}

func (w *RewriteWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.text = rec.Text
	w.mu.Unlock()
}

// ===== LONG-FORM WRITING =====

type WritingWidget struct {
	baseWidget
	text     string
	fileRefs []string
}

func (w *WritingWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

func (w *WritingWidget) SetText(text string) {
	w.mu.Lock()
	w.text = text
	w.mu.Unlock()
	w.notify()
}

// AttachFile adds an uploaded-file reference, used as the answer when no
// text was entered.
func (w *WritingWidget) AttachFile(ref string) {
	w.mu.Lock()
	w.fileRefs = append(w.fileRefs, ref)
	w.mu.Unlock()
	w.notify()
}

func (w *WritingWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collected(&models.AnswerRecord{
		Kind:     models.AnswerKindText,
		Text:     w.text,
		FileRefs: append([]string(nil), w.fileRefs...),
	})
}

func (w *WritingWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	w.text = rec.Text
	w.fileRefs = rec.FileRefs
	w.mu.Unlock()
}

// ===== AUDIO RESPONSE =====

// AudioWidget holds the captured or selected recording. The local handle is
// playable immediately; the uploader promotes it to a durable URL before it
// is allowed into a payload. At most one capture is active at a time.
type AudioWidget struct {
	baseWidget
	capturing bool
	pending   *models.PendingUpload
	fileRefs  []string
}

func (w *AudioWidget) Mount(reg *AnswerRegistry) { w.mount(reg, w.Collect, w.Restore) }

func (w *AudioWidget) StartCapture() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.capturing {
		return ErrCaptureActive
	}
	w.capturing = true
	return nil
}

// StopCapture finishes the active capture, keeping the recording as a
// transient local handle until the uploader promotes it.
func (w *AudioWidget) StopCapture(localRef, name, mimeType string, data []byte) error {
	w.mu.Lock()
	if !w.capturing {
		w.mu.Unlock()
		return ErrNoCaptureActive
	}
	w.capturing = false
	w.pending = &models.PendingUpload{
		LocalRef: localRef,
		Name:     name,
		MimeType: mimeType,
		Bytes:    data,
	}
	w.mu.Unlock()
	w.notify()
	return nil
}

// AttachRecording accepts a pre-recorded file instead of a live capture.
func (w *AudioWidget) AttachRecording(p *models.PendingUpload) {
	w.mu.Lock()
	w.pending = p
	w.mu.Unlock()
	w.notify()
}

// PendingUpload exposes the transient handle for promotion.
func (w *AudioWidget) PendingUpload() *models.PendingUpload {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

func (w *AudioWidget) Collect() *CollectedAnswer {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec := &models.AnswerRecord{Kind: models.AnswerKindMedia, FileRefs: append([]string(nil), w.fileRefs...)}
	if w.pending != nil {
		rec.MediaURL = w.pending.Ref()
	}
	return w.collected(rec)
}

func (w *AudioWidget) Restore(items []models.ContentItem) {
	rec := w.codec.Decode(w.question, models.AnswerContent{Data: items})
	w.mu.Lock()
	if rec.MediaURL != "" {
		w.pending = &models.PendingUpload{LocalRef: rec.MediaURL, DurableURL: rec.MediaURL}
	}
	w.fileRefs = rec.FileRefs
	w.mu.Unlock()
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

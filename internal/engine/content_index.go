package engine

import (
	"regexp"
	"strings"

	"github.com/SAP-F-2025/session-engine/internal/models"
)

// ContentIndex is a read-only lookup from a question id to its original
// option pool and to the ordered position markers found in its prompt.
// Built once per session from the fetched question set.
type ContentIndex struct {
	items   map[uint][]models.ContentItem
	markers map[uint][]string
}

func NewContentIndex(questions []models.Question) *ContentIndex {
	idx := &ContentIndex{
		items:   make(map[uint][]models.ContentItem, len(questions)),
		markers: make(map[uint][]string, len(questions)),
	}
	for i := range questions {
		q := &questions[i]
		idx.items[q.ID] = q.ContentItems
		idx.markers[q.ID] = q.PositionMarkers()
	}
	return idx
}

// Items returns the original option/content pool for a question.
func (idx *ContentIndex) Items(questionID uint) []models.ContentItem {
	return idx.items[questionID]
}

// Markers returns the ordered blank/slot markers for a question's prompt.
func (idx *ContentIndex) Markers(questionID uint) []string {
	return idx.markers[questionID]
}

// ResolveByValue maps a value back to its original pool id. The comparison
// tolerates formatting differences between authoring and storage: markup is
// stripped and whitespace collapsed on both sides. Returns the value itself
// when no pool item matches (round-trip invariant: never an internal key).
func (idx *ContentIndex) ResolveByValue(questionID uint, value string) string {
	want := NormalizeValue(value)
	for _, item := range idx.items[questionID] {
		if NormalizeValue(item.Value) == want {
			return item.ID
		}
	}
	return value
}

// ResolveByPosition maps a position marker to the pool item authored for that
// slot, falling back to a value match, falling back to the literal value.
func (idx *ContentIndex) ResolveByPosition(questionID uint, positionID, value string) string {
	for _, item := range idx.items[questionID] {
		if item.PositionID != nil && *item.PositionID == positionID {
			return item.ID
		}
	}
	return idx.ResolveByValue(questionID, value)
}

// ValueForID returns the pool value for an id, or the id itself when the id
// is a literal-value fallback.
func (idx *ContentIndex) ValueForID(questionID uint, id string) string {
	for _, item := range idx.items[questionID] {
		if item.ID == id {
			return item.Value
		}
	}
	return id
}

var (
	markupRe     = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeValue strips markup and collapses whitespace so that values can be
// compared across authoring and storage representations.
func NormalizeValue(v string) string {
	v = markupRe.ReplaceAllString(v, " ")
	v = whitespaceRe.ReplaceAllString(v, " ")
	return strings.TrimSpace(v)
}

package engine

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
)

const (
	restoreMaxAttempts = 10
	restoreInterval    = 250 * time.Millisecond
)

// CollectorFunc returns a widget's current answer, or nil for "no answer yet".
type CollectorFunc func() *CollectedAnswer

// RestorerFunc sets a widget to a saved answer. Must be idempotent.
type RestorerFunc func(items []models.ContentItem)

// CollectedAnswer is what a collector hands back to the registry.
type CollectedAnswer struct {
	Record       *models.AnswerRecord
	QuestionType models.QuestionType
	Options      []models.ContentItem
}

// RawAnswer is one entry of CollectAll. Collected is nil when the widget had
// no answer yet; the entry is still present so every question is accounted for.
type RawAnswer struct {
	QuestionID uint
	Collected  *CollectedAnswer
}

type collectorEntry struct {
	fn    CollectorFunc
	token uint64
}

type restorerEntry struct {
	fn    RestorerFunc
	token uint64
}

// AnswerRegistry brokers answer exchange between widgets and the persistence
// client. It holds no business logic beyond invoking the supplied closures.
// Widgets register on mount and unregister on unmount; at any time exactly
// one collector and at most one restorer is live per question id.
type AnswerRegistry struct {
	mu         sync.Mutex
	logger     *slog.Logger
	collectors map[uint]*collectorEntry
	restorers  map[uint]*restorerEntry
	nextToken  uint64

	retryInterval time.Duration
	maxAttempts   int
	closed        chan struct{}
	closeOnce     sync.Once
}

func NewAnswerRegistry(logger *slog.Logger) *AnswerRegistry {
	return &AnswerRegistry{
		logger:        logger,
		collectors:    make(map[uint]*collectorEntry),
		restorers:     make(map[uint]*restorerEntry),
		retryInterval: restoreInterval,
		maxAttempts:   restoreMaxAttempts,
		closed:        make(chan struct{}),
	}
}

// RegisterCollector registers the answer provider for a question, replacing
// any previous registration. The returned function unregisters it, and is a
// no-op if a later registration already replaced this one.
func (r *AnswerRegistry) RegisterCollector(questionID uint, fn CollectorFunc) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextToken++
	token := r.nextToken
	r.collectors[questionID] = &collectorEntry{fn: fn, token: token}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if entry, ok := r.collectors[questionID]; ok && entry.token == token {
			delete(r.collectors, questionID)
		}
	}
}

// RegisterRestorer registers the answer consumer for a question, replacing
// any previous registration.
func (r *AnswerRegistry) RegisterRestorer(questionID uint, fn RestorerFunc) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextToken++
	token := r.nextToken
	r.restorers[questionID] = &restorerEntry{fn: fn, token: token}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if entry, ok := r.restorers[questionID]; ok && entry.token == token {
			delete(r.restorers, questionID)
		}
	}
}

// CollectAll invokes every registered collector and returns one entry per
// question, ordered by question id for deterministic payloads.
func (r *AnswerRegistry) CollectAll() []RawAnswer {
	r.mu.Lock()
	ids := make([]uint, 0, len(r.collectors))
	fns := make(map[uint]CollectorFunc, len(r.collectors))
	for id, entry := range r.collectors {
		ids = append(ids, id)
		fns[id] = entry.fn
	}
	r.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	answers := make([]RawAnswer, 0, len(ids))
	for _, id := range ids {
		answers = append(answers, RawAnswer{QuestionID: id, Collected: fns[id]()})
	}
	return answers
}

// RestoreFrom pushes a saved snapshot into the mounted widgets. When a
// question's restorer is not registered yet (the widget has not mounted),
// the restoration is retried with bounded backoff before being dropped with
// a warning; re-applying the same snapshot to an already-restored widget is
// harmless because restorers are idempotent.
func (r *AnswerRegistry) RestoreFrom(snapshot *models.SubmissionSnapshot) {
	if snapshot == nil {
		return
	}
	for _, result := range snapshot.Results() {
		if r.applyResult(result) {
			continue
		}
		go r.retryRestore(result)
	}
}

func (r *AnswerRegistry) applyResult(result models.QuestionResult) bool {
	r.mu.Lock()
	entry, ok := r.restorers[result.QuestionID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.fn(result.SubmittedContent.Data)
	return true
}

func (r *AnswerRegistry) retryRestore(result models.QuestionResult) {
	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for attempt := 1; attempt < r.maxAttempts; attempt++ {
		select {
		case <-r.closed:
			return
		case <-ticker.C:
		}
		if r.applyResult(result) {
			return
		}
	}

	r.logger.Warn("dropping saved answer, widget never mounted",
		"question_id", result.QuestionID,
		"attempts", r.maxAttempts)
}

// Close aborts pending restoration retries. Live registrations stay intact so
// an in-flight collect can still complete; its result is discarded by the
// session teardown.
func (r *AnswerRegistry) Close() {
	r.closeOnce.Do(func() { close(r.closed) })
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/models"
)

// Backend is the boundary to the collaborating service: one call per named
// operation, transport unspecified.
type Backend interface {
	// FindInProgressSubmission returns the id of an existing in-progress
	// submission for the assessment, or ErrSubmissionNotFound. It never
	// creates one; creation happens on the backend as a side effect of the
	// first successful save.
	FindInProgressSubmission(ctx context.Context, challengeID uint, studentID string) (uint, error)

	// SaveSubmission persists a draft or final payload. submissionID may be
	// zero on the very first save.
	SaveSubmission(ctx context.Context, submissionID, challengeID uint, studentID string, payload *models.SavePayload) (*models.SaveResult, error)

	// FetchTiming returns the assessment duration and, when the session was
	// already marked started, the recorded start time.
	FetchTiming(ctx context.Context, challengeID uint) (*models.SessionTiming, error)

	// RecordStart durably records the session start time.
	RecordStart(ctx context.Context, challengeID uint, studentID string, at time.Time) error

	// ReportViolations delivers a batch of queued violation logs.
	ReportViolations(ctx context.Context, submissionID uint, logs []models.ViolationLog) error
}

// Config carries everything a session engine needs at construction.
type Config struct {
	ChallengeID       uint
	StudentID         string
	Questions         []models.Question
	RequireProctoring bool

	Backend Backend
	Media   MediaStore
	Logger  *slog.Logger

	// Autosave tuning; zero values pick the defaults below.
	AutosaveQuiet  time.Duration
	AutosavePeriod time.Duration
}

const (
	defaultAutosaveQuiet  = 2 * time.Second
	defaultAutosavePeriod = 30 * time.Second
)

// Engine drives one assessment-taking session: it owns the registry, codec,
// widgets, autosave scheduler, deadline timer, integrity monitor and media
// uploader, and exposes the draft-save / final-submit operations built on
// top of them.
type Engine struct {
	mu      sync.Mutex
	session models.Session
	logger  *slog.Logger
	backend Backend
	now     func() time.Time

	questions map[uint]*models.Question
	widgets   map[uint]Widget

	Registry  *AnswerRegistry
	Codec     *Codec
	Index     *ContentIndex
	Monitor   *IntegrityMonitor
	Uploader  *MediaUploader
	Scheduler *AutosaveScheduler
	Timer     *DeadlineTimer

	timedOut bool
	closed   bool
}

func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("challenge_id", cfg.ChallengeID, "student_id", cfg.StudentID)

	index := NewContentIndex(cfg.Questions)
	e := &Engine{
		session: models.Session{
			ChallengeID:       cfg.ChallengeID,
			StudentID:         cfg.StudentID,
			Status:            models.SessionInProgress,
			RequireProctoring: cfg.RequireProctoring,
		},
		logger:    logger,
		backend:   cfg.Backend,
		now:       time.Now,
		questions: make(map[uint]*models.Question, len(cfg.Questions)),
		widgets:   make(map[uint]Widget, len(cfg.Questions)),
		Registry:  NewAnswerRegistry(logger),
		Index:     index,
		Codec:     NewCodec(index),
		Monitor:   NewIntegrityMonitor(cfg.RequireProctoring, logger),
		Uploader:  NewMediaUploader(cfg.Media, logger),
	}

	quiet := cfg.AutosaveQuiet
	if quiet <= 0 {
		quiet = defaultAutosaveQuiet
	}
	period := cfg.AutosavePeriod
	if period <= 0 {
		period = defaultAutosavePeriod
	}
	e.Scheduler = NewAutosaveScheduler(e.autosave, quiet, period, logger)
	e.Timer = NewDeadlineTimer(e.handleTimeout, logger)

	for i := range cfg.Questions {
		q := &cfg.Questions[i]
		w, err := NewWidget(q, e.Codec, e.Scheduler.MarkDirty)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, err)
		}
		w.Mount(e.Registry)
		e.questions[q.ID] = q
		e.widgets[q.ID] = w
	}

	return e, nil
}

// Session returns a copy of the current session state.
func (e *Engine) Session() models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Widget returns the widget handling a question.
func (e *Engine) Widget(questionID uint) (Widget, error) {
	w, ok := e.widgets[questionID]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	return w, nil
}

// ===== TIMING =====

// StartTiming fetches the assessment duration and arms the deadline exactly
// once. When the backend has no recorded start yet, "now" becomes the start
// and is persisted immediately, so a reload cannot extend the deadline.
func (e *Engine) StartTiming(ctx context.Context) error {
	timing, err := e.backend.FetchTiming(ctx, e.session.ChallengeID)
	if err != nil {
		return fmt.Errorf("failed to fetch session timing: %w", err)
	}
	if timing.DurationSeconds <= 0 {
		e.logger.Info("session is untimed")
		return nil
	}

	startedAt := timing.StartedAt
	if startedAt == nil {
		t := e.now()
		startedAt = &t
		if err := e.backend.RecordStart(ctx, e.session.ChallengeID, e.session.StudentID, t); err != nil {
			return fmt.Errorf("failed to record session start: %w", err)
		}
	}

	duration := time.Duration(timing.DurationSeconds) * time.Second
	e.Timer.Configure(*startedAt, duration)

	deadline := startedAt.Add(duration)
	e.mu.Lock()
	e.session.StartedAt = startedAt
	e.session.Deadline = &deadline
	e.mu.Unlock()
	return nil
}

// ===== PERSISTENCE CLIENT =====

// ResolveSubmissionID returns the cached id when known; otherwise it queries
// for an existing in-progress submission and caches the first match. Once
// resolved the id is stable for the session's lifetime.
func (e *Engine) ResolveSubmissionID(ctx context.Context) (uint, error) {
	e.mu.Lock()
	if e.session.SubmissionID != 0 {
		id := e.session.SubmissionID
		e.mu.Unlock()
		return id, nil
	}
	challengeID, studentID := e.session.ChallengeID, e.session.StudentID
	e.mu.Unlock()

	id, err := e.backend.FindInProgressSubmission(ctx, challengeID, studentID)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	if e.session.SubmissionID == 0 {
		e.session.SubmissionID = id
	}
	id = e.session.SubmissionID
	e.mu.Unlock()
	return id, nil
}

// SaveDraft builds the current payload and persists it as a draft. On
// success the cached submission id is refreshed from the response and the
// pending violation queue is flushed on the same network cycle.
func (e *Engine) SaveDraft(ctx context.Context) error {
	return e.save(ctx, true)
}

// SubmitFinal persists the payload as the final attempt. On success the
// session transitions to SUBMITTED and autosave, timer and monitor stop.
// Failure is surfaced and leaves the session IN_PROGRESS.
func (e *Engine) SubmitFinal(ctx context.Context) error {
	e.mu.Lock()
	if e.session.Status == models.SessionSubmitted {
		e.mu.Unlock()
		return ErrSessionSubmitted
	}
	e.mu.Unlock()

	if err := e.save(ctx, false); err != nil {
		return err
	}

	e.mu.Lock()
	e.session.Status = models.SessionSubmitted
	e.mu.Unlock()

	e.Scheduler.Stop()
	e.Monitor.SetEnabled(false)
	e.logger.Info("session submitted")
	return nil
}

func (e *Engine) save(ctx context.Context, draft bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrSessionClosed
	}
	if e.session.ViewOnly() {
		e.mu.Unlock()
		return ErrSessionViewOnly
	}
	submissionID := e.session.SubmissionID
	challengeID, studentID := e.session.ChallengeID, e.session.StudentID
	e.mu.Unlock()

	payload := e.BuildPayload(ctx, draft)

	result, err := e.backend.SaveSubmission(ctx, submissionID, challengeID, studentID, payload)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}

	e.mu.Lock()
	if e.closed {
		// Teardown raced the save; the result is discarded.
		e.mu.Unlock()
		return ErrSessionClosed
	}
	if e.session.SubmissionID == 0 && result.SubmissionID != 0 {
		e.session.SubmissionID = result.SubmissionID
	}
	e.mu.Unlock()

	// A successful draft save opportunistically drains the violation queue
	// on the same cycle.
	if draft {
		e.FlushViolations(ctx)
	}
	return nil
}

// BuildPayload collects every registered answer, promotes pending media and
// runs the results through the protocol. Unanswered questions are emitted
// with empty content data, never omitted.
func (e *Engine) BuildPayload(ctx context.Context, draft bool) *models.SavePayload {
	e.promotePendingMedia(ctx)

	raw := e.Registry.CollectAll()
	payload := &models.SavePayload{
		SaveAsDraft:     draft,
		QuestionAnswers: make([]models.QuestionAnswer, 0, len(raw)),
	}
	for _, ra := range raw {
		q, ok := e.questions[ra.QuestionID]
		if !ok {
			continue
		}
		var rec *models.AnswerRecord
		if ra.Collected != nil {
			rec = ra.Collected.Record
		}
		payload.QuestionAnswers = append(payload.QuestionAnswers, e.Codec.Encode(q, rec))
	}
	return payload
}

func (e *Engine) promotePendingMedia(ctx context.Context) {
	var pending []*models.PendingUpload
	for _, w := range e.widgets {
		if aw, ok := w.(*AudioWidget); ok {
			if p := aw.PendingUpload(); p != nil {
				pending = append(pending, p)
			}
		}
	}
	e.Uploader.PromoteAll(ctx, pending)
}

// autosave is the scheduler's SaveFunc: transient failures are logged and
// swallowed so the next debounce or tick retries.
func (e *Engine) autosave(ctx context.Context) error {
	if err := e.SaveDraft(ctx); err != nil {
		e.logger.Warn("draft autosave failed", "error", err)
	}
	return nil
}

// ===== INTEGRITY =====

// HandleViolation feeds one detected event through the escalation policy.
func (e *Engine) HandleViolation(ev models.ViolationEvent) (*Acknowledgement, bool) {
	e.mu.Lock()
	viewOnly := e.session.ViewOnly()
	e.mu.Unlock()
	if viewOnly {
		return nil, false
	}
	return e.Monitor.HandleEvent(ev)
}

// FlushViolations drains the pending queue and delivers it. A failed drain
// requeues the same batch at the front; entries delivered by an earlier
// drain are never duplicated.
func (e *Engine) FlushViolations(ctx context.Context) {
	logs := e.Monitor.Drain()
	if len(logs) == 0 {
		return
	}

	e.mu.Lock()
	submissionID := e.session.SubmissionID
	e.mu.Unlock()

	if err := e.backend.ReportViolations(ctx, submissionID, logs); err != nil {
		e.logger.Warn("violation flush failed, requeueing",
			"count", len(logs),
			"error", err)
		e.Monitor.Requeue(logs)
		return
	}
	e.logger.Info("violation logs flushed", "count", len(logs))
}

// ===== TIMEOUT =====

// handleTimeout is the timer's one-shot expiry callback: a best-effort final
// submit, then the terminal "time's up" notice regardless of the outcome,
// since the user can no longer act either way.
func (e *Engine) handleTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.SubmitFinal(ctx); err != nil {
		e.logger.Error("auto-submit on timeout failed", "error", err)
	}

	e.mu.Lock()
	e.timedOut = true
	e.mu.Unlock()
	e.Scheduler.Stop()
	e.Monitor.SetEnabled(false)
}

// TimedOut reports whether the terminal "time's up" notice is showing.
func (e *Engine) TimedOut() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timedOut
}

// ===== RESTORE / TEARDOWN =====

// Restore replays a saved snapshot into the mounted widgets, adopting the
// snapshot's submission id when none is cached yet.
func (e *Engine) Restore(snapshot *models.SubmissionSnapshot) {
	if snapshot == nil {
		return
	}
	if snapshot.SubmissionID != nil {
		e.mu.Lock()
		if e.session.SubmissionID == 0 {
			e.session.SubmissionID = *snapshot.SubmissionID
		}
		e.mu.Unlock()
	}
	e.Registry.RestoreFrom(snapshot)
}

// Close tears the session down: timers stop, restoration retries abort, and
// any still-in-flight call may complete but its result is discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.Scheduler.Stop()
	e.Registry.Close()
	for _, w := range e.widgets {
		w.Unmount()
	}
	e.logger.Info("session torn down")
}

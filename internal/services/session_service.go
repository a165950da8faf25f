package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/session-engine/internal/cache"
	"github.com/SAP-F-2025/session-engine/internal/engine"
	"github.com/SAP-F-2025/session-engine/internal/events"
	"github.com/SAP-F-2025/session-engine/internal/models"
	"github.com/SAP-F-2025/session-engine/internal/repositories"
	"github.com/SAP-F-2025/session-engine/internal/utils"
	"github.com/google/uuid"
)

const questionCacheTTL = 10 * time.Minute

// MutateRequest is one widget interaction, dispatched by action name.
type MutateRequest struct {
	QuestionID uint     `json:"question_id" validate:"required"`
	Action     string   `json:"action" validate:"required,oneof=select toggle set_boolean set_selection set_blank place remove set_sequence set_text attach_file start_capture"`
	Value      string   `json:"value,omitempty"`
	Values     []string `json:"values,omitempty"`
	PositionID string   `json:"position_id,omitempty"`
	Slot       string   `json:"slot,omitempty"`
	Checked    *bool    `json:"checked,omitempty"`
	Text       string   `json:"text,omitempty"`
}

// SessionView is the client-facing state of an active session.
type SessionView struct {
	ChallengeID       uint                  `json:"challenge_id"`
	Title             string                `json:"title"`
	SubmissionID      uint                  `json:"submission_id"`
	Status            models.SessionStatus  `json:"status"`
	RequireProctoring bool                  `json:"require_proctoring"`
	StartedAt         *time.Time            `json:"started_at,omitempty"`
	Deadline          *time.Time            `json:"deadline,omitempty"`
	RemainingSeconds  *int                  `json:"remaining_seconds,omitempty"`
	Questions         []models.Question     `json:"questions"`
}

// ViolationOutcome tells the client how a reported event was handled.
type ViolationOutcome struct {
	Acknowledgement *engine.Acknowledgement `json:"acknowledgement,omitempty"`
	Escalated       bool                    `json:"escalated"`
	Occurrence      int                     `json:"occurrence"`
}

// RemainingView is the countdown state derived from the armed deadline.
type RemainingView struct {
	Timed            bool `json:"timed"`
	RemainingSeconds int  `json:"remaining_seconds"`
	TimedOut         bool `json:"timed_out"`
}

// SessionManager hosts one engine per active session and drives its clocks.
type SessionManager interface {
	Start(ctx context.Context, challengeID uint, studentID string) (*SessionView, error)
	State(ctx context.Context, challengeID uint, studentID string) (*SessionView, error)
	Mutate(ctx context.Context, challengeID uint, studentID string, req *MutateRequest) error
	SaveDraft(ctx context.Context, challengeID uint, studentID string) (*SessionView, error)
	Submit(ctx context.Context, challengeID uint, studentID string) (*SessionView, error)
	ReportViolation(ctx context.Context, challengeID uint, studentID string, ev models.ViolationEvent) (*ViolationOutcome, error)
	Remaining(ctx context.Context, challengeID uint, studentID string) (*RemainingView, error)
	AttachMedia(ctx context.Context, challengeID uint, studentID string, questionID uint, name, mimeType string, data []byte) (string, error)
	Teardown(ctx context.Context, challengeID uint, studentID string) error
	Shutdown(ctx context.Context)
}

type activeSession struct {
	engine    *engine.Engine
	challenge *models.Challenge
	cancel    context.CancelFunc

	mu                sync.Mutex
	timedOutPublished bool
}

type sessionManager struct {
	repo       repositories.Repository
	cache      cache.CacheService
	proctoring ProctoringService
	media      MediaService
	publisher  events.EventPublisher
	validator  *utils.Validator
	logger     *slog.Logger

	autosaveQuiet   time.Duration
	autosavePeriod  time.Duration
	violationMaxAge time.Duration
	tickInterval    time.Duration

	mu       sync.Mutex
	sessions map[string]*activeSession
}

// SessionManagerConfig carries the manager's collaborators and tuning.
type SessionManagerConfig struct {
	Repo       repositories.Repository
	Cache      cache.CacheService
	Proctoring ProctoringService
	Media      MediaService
	Publisher  events.EventPublisher
	Validator  *utils.Validator
	Logger     *slog.Logger

	AutosaveQuiet   time.Duration
	AutosavePeriod  time.Duration
	ViolationMaxAge time.Duration
	TickInterval    time.Duration
}

func NewSessionManager(cfg SessionManagerConfig) SessionManager {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	maxAge := cfg.ViolationMaxAge
	if maxAge <= 0 {
		maxAge = time.Minute
	}
	return &sessionManager{
		repo:            cfg.Repo,
		cache:           cfg.Cache,
		proctoring:      cfg.Proctoring,
		media:           cfg.Media,
		publisher:       cfg.Publisher,
		validator:       cfg.Validator,
		logger:          cfg.Logger,
		autosaveQuiet:   cfg.AutosaveQuiet,
		autosavePeriod:  cfg.AutosavePeriod,
		violationMaxAge: maxAge,
		tickInterval:    tick,
		sessions:        make(map[string]*activeSession),
	}
}

func sessionKey(challengeID uint, studentID string) string {
	return fmt.Sprintf("%d:%s", challengeID, studentID)
}

// ===== LIFECYCLE =====

func (m *sessionManager) Start(ctx context.Context, challengeID uint, studentID string) (*SessionView, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[sessionKey(challengeID, studentID)]; ok {
		m.mu.Unlock()
		m.logger.Info("resuming active session",
			"challenge_id", challengeID,
			"student_id", studentID)
		return m.view(existing), nil
	}
	m.mu.Unlock()

	challenge, err := m.repo.Challenge().GetByID(ctx, challengeID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	questions, err := m.loadQuestions(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrChallengeEmpty
	}

	backend := &storeBackend{
		repo:       m.repo,
		cache:      m.cache,
		proctoring: m.proctoring,
		studentID:  studentID,
	}
	eng, err := engine.New(engine.Config{
		ChallengeID:       challengeID,
		StudentID:         studentID,
		Questions:         questions,
		RequireProctoring: challenge.RequireProctoring,
		Backend:           backend,
		Media:             m.media,
		Logger:            m.logger,
		AutosaveQuiet:     m.autosaveQuiet,
		AutosavePeriod:    m.autosavePeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build session engine: %w", err)
	}

	if err := eng.StartTiming(ctx); err != nil {
		return nil, err
	}

	if submissionID, err := eng.ResolveSubmissionID(ctx); err == nil {
		snapshot, err := m.repo.Submission().Snapshot(ctx, submissionID)
		if err != nil {
			m.logger.Warn("failed to load submission snapshot",
				"submission_id", submissionID,
				"error", err)
		} else {
			eng.Restore(snapshot)
		}
	} else if err != engine.ErrSubmissionNotFound {
		m.logger.Warn("failed to resolve submission", "error", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	session := &activeSession{engine: eng, challenge: challenge, cancel: cancel}

	m.mu.Lock()
	if raced, ok := m.sessions[sessionKey(challengeID, studentID)]; ok {
		m.mu.Unlock()
		cancel()
		eng.Close()
		return m.view(raced), nil
	}
	m.sessions[sessionKey(challengeID, studentID)] = session
	m.mu.Unlock()

	go m.run(runCtx, session)

	state := eng.Session()
	m.publish(ctx, events.NewSessionEvent(events.EventSessionStarted, events.SessionStartedEvent{
		ChallengeID: challengeID,
		StudentID:   studentID,
		StartedAt:   time.Now(),
		Deadline:    state.Deadline,
	}))

	m.logger.Info("session started",
		"challenge_id", challengeID,
		"student_id", studentID,
		"questions", len(questions),
		"require_proctoring", challenge.RequireProctoring)
	return m.view(session), nil
}

func (m *sessionManager) State(ctx context.Context, challengeID uint, studentID string) (*SessionView, error) {
	session, err := m.lookup(challengeID, studentID)
	if err != nil {
		return nil, err
	}
	return m.view(session), nil
}

func (m *sessionManager) Teardown(ctx context.Context, challengeID uint, studentID string) error {
	m.mu.Lock()
	key := sessionKey(challengeID, studentID)
	session, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.cancel()
	// Flush whatever is still pending before the engine stops accepting work.
	session.engine.Scheduler.Flush(ctx)
	session.engine.FlushViolations(ctx)
	session.engine.Close()

	m.logger.Info("session torn down",
		"challenge_id", challengeID,
		"student_id", studentID)
	return nil
}

func (m *sessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := make(map[string]*activeSession, len(m.sessions))
	for k, s := range m.sessions {
		sessions[k] = s
	}
	m.sessions = make(map[string]*activeSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.cancel()
		session.engine.Scheduler.Flush(ctx)
		session.engine.FlushViolations(ctx)
		session.engine.Close()
	}
	m.logger.Info("session manager shut down", "sessions", len(sessions))
}

// run drives one session's clocks until teardown: autosave debounce and
// periodic ticks, the deadline check, and the max-staleness violation flush.
func (m *sessionManager) run(ctx context.Context, s *activeSession) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.engine.Scheduler.Tick(ctx, now)
			s.engine.Timer.Tick(now)

			if queuedAt, ok := s.engine.Monitor.OldestQueuedAt(); ok && now.Sub(queuedAt) >= m.violationMaxAge {
				s.engine.FlushViolations(ctx)
			}

			if s.engine.TimedOut() {
				s.mu.Lock()
				publish := !s.timedOutPublished
				s.timedOutPublished = true
				s.mu.Unlock()
				if publish {
					state := s.engine.Session()
					m.publish(ctx, events.NewSessionEvent(events.EventSessionTimedOut, events.SessionSubmittedEvent{
						ChallengeID:  state.ChallengeID,
						SubmissionID: state.SubmissionID,
						StudentID:    state.StudentID,
						EndReason:    models.SessionEndReasonTimeout,
					}))
				}
			}
		}
	}
}

// ===== INTERACTION =====

func (m *sessionManager) Mutate(ctx context.Context, challengeID uint, studentID string, req *MutateRequest) error {
	if err := m.validator.Validate(req); err != nil {
		return err
	}
	session, err := m.lookup(challengeID, studentID)
	if err != nil {
		return err
	}
	widget, err := session.engine.Widget(req.QuestionID)
	if err != nil {
		return err
	}

	switch req.Action {
	case "select":
		w, ok := widget.(*engine.ChoiceWidget)
		if !ok {
			return ErrActionMismatch
		}
		w.Select(req.Value)
	case "toggle":
		w, ok := widget.(*engine.MultiSelectWidget)
		if !ok {
			return ErrActionMismatch
		}
		w.Toggle(req.Value)
	case "set_boolean":
		w, ok := widget.(*engine.BooleanWidget)
		if !ok {
			return ErrActionMismatch
		}
		if req.Checked == nil {
			return ErrMissingArgument
		}
		w.Set(*req.Checked)
	case "set_selection":
		w, ok := widget.(*engine.DropdownWidget)
		if !ok {
			return ErrActionMismatch
		}
		return w.SetSelection(req.PositionID, req.Value)
	case "set_blank":
		w, ok := widget.(*engine.FillBlankWidget)
		if !ok {
			return ErrActionMismatch
		}
		return w.SetBlank(req.PositionID, req.Text)
	case "place":
		w, ok := widget.(*engine.DragDropWidget)
		if !ok {
			return ErrActionMismatch
		}
		return w.Place(req.Slot, req.Value)
	case "remove":
		w, ok := widget.(*engine.DragDropWidget)
		if !ok {
			return ErrActionMismatch
		}
		w.Remove(req.Slot)
	case "set_sequence":
		w, ok := widget.(*engine.ReorderWidget)
		if !ok {
			return ErrActionMismatch
		}
		return w.SetSequence(req.Values)
	case "set_text":
		switch w := widget.(type) {
		case *engine.RewriteWidget:
			w.SetText(req.Text)
		case *engine.WritingWidget:
			w.SetText(req.Text)
		default:
			return ErrActionMismatch
		}
	case "attach_file":
		w, ok := widget.(*engine.WritingWidget)
		if !ok {
			return ErrActionMismatch
		}
		w.AttachFile(req.Value)
	case "start_capture":
		w, ok := widget.(*engine.AudioWidget)
		if !ok {
			return ErrActionMismatch
		}
		return w.StartCapture()
	default:
		return ErrUnknownAction
	}
	return nil
}

func (m *sessionManager) AttachMedia(ctx context.Context, challengeID uint, studentID string, questionID uint, name, mimeType string, data []byte) (string, error) {
	session, err := m.lookup(challengeID, studentID)
	if err != nil {
		return "", err
	}
	widget, err := session.engine.Widget(questionID)
	if err != nil {
		return "", err
	}

	switch w := widget.(type) {
	case *engine.AudioWidget:
		// Finishes the active capture; the recording is promoted to a
		// durable URL on the next save.
		localRef := "blob:" + uuid.NewString()
		if err := w.StopCapture(localRef, name, mimeType, data); err != nil {
			return "", err
		}
		return localRef, nil
	case *engine.WritingWidget:
		url, err := m.media.Upload(ctx, name, mimeType, data)
		if err != nil {
			return "", err
		}
		w.AttachFile(url)
		return url, nil
	default:
		return "", ErrActionMismatch
	}
}

// ===== PERSISTENCE =====

func (m *sessionManager) SaveDraft(ctx context.Context, challengeID uint, studentID string) (*SessionView, error) {
	session, err := m.lookup(challengeID, studentID)
	if err != nil {
		return nil, err
	}
	if err := session.engine.SaveDraft(ctx); err != nil {
		return nil, err
	}

	state := session.engine.Session()
	answered, total := m.answeredCount(session.engine)
	m.publish(ctx, events.NewSessionEvent(events.EventDraftSaved, events.DraftSavedEvent{
		ChallengeID:  challengeID,
		SubmissionID: state.SubmissionID,
		Answered:     answered,
		Total:        total,
	}))
	return m.view(session), nil
}

func (m *sessionManager) Submit(ctx context.Context, challengeID uint, studentID string) (*SessionView, error) {
	session, err := m.lookup(challengeID, studentID)
	if err != nil {
		return nil, err
	}
	if err := session.engine.SubmitFinal(ctx); err != nil {
		return nil, err
	}
	session.engine.FlushViolations(ctx)

	state := session.engine.Session()
	m.publish(ctx, events.NewSessionEvent(events.EventSessionSubmitted, events.SessionSubmittedEvent{
		ChallengeID:  challengeID,
		SubmissionID: state.SubmissionID,
		StudentID:    studentID,
	}))
	return m.view(session), nil
}

// ===== PROCTORING =====

func (m *sessionManager) ReportViolation(ctx context.Context, challengeID uint, studentID string, ev models.ViolationEvent) (*ViolationOutcome, error) {
	if err := m.validator.Validate(&ev); err != nil {
		return nil, err
	}
	session, err := m.lookup(challengeID, studentID)
	if err != nil {
		return nil, err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	ack, escalated := session.engine.HandleViolation(ev)
	outcome := &ViolationOutcome{
		Acknowledgement: ack,
		Escalated:       escalated,
		Occurrence:      session.engine.Monitor.Occurrences(ev.Category),
	}

	if escalated {
		state := session.engine.Session()
		m.publish(ctx, events.NewSessionEvent(events.EventViolationEscalated, events.ViolationEscalatedEvent{
			SubmissionID: state.SubmissionID,
			Event:        ev.Category.EventName(),
			Occurrence:   outcome.Occurrence,
		}))
	}
	return outcome, nil
}

// ===== TIMING =====

func (m *sessionManager) Remaining(ctx context.Context, challengeID uint, studentID string) (*RemainingView, error) {
	session, err := m.lookup(challengeID, studentID)
	if err != nil {
		return nil, err
	}
	if !session.engine.Timer.Timed() {
		return &RemainingView{Timed: false}, nil
	}
	remaining, _ := session.engine.Timer.Remaining(time.Now())
	return &RemainingView{
		Timed:            true,
		RemainingSeconds: int(remaining / time.Second),
		TimedOut:         session.engine.TimedOut(),
	}, nil
}

// ===== HELPERS =====

func (m *sessionManager) lookup(challengeID uint, studentID string) (*activeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionKey(challengeID, studentID)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *sessionManager) loadQuestions(ctx context.Context, challengeID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := m.cache.Get(ctx, cache.QuestionSetKey(challengeID), &questions); err == nil {
		return questions, nil
	}

	questions, err := m.repo.Question().GetByChallenge(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if err := m.cache.Set(ctx, cache.QuestionSetKey(challengeID), questions, questionCacheTTL); err != nil {
		m.logger.Warn("failed to cache question set",
			"challenge_id", challengeID,
			"error", err)
	}
	return questions, nil
}

func (m *sessionManager) view(s *activeSession) *SessionView {
	state := s.engine.Session()
	view := &SessionView{
		ChallengeID:       state.ChallengeID,
		Title:             s.challenge.Title,
		SubmissionID:      state.SubmissionID,
		Status:            state.Status,
		RequireProctoring: state.RequireProctoring,
		StartedAt:         state.StartedAt,
		Deadline:          state.Deadline,
		Questions:         make([]models.Question, 0),
	}
	questions, err := m.loadQuestions(context.Background(), state.ChallengeID)
	if err == nil {
		view.Questions = questions
	}
	if s.engine.Timer.Timed() {
		if remaining, ok := s.engine.Timer.Remaining(time.Now()); ok {
			secs := int(remaining / time.Second)
			view.RemainingSeconds = &secs
		}
	}
	return view
}

func (m *sessionManager) answeredCount(eng *engine.Engine) (answered, total int) {
	raw := eng.Registry.CollectAll()
	total = len(raw)
	for _, ra := range raw {
		if ra.Collected != nil && ra.Collected.Record != nil && !ra.Collected.Record.IsEmpty() {
			answered++
		}
	}
	return answered, total
}

func (m *sessionManager) publish(ctx context.Context, event *events.SessionEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishSessionEvent(ctx, event); err != nil {
		m.logger.Warn("failed to publish session event",
			"event_type", event.Type,
			"error", err)
	}
}

// ===== BACKEND =====

// storeBackend adapts the repository, cache and violation spool to the
// engine's persistence boundary. One instance per session carries the
// student identity the engine's timing fetch leaves implicit.
type storeBackend struct {
	repo       repositories.Repository
	cache      cache.CacheService
	proctoring ProctoringService
	studentID  string
}

func (b *storeBackend) FindInProgressSubmission(ctx context.Context, challengeID uint, studentID string) (uint, error) {
	submission, err := b.repo.Submission().GetInProgress(ctx, challengeID, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, engine.ErrSubmissionNotFound
		}
		return 0, fmt.Errorf("failed to find submission: %w", err)
	}
	return submission.ID, nil
}

func (b *storeBackend) SaveSubmission(ctx context.Context, submissionID, challengeID uint, studentID string, payload *models.SavePayload) (*models.SaveResult, error) {
	submission, err := b.repo.Submission().Save(ctx, submissionID, challengeID, studentID, payload)
	if err != nil {
		return nil, err
	}
	return &models.SaveResult{SubmissionID: submission.ID}, nil
}

func (b *storeBackend) FetchTiming(ctx context.Context, challengeID uint) (*models.SessionTiming, error) {
	key := cache.TimingKey(challengeID, b.studentID)
	var cached models.SessionTiming
	if err := b.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	timing, err := b.repo.Submission().Timing(ctx, challengeID, b.studentID)
	if err != nil {
		return nil, err
	}
	// Cache only once the start is recorded; before that the value changes.
	if timing.StartedAt != nil && timing.DurationSeconds > 0 {
		ttl := time.Duration(timing.DurationSeconds) * time.Second
		_ = b.cache.Set(ctx, key, timing, ttl)
	}
	return timing, nil
}

func (b *storeBackend) RecordStart(ctx context.Context, challengeID uint, studentID string, at time.Time) error {
	if err := b.repo.Submission().MarkStarted(ctx, challengeID, studentID, at); err != nil {
		return err
	}
	return b.cache.Delete(ctx, cache.TimingKey(challengeID, studentID))
}

func (b *storeBackend) ReportViolations(ctx context.Context, submissionID uint, logs []models.ViolationLog) error {
	return b.proctoring.SpoolViolations(ctx, submissionID, logs)
}

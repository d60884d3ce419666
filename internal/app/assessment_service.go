package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizsphere/internal/domain"
)

// QuestionProvider fetches raw multiple choice items (e.g. Open Trivia DB).
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, amount int) ([]domain.RawQuestion, error)
}

// SessionRepository abstracts where active sessions live (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// RecordStore is the write-once, read-once slot between the assessment stage
// and the reporting stage.
type RecordStore interface {
	Put(ctx context.Context, record domain.SessionRecord) error
	// Take returns and removes the record; domain.ErrRecordNotFound if absent.
	Take(ctx context.Context, sessionID string) (domain.SessionRecord, error)
	// Discard removes the record if present.
	Discard(ctx context.Context, sessionID string) error
}

// ReportArchive keeps finished reports.
type ReportArchive interface {
	Save(ctx context.Context, report domain.Report) error
	ListByParticipant(ctx context.Context, participant string) ([]domain.Report, error)
}

// EventPublisher emits lifecycle events to other services.
type EventPublisher interface {
	Publish(eventType string, payload interface{}) error
}

const (
	EventSubmitted = "assessment.submitted"
	EventReported  = "assessment.reported"
)

// Settings are the assessment parameters taken from configuration.
type Settings struct {
	QuestionCount  int
	MinQuestions   int
	BudgetSeconds  int
	LowTimeSeconds int
	TickInterval   time.Duration
	Tiers          []domain.Tier

	// ReportRetention is how long a submitted but unreported session is kept.
	ReportRetention time.Duration
}

// Option customizes an AssessmentService.
type Option func(*AssessmentService)

// WithArchive stores every produced report in archive.
func WithArchive(archive ReportArchive) Option {
	return func(s *AssessmentService) { s.archive = archive }
}

// WithEvents publishes lifecycle events through publisher.
func WithEvents(publisher EventPublisher) Option {
	return func(s *AssessmentService) { s.events = publisher }
}

// WithTickSource replaces the interval ticker driving countdowns.
func WithTickSource(source TickSource) Option {
	return func(s *AssessmentService) { s.ticks = source }
}

// WithClock overrides time.Now for submission and completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AssessmentService) { s.now = now }
}

// WithIDs overrides the session id generator.
func WithIDs(newID func() string) Option {
	return func(s *AssessmentService) { s.newID = newID }
}

// WithNormalizer replaces the default normalizer, e.g. with a seeded one.
func WithNormalizer(n *Normalizer) Option {
	return func(s *AssessmentService) { s.normalizer = n }
}

// WithHandoffRetry sets how often a timed out session retries storing its
// record, doubling delay between attempts.
func WithHandoffRetry(attempts int, delay time.Duration) Option {
	return func(s *AssessmentService) {
		s.retryAttempts = attempts
		s.retryDelay = delay
	}
}

// handoff tracks the record write of one session. done closes once stored.
type handoff struct {
	mu        sync.Mutex
	done      chan struct{}
	abandoned bool // guarded by AssessmentService.mu
}

// AssessmentService contains the assessment use cases.
type AssessmentService struct {
	sessions   SessionRepository
	records    RecordStore
	provider   QuestionProvider
	normalizer *Normalizer
	scorer     *Scorer
	settings   Settings
	ticks      TickSource
	archive    ReportArchive
	events     EventPublisher
	now        func() time.Time
	newID      func() string

	retryAttempts int
	retryDelay    time.Duration

	mu        sync.Mutex
	timers    map[string]context.CancelFunc
	handoffs  map[string]*handoff
	evictions map[string]*time.Timer
}

// NewAssessmentService wires the use cases. It fails on unusable settings.
func NewAssessmentService(sessions SessionRepository, records RecordStore, provider QuestionProvider, settings Settings, opts ...Option) (*AssessmentService, error) {
	if settings.QuestionCount <= 0 {
		return nil, fmt.Errorf("%w: question count must be positive", domain.ErrInvalidConfiguration)
	}
	if settings.BudgetSeconds <= 0 {
		return nil, fmt.Errorf("%w: time budget must be positive", domain.ErrInvalidConfiguration)
	}
	if settings.MinQuestions <= 0 {
		settings.MinQuestions = settings.QuestionCount
	}
	if settings.TickInterval <= 0 {
		settings.TickInterval = time.Second
	}
	if settings.ReportRetention <= 0 {
		settings.ReportRetention = 24 * time.Hour
	}
	scorer, err := NewScorer(settings.Tiers)
	if err != nil {
		return nil, err
	}

	s := &AssessmentService{
		sessions:   sessions,
		records:    records,
		provider:   provider,
		normalizer: NewNormalizer(settings.MinQuestions),
		scorer:     scorer,
		settings:   settings,
		ticks:      IntervalTicks(settings.TickInterval),
		now:        time.Now,
		newID:      uuid.NewString,
		timers:     make(map[string]context.CancelFunc),
		handoffs:   make(map[string]*handoff),
		evictions:  make(map[string]*time.Timer),

		retryAttempts: 3,
		retryDelay:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Begin loads a question set and starts a timed session for participant.
// No session exists unless the whole set loaded and normalized.
func (s *AssessmentService) Begin(ctx context.Context, participant string) (domain.Snapshot, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return domain.Snapshot{}, domain.ErrMissingParticipant
	}

	session := NewSessionWithClock(s.newID(), participant, s.settings.LowTimeSeconds, s.now)

	raw, err := s.provider.FetchQuestions(ctx, s.settings.QuestionCount)
	if err != nil {
		if !errors.Is(err, domain.ErrProvider) {
			err = fmt.Errorf("%w: %w", domain.ErrProvider, err)
		}
		log.Printf("assessment %s failed to load: %v", session.ID(), err)
		return domain.Snapshot{}, err
	}
	if len(raw) > s.settings.QuestionCount {
		raw = raw[:s.settings.QuestionCount]
	}
	questions, err := s.normalizer.Normalize(raw)
	if err != nil {
		log.Printf("assessment %s failed to load: %v", session.ID(), err)
		return domain.Snapshot{}, err
	}
	if err := session.Start(questions, s.settings.BudgetSeconds); err != nil {
		return domain.Snapshot{}, err
	}

	s.sessions.Put(session)
	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.timers[session.ID()] = cancel
	s.handoffs[session.ID()] = &handoff{done: make(chan struct{})}
	s.mu.Unlock()

	go RunCountdown(runCtx, session, s.ticks, func() {
		s.finalizeWithRetry(session)
	})

	log.Printf("assessment %s started for %s with %d questions", session.ID(), participant, len(questions))
	return session.Snapshot(), nil
}

// Answer records choice for the session's current question.
func (s *AssessmentService) Answer(_ context.Context, sessionID, choice string) (domain.Snapshot, error) {
	return s.apply(sessionID, func(session *Session) error { return session.RecordAnswer(choice) })
}

// Navigate jumps to question index.
func (s *AssessmentService) Navigate(_ context.Context, sessionID string, index int) (domain.Snapshot, error) {
	return s.apply(sessionID, func(session *Session) error { return session.NavigateTo(index) })
}

// Next moves to the following question.
func (s *AssessmentService) Next(_ context.Context, sessionID string) (domain.Snapshot, error) {
	return s.apply(sessionID, (*Session).Next)
}

// Previous moves to the preceding question.
func (s *AssessmentService) Previous(_ context.Context, sessionID string) (domain.Snapshot, error) {
	return s.apply(sessionID, (*Session).Previous)
}

// Snapshot returns the current view of an active session.
func (s *AssessmentService) Snapshot(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives a snapshot after each transition
// and tick. The caller must invoke the returned cancel function to avoid leaks.
func (s *AssessmentService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Snapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// HandedOff returns a channel closed once the session's record is available
// to Report. Subscribers see the submitted snapshot slightly before that.
func (s *AssessmentService) HandedOff(_ context.Context, sessionID string) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handoffs[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return h.done, nil
}

// Submit ends the session manually and hands its record to the reporting
// stage. Submitting a session the timer already closed is not an error.
// When an earlier submission failed to store the record, Submit retries it.
// Submitted sessions stay visible to Snapshot until reported, abandoned or
// evicted after Settings.ReportRetention.
func (s *AssessmentService) Submit(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	if _, err := session.Submit(); err != nil {
		return domain.Snapshot{}, err
	}
	if err := s.finalize(ctx, session); err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Report consumes the handoff record of a submitted session and produces its
// scored report. A second call for the same session yields domain.ErrRecordNotFound.
func (s *AssessmentService) Report(ctx context.Context, sessionID string) (domain.Report, error) {
	rec, err := s.records.Take(ctx, sessionID)
	if err != nil {
		return domain.Report{}, err
	}
	s.sessions.Delete(sessionID)
	s.forget(sessionID)

	score, err := s.scorer.Score(rec)
	if err != nil {
		return domain.Report{}, err
	}
	report, err := BuildReport(rec, score, s.now())
	if err != nil {
		return domain.Report{}, err
	}

	if s.archive != nil {
		if err := s.archive.Save(ctx, report); err != nil {
			log.Printf("assessment %s archive failed: %v", sessionID, err)
		}
	}
	s.publish(EventReported, map[string]interface{}{
		"sessionId":   report.SessionID,
		"participant": report.Participant,
		"percentage":  report.Percentage,
		"performance": report.Performance,
	})
	log.Printf("assessment %s reported: %s %s", sessionID, report.Score, report.Performance)
	return report, nil
}

// History lists the archived reports of participant, newest first.
func (s *AssessmentService) History(ctx context.Context, participant string) ([]domain.Report, error) {
	participant = strings.TrimSpace(participant)
	if participant == "" {
		return nil, domain.ErrMissingParticipant
	}
	if s.archive == nil {
		return nil, fmt.Errorf("%w: report archive not configured", domain.ErrInvalidConfiguration)
	}
	return s.archive.ListByParticipant(ctx, participant)
}

// Abandon drops a session. An unsubmitted session produces no record; the
// record of a submitted but unreported one is discarded.
func (s *AssessmentService) Abandon(ctx context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.drop(ctx, sessionID)
	if session.Phase() != domain.PhaseSubmitted {
		log.Printf("assessment %s abandoned", sessionID)
	}
	return nil
}

// Shutdown stops every running countdown. Active sessions are abandoned.
func (s *AssessmentService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.timers {
		cancel()
		delete(s.timers, id)
	}
	for id, t := range s.evictions {
		t.Stop()
		delete(s.evictions, id)
	}
}

func (s *AssessmentService) apply(sessionID string, op func(*Session) error) (domain.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := op(session); err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// finalize stores the record of a submitted session, for whichever
// submission path won. It is a no-op once the record is stored and retries
// the write when an earlier attempt failed.
func (s *AssessmentService) finalize(ctx context.Context, session *Session) error {
	s.stopTimer(session.ID())

	s.mu.Lock()
	h, ok := s.handoffs[session.ID()]
	s.mu.Unlock()
	if !ok {
		// dropped or already reported
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return nil
	default:
	}

	rec, err := session.Record()
	if err != nil {
		return err
	}
	// ErrRecordExists means an earlier write landed despite reporting an error
	if err := s.records.Put(ctx, rec); err != nil && !errors.Is(err, domain.ErrRecordExists) {
		return fmt.Errorf("store session record: %w", err)
	}

	s.mu.Lock()
	close(h.done)
	abandoned := h.abandoned
	if _, pending := s.handoffs[rec.SessionID]; pending && !abandoned {
		s.evictions[rec.SessionID] = time.AfterFunc(s.settings.ReportRetention, func() {
			s.evict(rec.SessionID)
		})
	}
	s.mu.Unlock()
	if abandoned {
		// abandoned while the record was being written
		if err := s.records.Discard(ctx, rec.SessionID); err != nil {
			log.Printf("assessment %s discard failed: %v", rec.SessionID, err)
		}
		return nil
	}

	s.publish(EventSubmitted, map[string]interface{}{
		"sessionId":   rec.SessionID,
		"participant": rec.Participant,
		"trigger":     rec.Trigger,
		"timeSpent":   rec.TimeSpent,
	})
	log.Printf("assessment %s submitted (%s) after %ds", rec.SessionID, rec.Trigger, rec.TimeSpent)
	return nil
}

func (s *AssessmentService) finalizeWithRetry(session *Session) {
	delay := s.retryDelay
	for attempt := 1; ; attempt++ {
		err := s.finalize(context.Background(), session)
		if err == nil {
			return
		}
		if attempt >= s.retryAttempts {
			log.Printf("assessment %s timeout handoff failed after %d attempts: %v", session.ID(), attempt, err)
			return
		}
		log.Printf("assessment %s timeout handoff attempt %d failed: %v", session.ID(), attempt, err)
		time.Sleep(delay)
		delay *= 2
	}
}

// evict drops a submitted session nobody reported within the retention window.
func (s *AssessmentService) evict(sessionID string) {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return
	}
	s.drop(context.Background(), sessionID)
	log.Printf("assessment %s evicted without report", sessionID)
}

func (s *AssessmentService) drop(ctx context.Context, sessionID string) {
	s.stopTimer(sessionID)
	s.sessions.Delete(sessionID)
	s.mu.Lock()
	if h, ok := s.handoffs[sessionID]; ok {
		h.abandoned = true
	}
	s.mu.Unlock()
	s.forget(sessionID)
	if err := s.records.Discard(ctx, sessionID); err != nil {
		log.Printf("assessment %s discard failed: %v", sessionID, err)
	}
}

func (s *AssessmentService) stopTimer(sessionID string) {
	s.mu.Lock()
	cancel, ok := s.timers[sessionID]
	delete(s.timers, sessionID)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *AssessmentService) forget(sessionID string) {
	s.mu.Lock()
	delete(s.handoffs, sessionID)
	if t, ok := s.evictions[sessionID]; ok {
		t.Stop()
		delete(s.evictions, sessionID)
	}
	s.mu.Unlock()
}

func (s *AssessmentService) publish(eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(eventType, payload); err != nil {
		log.Printf("publish %s failed: %v", eventType, err)
	}
}

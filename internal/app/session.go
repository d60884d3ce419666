package app

import (
	"fmt"
	"sync"
	"time"

	"quizsphere/internal/domain"
)

// Session is the in-memory state machine of one assessment attempt. It is the
// only thing allowed to mutate the attempt's state; every transition is taken
// under mu so timer ticks and user events are serialized.
type Session struct {
	id          string
	participant string
	now         func() time.Time
	lowTime     int

	mu          sync.Mutex
	phase       domain.Phase
	questions   []domain.Question
	current     int
	status      []domain.QuestionStatus
	answers     map[int]string
	budget      int
	remaining   int
	trigger     domain.SubmitTrigger
	submittedAt time.Time
	done        chan struct{}
	subscribers map[chan domain.Snapshot]struct{}
}

// NewSession creates a session in the loading phase. Snapshots flag low time
// once remaining seconds drop to lowTimeSeconds or below.
func NewSession(id, participant string, lowTimeSeconds int) *Session {
	return NewSessionWithClock(id, participant, lowTimeSeconds, time.Now)
}

// NewSessionWithClock allows deterministic submission timestamps in tests.
func NewSessionWithClock(id, participant string, lowTimeSeconds int, now func() time.Time) *Session {
	return &Session{
		id:          id,
		participant: participant,
		now:         now,
		lowTime:     lowTimeSeconds,
		phase:       domain.PhaseLoading,
		answers:     make(map[int]string),
		done:        make(chan struct{}),
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Participant returns the opaque identity label the session was opened for.
func (s *Session) Participant() string { return s.participant }

// Start moves a loading session to active with the first question visited.
func (s *Session) Start(questions []domain.Question, budgetSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseSubmitted:
		return domain.ErrSessionClosed
	case domain.PhaseActive:
		return fmt.Errorf("%w: session already started", domain.ErrInvalidConfiguration)
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: empty question set", domain.ErrInvalidConfiguration)
	}
	if budgetSeconds <= 0 {
		return fmt.Errorf("%w: time budget must be positive, got %d", domain.ErrInvalidConfiguration, budgetSeconds)
	}

	s.questions = append([]domain.Question(nil), questions...)
	s.status = make([]domain.QuestionStatus, len(questions))
	for i := range s.status {
		s.status[i] = domain.StatusNotVisited
	}
	s.status[0] = domain.StatusVisited
	s.current = 0
	s.budget = budgetSeconds
	s.remaining = budgetSeconds
	s.phase = domain.PhaseActive
	s.broadcastLocked()
	return nil
}

// RecordAnswer stores choice for the current question. Re-answering overwrites.
func (s *Session) RecordAnswer(choice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	if !s.questions[s.current].HasChoice(choice) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAnswer, choice)
	}
	s.answers[s.current] = choice
	s.status[s.current] = domain.StatusAnswered
	s.broadcastLocked()
	return nil
}

// NavigateTo makes index the current question. Answered questions keep their status.
func (s *Session) NavigateTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	return s.navigateLocked(index)
}

// Next moves one question forward, staying on the last question.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	return s.navigateLocked(min(s.current+1, len(s.questions)-1))
}

// Previous moves one question back, staying on the first question.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	return s.navigateLocked(max(s.current-1, 0))
}

func (s *Session) navigateLocked(index int) error {
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("%w: %d not in [0,%d)", domain.ErrIndexOutOfRange, index, len(s.questions))
	}
	if index == s.current {
		return nil
	}
	s.current = index
	if s.status[index] == domain.StatusNotVisited {
		s.status[index] = domain.StatusVisited
	}
	s.broadcastLocked()
	return nil
}

// Tick consumes one second of the budget. It reports true when this tick
// exhausted the budget and submitted the session.
func (s *Session) Tick() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return false, err
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.submitLocked(domain.TriggerTimeout)
		return true, nil
	}
	s.broadcastLocked()
	return false, nil
}

// Submit freezes an active session. It reports whether this call performed the
// transition; submitting an already submitted session is a no-op.
func (s *Session) Submit() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseLoading:
		return false, domain.ErrSessionNotStarted
	case domain.PhaseSubmitted:
		return false, nil
	}
	s.submitLocked(domain.TriggerManual)
	return true, nil
}

func (s *Session) submitLocked(trigger domain.SubmitTrigger) {
	s.phase = domain.PhaseSubmitted
	s.trigger = trigger
	s.submittedAt = s.now()
	close(s.done)
	s.broadcastLocked()
}

// Done is closed once the session is submitted.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns a copy of the session state without correct answers.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Record returns the frozen state of a submitted session.
func (s *Session) Record() (domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseLoading:
		return domain.SessionRecord{}, domain.ErrSessionNotStarted
	case domain.PhaseActive:
		return domain.SessionRecord{}, domain.ErrSessionActive
	}

	answers := make(map[int]string, len(s.answers))
	for i, a := range s.answers {
		answers[i] = a
	}
	return domain.SessionRecord{
		SessionID:     s.id,
		Participant:   s.participant,
		Questions:     append([]domain.Question(nil), s.questions...),
		Answers:       answers,
		TimeSpent:     s.budget - s.remaining,
		BudgetSeconds: s.budget,
		Trigger:       s.trigger,
		SubmittedAt:   s.submittedAt,
	}, nil
}

// Subscribe returns a channel receiving a snapshot after every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// ch is empty, so this cannot block
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) activeLocked() error {
	switch s.phase {
	case domain.PhaseLoading:
		return domain.ErrSessionNotStarted
	case domain.PhaseSubmitted:
		return domain.ErrSessionClosed
	}
	return nil
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: replace its oldest snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:        s.id,
		Participant:      s.participant,
		Phase:            s.phase,
		CurrentIndex:     s.current,
		Status:           append([]domain.QuestionStatus(nil), s.status...),
		AnsweredCount:    len(s.answers),
		TotalCount:       len(s.questions),
		RemainingSeconds: s.remaining,
		BudgetSeconds:    s.budget,
		LowTime:          s.phase == domain.PhaseActive && s.remaining <= s.lowTime,
	}
	if len(s.questions) > 0 {
		q := s.questions[s.current]
		snap.Current = &domain.PublicQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Choices: append([]string(nil), q.Choices...),
		}
		snap.SelectedChoice = s.answers[s.current]
	}
	return snap
}

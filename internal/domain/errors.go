package domain

import "errors"

var (
	// ErrProvider is returned when the question source is unavailable or returns malformed items.
	ErrProvider = errors.New("question provider error")
	// ErrInvalidConfiguration indicates a session cannot start with the given question set or budget.
	ErrInvalidConfiguration = errors.New("invalid session configuration")
	// ErrSessionNotStarted is returned for operations issued while questions are still loading.
	ErrSessionNotStarted = errors.New("session not started")
	// ErrSessionActive is returned when the frozen record is requested before submission.
	ErrSessionActive = errors.New("session not yet submitted")
	// ErrSessionClosed is returned when a submitted session is mutated.
	ErrSessionClosed = errors.New("session already submitted")
	// ErrIndexOutOfRange indicates a navigation target outside the question set.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrInvalidAnswer indicates a choice that is not offered by the current question.
	ErrInvalidAnswer = errors.New("choice not offered by current question")
	// ErrEmptySession is returned when scoring a session without questions.
	ErrEmptySession = errors.New("session has no questions")
	// ErrSessionNotFound is returned when no active session matches the id.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrRecordNotFound means there is no completed assessment waiting to be reported.
	ErrRecordNotFound = errors.New("no completed assessment found")
	// ErrRecordExists is returned when a handoff record is written twice.
	ErrRecordExists = errors.New("completed assessment already stored")
	// ErrMissingParticipant is returned when a session is requested without a participant label.
	ErrMissingParticipant = errors.New("participant is required")
)

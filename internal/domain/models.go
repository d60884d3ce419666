package domain

import "time"

// RawQuestion is a multiple choice item as returned by the question provider.
// Text fields may still carry HTML entities.
type RawQuestion struct {
	Category         string   `json:"category" yaml:"category"`
	Difficulty       string   `json:"difficulty" yaml:"difficulty"`
	Question         string   `json:"question" yaml:"question"`
	CorrectAnswer    string   `json:"correct_answer" yaml:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers" yaml:"incorrect_answers"`
}

// Question is an immutable, normalized item. Choices are ordered once at creation.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"question"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"`
}

// HasChoice reports whether choice is one of the question's choices.
func (q Question) HasChoice(choice string) bool {
	for _, c := range q.Choices {
		if c == choice {
			return true
		}
	}
	return false
}

// QuestionStatus tracks whether a participant has seen or answered a question.
type QuestionStatus string

const (
	StatusNotVisited QuestionStatus = "not-visited"
	StatusVisited    QuestionStatus = "visited"
	StatusAnswered   QuestionStatus = "answered"
)

// Phase is the lifecycle stage of a session.
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseActive    Phase = "active"
	PhaseSubmitted Phase = "submitted"
)

// SubmitTrigger records why a session was submitted.
type SubmitTrigger string

const (
	TriggerManual  SubmitTrigger = "manual"
	TriggerTimeout SubmitTrigger = "timeout"
)

// Snapshot is a read-only view of a session, safe to hand to presentation layers.
type Snapshot struct {
	SessionID        string           `json:"sessionId"`
	Participant      string           `json:"participant"`
	Phase            Phase            `json:"phase"`
	CurrentIndex     int              `json:"currentIndex"`
	Current          *PublicQuestion  `json:"current,omitempty"`
	Status           []QuestionStatus `json:"status"`
	SelectedChoice   string           `json:"selectedChoice,omitempty"`
	AnsweredCount    int              `json:"answeredCount"`
	TotalCount       int              `json:"totalCount"`
	RemainingSeconds int              `json:"remainingSeconds"`
	BudgetSeconds    int              `json:"budgetSeconds"`
	LowTime          bool             `json:"lowTime"`
}

// PublicQuestion hides the correct answer from an active session view.
type PublicQuestion struct {
	ID      int      `json:"id"`
	Text    string   `json:"question"`
	Choices []string `json:"choices"`
}

// SessionRecord is the frozen state handed from the assessment stage to the
// reporting stage. It is written once and read once.
type SessionRecord struct {
	SessionID     string         `json:"sessionId"`
	Participant   string         `json:"participant"`
	Questions     []Question     `json:"questions"`
	Answers       map[int]string `json:"answers"`
	TimeSpent     int            `json:"timeSpent"`
	BudgetSeconds int            `json:"budgetSeconds"`
	Trigger       SubmitTrigger  `json:"trigger"`
	SubmittedAt   time.Time      `json:"submittedAt"`
}

// Tier is a named performance band reached at Min percent or above.
type Tier struct {
	Min   int    `json:"min" yaml:"min"`
	Label string `json:"label" yaml:"label"`
}

// QuestionScore is the per-question outcome of a scored session.
type QuestionScore struct {
	QuestionIndex int     `json:"questionIndex"`
	UserAnswer    *string `json:"userAnswer,omitempty"`
	IsCorrect     bool    `json:"isCorrect"`
	WasAnswered   bool    `json:"wasAnswered"`
}

// ScoreReport is derived once from a frozen session.
type ScoreReport struct {
	CorrectCount    int             `json:"correctCount"`
	TotalCount      int             `json:"totalCount"`
	Percentage      int             `json:"percentage"`
	PerformanceTier string          `json:"performanceTier"`
	ElapsedSeconds  int             `json:"elapsedSeconds"`
	PerQuestion     []QuestionScore `json:"perQuestion"`
}

// Report is the durable, downloadable result of an assessment.
type Report struct {
	Platform       string           `json:"platform" yaml:"platform"`
	SessionID      string           `json:"sessionId" yaml:"session_id"`
	Participant    string           `json:"email" yaml:"email"`
	Score          string           `json:"score" yaml:"score"`
	CorrectCount   int              `json:"correctCount" yaml:"correct_count"`
	TotalCount     int              `json:"totalCount" yaml:"total_count"`
	Percentage     int              `json:"percentage" yaml:"percentage"`
	Performance    string           `json:"performance" yaml:"performance"`
	ElapsedSeconds int              `json:"elapsedSeconds" yaml:"elapsed_seconds"`
	TimeSpent      string           `json:"timeSpent" yaml:"time_spent"`
	Trigger        SubmitTrigger    `json:"trigger" yaml:"trigger"`
	CompletedAt    time.Time        `json:"completedAt" yaml:"completed_at"`
	Questions      []ReportQuestion `json:"questions" yaml:"questions"`
}

// ReportQuestion is one reviewed question in a Report.
type ReportQuestion struct {
	Question      string `json:"question" yaml:"question"`
	UserAnswer    string `json:"userAnswer" yaml:"user_answer"`
	CorrectAnswer string `json:"correctAnswer" yaml:"correct_answer"`
	IsCorrect     bool   `json:"isCorrect" yaml:"is_correct"`
	WasAnswered   bool   `json:"wasAnswered" yaml:"was_answered"`
}

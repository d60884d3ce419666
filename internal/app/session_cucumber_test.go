//go:build cucumber

package app

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"quizsphere/internal/domain"
)

// TestSessionScenarios runs the session lifecycle feature scenarios.
func TestSessionScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "session",
		ScenarioInitializer: InitializeSessionScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeSessionScenario wires steps for session scenarios.
func InitializeSessionScenario(ctx *godog.ScenarioContext) {
	state := &sessionScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.session = nil
		return ctx, nil
	})

	ctx.Step(`^a session with (\d+) questions and a budget of (\d+) seconds$`, state.givenSession)
	ctx.Step(`^I answer the current question correctly$`, state.whenAnswerCorrectly)
	ctx.Step(`^I move to the next question$`, state.whenNext)
	ctx.Step(`^I move to the previous question$`, state.whenPrevious)
	ctx.Step(`^I jump to question (\d+)$`, state.whenJump)
	ctx.Step(`^I submit the session$`, state.whenSubmit)
	ctx.Step(`^(\d+) seconds pass$`, state.whenSecondsPass)
	ctx.Step(`^the current question is (\d+)$`, state.thenCurrent)
	ctx.Step(`^the question statuses are "([^"]*)"$`, state.thenStatuses)
	ctx.Step(`^(\d+) seconds remain$`, state.thenRemaining)
	ctx.Step(`^jumping to question (\d+) fails with "([^"]*)"$`, state.thenJumpFails)
	ctx.Step(`^answering "([^"]*)" fails with "([^"]*)"$`, state.thenAnswerFails)
	ctx.Step(`^the session is submitted by "([^"]*)"$`, state.thenSubmittedBy)
	ctx.Step(`^submitting again changes nothing$`, state.thenResubmitNoop)
	ctx.Step(`^the score is (\d+) of (\d+) for (\d+) percent rated "([^"]*)"$`, state.thenScore)
}

type sessionScenarioState struct {
	session *Session
}

// givenSession starts a session over generated questions whose correct
// answer is always the first choice.
func (s *sessionScenarioState) givenSession(count, budget int) error {
	questions := make([]domain.Question, count)
	for i := range questions {
		questions[i] = domain.Question{
			ID:            i,
			Text:          fmt.Sprintf("Q%d", i),
			Choices:       []string{fmt.Sprintf("A%d", i), fmt.Sprintf("B%d", i), fmt.Sprintf("C%d", i)},
			CorrectAnswer: fmt.Sprintf("A%d", i),
		}
	}
	s.session = NewSession("scenario", "ada@example.com", 1)
	return s.session.Start(questions, budget)
}

func (s *sessionScenarioState) whenAnswerCorrectly() error {
	snap := s.session.Snapshot()
	if snap.Current == nil {
		return fmt.Errorf("no current question")
	}
	return s.session.RecordAnswer(snap.Current.Choices[0])
}

func (s *sessionScenarioState) whenNext() error     { return s.session.Next() }
func (s *sessionScenarioState) whenPrevious() error { return s.session.Previous() }

func (s *sessionScenarioState) whenJump(position int) error {
	return s.session.NavigateTo(position - 1)
}

func (s *sessionScenarioState) whenSubmit() error {
	won, err := s.session.Submit()
	if err != nil {
		return err
	}
	if !won {
		return fmt.Errorf("expected this submission to freeze the session")
	}
	return nil
}

func (s *sessionScenarioState) whenSecondsPass(seconds int) error {
	for i := 0; i < seconds; i++ {
		if _, err := s.session.Tick(); err != nil {
			return err
		}
	}
	return nil
}

func (s *sessionScenarioState) thenCurrent(position int) error {
	if got := s.session.Snapshot().CurrentIndex + 1; got != position {
		return fmt.Errorf("expected question %d, got %d", position, got)
	}
	return nil
}

func (s *sessionScenarioState) thenStatuses(raw string) error {
	status := s.session.Snapshot().Status
	parts := make([]string, len(status))
	for i, st := range status {
		parts[i] = string(st)
	}
	if got := strings.Join(parts, ","); got != raw {
		return fmt.Errorf("expected statuses %s, got %s", raw, got)
	}
	return nil
}

func (s *sessionScenarioState) thenRemaining(seconds int) error {
	if got := s.session.Snapshot().RemainingSeconds; got != seconds {
		return fmt.Errorf("expected %d seconds remaining, got %d", seconds, got)
	}
	return nil
}

func (s *sessionScenarioState) thenJumpFails(position int, message string) error {
	return expectFailure(s.session.NavigateTo(position-1), message)
}

func (s *sessionScenarioState) thenAnswerFails(choice, message string) error {
	return expectFailure(s.session.RecordAnswer(choice), message)
}

func (s *sessionScenarioState) thenSubmittedBy(trigger string) error {
	rec, err := s.session.Record()
	if err != nil {
		return err
	}
	if string(rec.Trigger) != trigger {
		return fmt.Errorf("expected trigger %s, got %s", trigger, rec.Trigger)
	}
	return nil
}

func (s *sessionScenarioState) thenResubmitNoop() error {
	before, err := s.session.Record()
	if err != nil {
		return err
	}
	won, err := s.session.Submit()
	if err != nil {
		return err
	}
	if won {
		return fmt.Errorf("second submission should not freeze the session again")
	}
	after, err := s.session.Record()
	if err != nil {
		return err
	}
	if after.Trigger != before.Trigger || after.TimeSpent != before.TimeSpent {
		return fmt.Errorf("record changed after resubmission: %+v", after)
	}
	return nil
}

func (s *sessionScenarioState) thenScore(correct, total, percentage int, tier string) error {
	rec, err := s.session.Record()
	if err != nil {
		return err
	}
	scorer, err := NewScorer(nil)
	if err != nil {
		return err
	}
	score, err := scorer.Score(rec)
	if err != nil {
		return err
	}
	if score.CorrectCount != correct || score.TotalCount != total || score.Percentage != percentage || score.PerformanceTier != tier {
		return fmt.Errorf("unexpected score %+v", score)
	}
	return nil
}

func expectFailure(err error, message string) error {
	if err == nil {
		return fmt.Errorf("expected failure %q, got success", message)
	}
	if !strings.Contains(err.Error(), message) {
		return fmt.Errorf("expected failure %q, got %v", message, err)
	}
	return nil
}

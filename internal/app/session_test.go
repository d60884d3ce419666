package app_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"quizsphere/internal/app"
	"quizsphere/internal/domain"
)

func TestStartInitializesState(t *testing.T) {
	session := startedSession(t, 1800)

	snap := session.Snapshot()
	if snap.Phase != domain.PhaseActive {
		t.Fatalf("expected active phase, got %s", snap.Phase)
	}
	want := []domain.QuestionStatus{domain.StatusVisited, domain.StatusNotVisited, domain.StatusNotVisited}
	if !reflect.DeepEqual(snap.Status, want) {
		t.Fatalf("expected statuses %v, got %v", want, snap.Status)
	}
	if snap.CurrentIndex != 0 || snap.RemainingSeconds != 1800 || snap.AnsweredCount != 0 {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
	if snap.Current == nil || snap.Current.Text != "Q0" {
		t.Fatalf("expected first question as current, got %+v", snap.Current)
	}
}

func TestStartRejectsEmptyQuestionSet(t *testing.T) {
	session := app.NewSession("s1", "ada@example.com", 0)
	if err := session.Start(nil, 1800); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
	if err := session.Start(threeQuestions(), 0); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected invalid configuration for zero budget, got %v", err)
	}
	if session.Phase() != domain.PhaseLoading {
		t.Fatalf("expected session to stay loading, got %s", session.Phase())
	}
}

func TestOperationsRejectedWhileLoading(t *testing.T) {
	session := app.NewSession("s1", "ada@example.com", 0)

	if err := session.RecordAnswer("A"); !errors.Is(err, domain.ErrSessionNotStarted) {
		t.Fatalf("answer: expected not started, got %v", err)
	}
	if err := session.NavigateTo(0); !errors.Is(err, domain.ErrSessionNotStarted) {
		t.Fatalf("navigate: expected not started, got %v", err)
	}
	if _, err := session.Tick(); !errors.Is(err, domain.ErrSessionNotStarted) {
		t.Fatalf("tick: expected not started, got %v", err)
	}
	if _, err := session.Submit(); !errors.Is(err, domain.ErrSessionNotStarted) {
		t.Fatalf("submit: expected not started, got %v", err)
	}
	if _, err := session.Record(); !errors.Is(err, domain.ErrSessionNotStarted) {
		t.Fatalf("record: expected not started, got %v", err)
	}
}

func TestStatusCoversEveryQuestion(t *testing.T) {
	session := startedSession(t, 1800)
	steps := []func() error{
		func() error { return session.RecordAnswer("A") },
		func() error { return session.NavigateTo(2) },
		func() error { return session.NavigateTo(9) },
		func() error { return session.RecordAnswer("nope") },
		func() error { _, err := session.Tick(); return err },
		func() error { return session.Previous() },
		func() error { _, err := session.Submit(); return err },
	}
	for i, step := range steps {
		_ = step()
		if got := len(session.Snapshot().Status); got != 3 {
			t.Fatalf("step %d: expected 3 statuses, got %d", i, got)
		}
	}
}

func TestNavigateKeepsAnsweredStatus(t *testing.T) {
	session := startedSession(t, 1800)

	mustDo(t, session.RecordAnswer("A"))
	mustDo(t, session.NavigateTo(1))
	mustDo(t, session.NavigateTo(0))

	snap := session.Snapshot()
	if snap.Status[0] != domain.StatusAnswered {
		t.Fatalf("expected answered question to stay answered, got %s", snap.Status[0])
	}
	if snap.Status[1] != domain.StatusVisited {
		t.Fatalf("expected visited question 1, got %s", snap.Status[1])
	}
	if snap.SelectedChoice != "A" {
		t.Fatalf("expected recorded answer preserved, got %q", snap.SelectedChoice)
	}
}

func TestNavigateToCurrentIsNoop(t *testing.T) {
	session := startedSession(t, 1800)
	before := session.Snapshot()

	mustDo(t, session.NavigateTo(0))
	if after := session.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("expected no change, before=%+v after=%+v", before, after)
	}
}

func TestNavigateOutOfRangeLeavesStateUnchanged(t *testing.T) {
	session := startedSession(t, 1800)
	before := session.Snapshot()

	for _, index := range []int{5, 3, -1} {
		if err := session.NavigateTo(index); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Fatalf("navigate(%d): expected index out of range, got %v", index, err)
		}
	}
	if after := session.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("expected unchanged state, before=%+v after=%+v", before, after)
	}
}

func TestRecordAnswerRejectsUnknownChoice(t *testing.T) {
	session := startedSession(t, 1800)
	before := session.Snapshot()

	for _, choice := range []string{"", "D", "a"} {
		if err := session.RecordAnswer(choice); !errors.Is(err, domain.ErrInvalidAnswer) {
			t.Fatalf("answer %q: expected invalid answer, got %v", choice, err)
		}
	}
	if after := session.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("expected unchanged state, before=%+v after=%+v", before, after)
	}
}

func TestRecordAnswerLastWriteWins(t *testing.T) {
	session := startedSession(t, 1800)

	mustDo(t, session.RecordAnswer("A"))
	mustDo(t, session.RecordAnswer("C"))

	snap := session.Snapshot()
	if snap.SelectedChoice != "C" || snap.Status[0] != domain.StatusAnswered || snap.AnsweredCount != 1 {
		t.Fatalf("expected overwrite to C with one answered, got %+v", snap)
	}
}

func TestNextAndPreviousClamp(t *testing.T) {
	session := startedSession(t, 1800)

	mustDo(t, session.Previous())
	if got := session.Snapshot().CurrentIndex; got != 0 {
		t.Fatalf("expected to stay on 0, got %d", got)
	}
	mustDo(t, session.Next())
	mustDo(t, session.Next())
	mustDo(t, session.Next())
	snap := session.Snapshot()
	if snap.CurrentIndex != 2 {
		t.Fatalf("expected to stop on last question, got %d", snap.CurrentIndex)
	}
	if snap.Status[1] != domain.StatusVisited || snap.Status[2] != domain.StatusVisited {
		t.Fatalf("expected passed questions visited, got %v", snap.Status)
	}
}

func TestTicksExhaustBudgetAndSubmitOnce(t *testing.T) {
	const budget = 5
	session := startedSession(t, budget)

	expiredCount := 0
	for i := 0; i < budget; i++ {
		expired, err := session.Tick()
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if expired {
			expiredCount++
		}
	}
	if expiredCount != 1 {
		t.Fatalf("expected exactly one expiring tick, got %d", expiredCount)
	}
	if _, err := session.Tick(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected stray tick rejected, got %v", err)
	}

	select {
	case <-session.Done():
	default:
		t.Fatalf("expected done channel closed")
	}

	rec, err := session.Record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.TimeSpent != budget || rec.Trigger != domain.TriggerTimeout {
		t.Fatalf("expected timeout after %ds, got %+v", budget, rec)
	}
	if snap := session.Snapshot(); snap.RemainingSeconds != 0 || snap.Phase != domain.PhaseSubmitted {
		t.Fatalf("expected submitted with 0 remaining, got %+v", snap)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	session := startedSession(t, 1800)
	mustDo(t, session.RecordAnswer("A"))

	won, err := session.Submit()
	if err != nil || !won {
		t.Fatalf("expected first submit to win, got %v %v", won, err)
	}
	first, _ := session.Record()

	won, err = session.Submit()
	if err != nil || won {
		t.Fatalf("expected second submit to be a no-op, got %v %v", won, err)
	}
	second, _ := session.Record()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical records, got %+v and %+v", first, second)
	}
}

func TestSubmitAfterTimeoutIsNoop(t *testing.T) {
	session := startedSession(t, 1)
	expired, err := session.Tick()
	if err != nil || !expired {
		t.Fatalf("expected expiring tick, got %v %v", expired, err)
	}
	won, err := session.Submit()
	if err != nil || won {
		t.Fatalf("expected no-op submit after timeout, got %v %v", won, err)
	}
	rec, _ := session.Record()
	if rec.Trigger != domain.TriggerTimeout {
		t.Fatalf("expected timeout trigger kept, got %s", rec.Trigger)
	}
}

func TestSubmittedSessionIsFrozen(t *testing.T) {
	session := startedSession(t, 1800)
	mustDo(t, session.RecordAnswer("A"))
	if _, err := session.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := session.Snapshot()

	if err := session.RecordAnswer("B"); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("answer: expected closed, got %v", err)
	}
	if err := session.NavigateTo(1); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("navigate: expected closed, got %v", err)
	}
	if err := session.Next(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("next: expected closed, got %v", err)
	}
	if _, err := session.Tick(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("tick: expected closed, got %v", err)
	}
	if err := session.Start(threeQuestions(), 10); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("start: expected closed, got %v", err)
	}
	if after := session.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("expected frozen state, before=%+v after=%+v", before, after)
	}
}

func TestRecordRequiresSubmission(t *testing.T) {
	session := startedSession(t, 1800)
	if _, err := session.Record(); !errors.Is(err, domain.ErrSessionActive) {
		t.Fatalf("expected session active error, got %v", err)
	}
}

func TestRecordElapsedFromRemaining(t *testing.T) {
	session := startedSession(t, 1800)
	for i := 0; i < 600; i++ {
		if _, err := session.Tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if _, err := session.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec, _ := session.Record()
	if rec.TimeSpent != 600 || rec.BudgetSeconds != 1800 || rec.Trigger != domain.TriggerManual {
		t.Fatalf("expected 600s manual submission, got %+v", rec)
	}
	if !rec.SubmittedAt.Equal(fixedNow()) {
		t.Fatalf("expected submission timestamp from clock, got %v", rec.SubmittedAt)
	}
}

func TestRecordIsDetachedFromSession(t *testing.T) {
	session := startedSession(t, 1800)
	mustDo(t, session.RecordAnswer("A"))
	_, _ = session.Submit()

	rec, _ := session.Record()
	rec.Answers[0] = "tampered"
	again, _ := session.Record()
	if again.Answers[0] != "A" {
		t.Fatalf("expected record copy, got %q", again.Answers[0])
	}
}

func TestSnapshotFlagsLowTime(t *testing.T) {
	session := app.NewSessionWithClock("s1", "ada@example.com", 2, fixedNow)
	if err := session.Start(threeQuestions(), 4); err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Snapshot().LowTime {
		t.Fatalf("expected no warning with 4s left")
	}
	_, _ = session.Tick()
	_, _ = session.Tick()
	if !session.Snapshot().LowTime {
		t.Fatalf("expected warning with 2s left")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	session := startedSession(t, 1800)
	ch, cancel := session.Subscribe()
	defer cancel()

	initial := <-ch
	if initial.Phase != domain.PhaseActive {
		t.Fatalf("expected initial active snapshot, got %s", initial.Phase)
	}

	mustDo(t, session.RecordAnswer("A"))
	select {
	case update := <-ch:
		if update.AnsweredCount != 1 {
			t.Fatalf("expected answered count 1, got %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
	}
}

func startedSession(t *testing.T, budget int) *app.Session {
	t.Helper()
	session := app.NewSessionWithClock("s1", "ada@example.com", 0, fixedNow)
	if err := session.Start(threeQuestions(), budget); err != nil {
		t.Fatalf("start: %v", err)
	}
	return session
}

func threeQuestions() []domain.Question {
	correct := []string{"A", "B", "C"}
	questions := make([]domain.Question, len(correct))
	for i, c := range correct {
		questions[i] = domain.Question{
			ID:            i,
			Text:          "Q" + string(rune('0'+i)),
			Choices:       []string{"A", "B", "C"},
			CorrectAnswer: c,
		}
	}
	return questions
}

func fixedNow() time.Time {
	return time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubscribeWhileTickingKeepsOrder(t *testing.T) {
	session := startedSession(t, 1000)

	stop := make(chan struct{})
	ticked := make(chan struct{})
	go func() {
		defer close(ticked)
		for i := 0; i < 500; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, _ = session.Tick()
		}
	}()

	for i := 0; i < 50; i++ {
		subscribed := make(chan struct{})
		var ch <-chan domain.Snapshot
		var cancel func()
		go func() {
			ch, cancel = session.Subscribe()
			close(subscribed)
		}()
		select {
		case <-subscribed:
		case <-time.After(time.Second):
			close(stop)
			t.Fatalf("subscribe blocked")
		}

		last := 1001
		for drained := false; !drained; {
			select {
			case snap := <-ch:
				if snap.RemainingSeconds > last {
					t.Fatalf("snapshot out of order: %d after %d", snap.RemainingSeconds, last)
				}
				last = snap.RemainingSeconds
			default:
				drained = true
			}
		}
		cancel()
	}
	close(stop)
	<-ticked
}

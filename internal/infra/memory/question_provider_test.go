package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quizsphere/internal/domain"
)

func TestStaticQuestionProviderLimitsAmount(t *testing.T) {
	provider := NewStaticQuestionProvider(SampleQuestions())

	items, err := provider.FetchQuestions(context.Background(), 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	items, _ = provider.FetchQuestions(context.Background(), 100)
	if len(items) != len(SampleQuestions()) {
		t.Fatalf("expected all %d sample items, got %d", len(SampleQuestions()), len(items))
	}
}

func TestStaticQuestionProviderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticQuestionProvider(SampleQuestions()).FetchQuestions(ctx, 1)
	if !errors.Is(err, domain.ErrProvider) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected provider error wrapping cancellation, got %v", err)
	}
}

func TestLoadQuestionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	content := `
- question: "2 &amp; 2?"
  correct_answer: "4"
  incorrect_answers: ["3", "5"]
- question: "Sky colour?"
  correct_answer: "Blue"
  incorrect_answers: ["Green"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	provider, err := LoadQuestionFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	items, _ := provider.FetchQuestions(context.Background(), 10)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].CorrectAnswer != "4" || len(items[0].IncorrectAnswers) != 2 {
		t.Fatalf("unexpected first item %+v", items[0])
	}
}

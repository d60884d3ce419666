package app_test

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"quizsphere/internal/app"
	"quizsphere/internal/domain"
)

func TestNormalizeDecodesAndAssignsIDs(t *testing.T) {
	n := app.NewNormalizerWithRand(2, rand.New(rand.NewSource(7)))
	raw := []domain.RawQuestion{
		{Question: "2 &amp; 2 = ?", CorrectAnswer: "4 &lt; 5", IncorrectAnswers: []string{"1", "2", "3"}},
		{Question: "Who wrote &quot;Emma&quot;?", CorrectAnswer: "Jane Austen", IncorrectAnswers: []string{"Emily Bront&euml;"}},
	}

	questions, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if q.ID != i {
			t.Fatalf("expected sequential id %d, got %d", i, q.ID)
		}
		if !q.HasChoice(q.CorrectAnswer) {
			t.Fatalf("correct answer %q missing from choices %v", q.CorrectAnswer, q.Choices)
		}
	}
	if questions[0].Text != "2 & 2 = ?" || questions[0].CorrectAnswer != "4 < 5" {
		t.Fatalf("entities not decoded: %+v", questions[0])
	}
	if questions[1].Text != `Who wrote "Emma"?` || !questions[1].HasChoice("Emily Brontë") {
		t.Fatalf("entities not decoded: %+v", questions[1])
	}

	got := append([]string(nil), questions[0].Choices...)
	sort.Strings(got)
	want := []string{"1", "2", "3", "4 < 5"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected choices %v, got %v", want, got)
		}
	}
}

func TestNormalizeOrderIsFixedOnceCreated(t *testing.T) {
	n := app.NewNormalizer(1)
	questions, err := n.Normalize([]domain.RawQuestion{
		{Question: "Pick", CorrectAnswer: "a", IncorrectAnswers: []string{"b", "c", "d", "e", "f"}},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	first := append([]string(nil), questions[0].Choices...)

	session := app.NewSession("s1", "p", 0)
	if err := session.Start(questions, 60); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 5; i++ {
		snap := session.Snapshot()
		for j, c := range snap.Current.Choices {
			if c != first[j] {
				t.Fatalf("choice order changed between reads: %v vs %v", snap.Current.Choices, first)
			}
		}
	}
}

func TestNormalizeRejectsBadSets(t *testing.T) {
	tests := []struct {
		name     string
		minCount int
		raw      []domain.RawQuestion
	}{
		{
			name:     "too few items",
			minCount: 3,
			raw:      []domain.RawQuestion{{Question: "q", CorrectAnswer: "a", IncorrectAnswers: []string{"b"}}},
		},
		{
			name:     "missing correct answer",
			minCount: 1,
			raw:      []domain.RawQuestion{{Question: "q", CorrectAnswer: "  ", IncorrectAnswers: []string{"b", "c"}}},
		},
		{
			name:     "single choice",
			minCount: 1,
			raw:      []domain.RawQuestion{{Question: "q", CorrectAnswer: "a"}},
		},
		{
			name:     "duplicate after decoding",
			minCount: 1,
			raw:      []domain.RawQuestion{{Question: "q", CorrectAnswer: "a&amp;b", IncorrectAnswers: []string{"a&b"}}},
		},
		{
			name:     "one bad item rejects the set",
			minCount: 1,
			raw: []domain.RawQuestion{
				{Question: "ok", CorrectAnswer: "a", IncorrectAnswers: []string{"b"}},
				{Question: "bad", CorrectAnswer: "", IncorrectAnswers: []string{"b"}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			questions, err := app.NewNormalizer(tc.minCount).Normalize(tc.raw)
			if !errors.Is(err, domain.ErrProvider) {
				t.Fatalf("expected provider error, got %v", err)
			}
			if questions != nil {
				t.Fatalf("expected no partial question set, got %v", questions)
			}
		})
	}
}

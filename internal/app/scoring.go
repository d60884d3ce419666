package app

import (
	"fmt"
	"sort"

	"quizsphere/internal/domain"
)

// DefaultTiers returns the standard performance bands.
func DefaultTiers() []domain.Tier {
	return []domain.Tier{
		{Min: 90, Label: "Excellent"},
		{Min: 80, Label: "Very Good"},
		{Min: 70, Label: "Good"},
		{Min: 60, Label: "Fair"},
		{Min: 0, Label: "Needs Improvement"},
	}
}

// Scorer computes score reports from frozen sessions.
type Scorer struct {
	tiers []domain.Tier // sorted by Min, highest first
}

// NewScorer validates tiers; an empty table falls back to DefaultTiers.
// The table must contain a band starting at 0 so every percentage has a tier.
func NewScorer(tiers []domain.Tier) (*Scorer, error) {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	sorted := append([]domain.Tier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })

	for i, t := range sorted {
		if t.Label == "" {
			return nil, fmt.Errorf("%w: tier with min %d has no label", domain.ErrInvalidConfiguration, t.Min)
		}
		if t.Min < 0 || t.Min > 100 {
			return nil, fmt.Errorf("%w: tier %q threshold %d outside 0..100", domain.ErrInvalidConfiguration, t.Label, t.Min)
		}
		if i > 0 && sorted[i-1].Min == t.Min {
			return nil, fmt.Errorf("%w: duplicate tier threshold %d", domain.ErrInvalidConfiguration, t.Min)
		}
	}
	if sorted[len(sorted)-1].Min != 0 {
		return nil, fmt.Errorf("%w: tiers must include a band starting at 0", domain.ErrInvalidConfiguration)
	}
	return &Scorer{tiers: sorted}, nil
}

// Tier returns the label of the highest band percentage reaches.
func (s *Scorer) Tier(percentage int) string {
	for _, t := range s.tiers {
		if percentage >= t.Min {
			return t.Label
		}
	}
	return s.tiers[len(s.tiers)-1].Label
}

// Score grades a frozen session. It has no side effects.
func (s *Scorer) Score(rec domain.SessionRecord) (domain.ScoreReport, error) {
	total := len(rec.Questions)
	if total == 0 {
		return domain.ScoreReport{}, domain.ErrEmptySession
	}

	perQuestion := make([]domain.QuestionScore, total)
	correct := 0
	for i, q := range rec.Questions {
		qs := domain.QuestionScore{QuestionIndex: i}
		if answer, ok := rec.Answers[i]; ok {
			a := answer
			qs.UserAnswer = &a
			qs.WasAnswered = true
			qs.IsCorrect = answer == q.CorrectAnswer
		}
		if qs.IsCorrect {
			correct++
		}
		perQuestion[i] = qs
	}

	percentage := roundPercent(correct, total)
	return domain.ScoreReport{
		CorrectCount:    correct,
		TotalCount:      total,
		Percentage:      percentage,
		PerformanceTier: s.Tier(percentage),
		ElapsedSeconds:  rec.TimeSpent,
		PerQuestion:     perQuestion,
	}, nil
}

// roundPercent is round-half-up of 100*part/whole in integer arithmetic.
func roundPercent(part, whole int) int {
	return (200*part + whole) / (2 * whole)
}

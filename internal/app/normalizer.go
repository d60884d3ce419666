package app

import (
	"fmt"
	"html"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quizsphere/internal/domain"
)

// Normalizer turns provider items into immutable questions with a fixed,
// randomized choice order.
type Normalizer struct {
	minCount int

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewNormalizer creates a normalizer rejecting sets smaller than minCount.
func NewNormalizer(minCount int) *Normalizer {
	return NewNormalizerWithRand(minCount, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewNormalizerWithRand allows a seeded source for deterministic shuffles in tests.
func NewNormalizerWithRand(minCount int, rnd *rand.Rand) *Normalizer {
	return &Normalizer{minCount: minCount, rnd: rnd}
}

// Normalize decodes, validates and shuffles raw items. Either every item is
// accepted or the whole set is rejected with domain.ErrProvider.
func (n *Normalizer) Normalize(raw []domain.RawQuestion) ([]domain.Question, error) {
	if len(raw) < n.minCount {
		return nil, fmt.Errorf("%w: got %d questions, need at least %d", domain.ErrProvider, len(raw), n.minCount)
	}

	questions := make([]domain.Question, 0, len(raw))
	for i, item := range raw {
		q, err := n.normalizeOne(i, item)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (n *Normalizer) normalizeOne(id int, item domain.RawQuestion) (domain.Question, error) {
	correct := decode(item.CorrectAnswer)
	if correct == "" {
		return domain.Question{}, fmt.Errorf("%w: item %d has no correct answer", domain.ErrProvider, id)
	}

	choices := make([]string, 0, len(item.IncorrectAnswers)+1)
	seen := make(map[string]struct{}, cap(choices))
	for _, c := range append(append([]string{}, item.IncorrectAnswers...), item.CorrectAnswer) {
		choice := decode(c)
		if _, dup := seen[choice]; dup {
			return domain.Question{}, fmt.Errorf("%w: item %d repeats choice %q", domain.ErrProvider, id, choice)
		}
		seen[choice] = struct{}{}
		choices = append(choices, choice)
	}
	if len(choices) < 2 {
		return domain.Question{}, fmt.Errorf("%w: item %d has %d choices", domain.ErrProvider, id, len(choices))
	}

	n.mu.Lock()
	n.rnd.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
	n.mu.Unlock()

	return domain.Question{
		ID:            id,
		Text:          decode(item.Question),
		Choices:       choices,
		CorrectAnswer: correct,
	}, nil
}

func decode(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

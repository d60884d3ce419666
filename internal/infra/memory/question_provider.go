package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"quizsphere/internal/domain"
)

// StaticQuestionProvider serves a fixed item list (useful for tests/demos and offline runs).
type StaticQuestionProvider struct {
	items []domain.RawQuestion
}

func NewStaticQuestionProvider(items []domain.RawQuestion) *StaticQuestionProvider {
	return &StaticQuestionProvider{items: items}
}

// LoadQuestionFile reads a YAML (or JSON) list of raw items.
func LoadQuestionFile(path string) (*StaticQuestionProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	var items []domain.RawQuestion
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse question file: %w", err)
	}
	return NewStaticQuestionProvider(items), nil
}

// FetchQuestions returns up to amount items. Fewer items are returned as-is so
// the normalizer can reject short sets.
func (p *StaticQuestionProvider) FetchQuestions(ctx context.Context, amount int) ([]domain.RawQuestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	n := min(amount, len(p.items))
	out := make([]domain.RawQuestion, n)
	copy(out, p.items[:n])
	return out, nil
}

// SampleQuestions is a small built-in set; swap in the Open Trivia DB provider for real assessments.
func SampleQuestions() []domain.RawQuestion {
	return []domain.RawQuestion{
		{Category: "Science: Computers", Question: "What does &quot;CPU&quot; stand for?", CorrectAnswer: "Central Processing Unit", IncorrectAnswers: []string{"Central Process Unit", "Computer Personal Unit", "Central Processor Utility"}},
		{Category: "Science: Computers", Question: "Which company created the Go programming language?", CorrectAnswer: "Google", IncorrectAnswers: []string{"Microsoft", "Apple", "Mozilla"}},
		{Category: "Geography", Question: "What is the capital of Australia?", CorrectAnswer: "Canberra", IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"}},
		{Category: "Science & Nature", Question: "What is the chemical symbol for gold?", CorrectAnswer: "Au", IncorrectAnswers: []string{"Ag", "Gd", "Go"}},
		{Category: "History", Question: "In which year did the Berlin Wall fall?", CorrectAnswer: "1989", IncorrectAnswers: []string{"1987", "1991", "1985"}},
		{Category: "Mathematics", Question: "What is 7 &times; 8?", CorrectAnswer: "56", IncorrectAnswers: []string{"54", "64", "48"}},
		{Category: "Science & Nature", Question: "Which planet is known as the Red Planet?", CorrectAnswer: "Mars", IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"}},
		{Category: "Entertainment: Books", Question: "Who wrote &quot;Pride and Prejudice&quot;?", CorrectAnswer: "Jane Austen", IncorrectAnswers: []string{"Emily Bront&euml;", "Charles Dickens", "Mary Shelley"}},
		{Category: "Science: Computers", Question: "What does &quot;HTTP&quot; stand for?", CorrectAnswer: "Hypertext Transfer Protocol", IncorrectAnswers: []string{"High Transfer Text Protocol", "Hyperlink Text Transport Protocol", "Hosted Text Transfer Program"}},
		{Category: "Geography", Question: "Which is the longest river in the world?", CorrectAnswer: "Nile", IncorrectAnswers: []string{"Amazon", "Yangtze", "Mississippi"}},
		{Category: "Science & Nature", Question: "What gas do plants absorb from the atmosphere?", CorrectAnswer: "Carbon dioxide", IncorrectAnswers: []string{"Oxygen", "Nitrogen", "Helium"}},
		{Category: "Mathematics", Question: "What is the square root of 144?", CorrectAnswer: "12", IncorrectAnswers: []string{"14", "11", "13"}},
		{Category: "History", Question: "Who was the first person to walk on the Moon?", CorrectAnswer: "Neil Armstrong", IncorrectAnswers: []string{"Buzz Aldrin", "Yuri Gagarin", "Michael Collins"}},
		{Category: "Science: Computers", Question: "How many bits are in a byte?", CorrectAnswer: "8", IncorrectAnswers: []string{"4", "16", "32"}},
		{Category: "Art", Question: "Who painted the &quot;Mona Lisa&quot;?", CorrectAnswer: "Leonardo da Vinci", IncorrectAnswers: []string{"Michelangelo", "Raphael", "Donatello"}},
	}
}

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"quizsphere/internal/domain"
)

const (
	// Platform is stamped on every exported report.
	Platform = "QuizSphere"
	// NotAnswered replaces the user answer of skipped questions.
	NotAnswered = "Not answered"
)

// ReportFormat selects the serialization of exported reports.
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatYAML ReportFormat = "yaml"
)

// ParseReportFormat maps a config value to a ReportFormat, defaulting to JSON.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown report format %q", domain.ErrInvalidConfiguration, raw)
}

// Extension returns the file extension for the format.
func (f ReportFormat) Extension() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// ContentType returns the MIME type used when serving the format.
func (f ReportFormat) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// BuildReport combines a frozen session and its score into a durable report.
func BuildReport(rec domain.SessionRecord, score domain.ScoreReport, completedAt time.Time) (domain.Report, error) {
	if len(score.PerQuestion) != len(rec.Questions) {
		return domain.Report{}, fmt.Errorf("build report: %d scored questions for %d questions", len(score.PerQuestion), len(rec.Questions))
	}

	questions := make([]domain.ReportQuestion, len(rec.Questions))
	for i, q := range rec.Questions {
		pq := score.PerQuestion[i]
		userAnswer := NotAnswered
		if pq.UserAnswer != nil {
			userAnswer = *pq.UserAnswer
		}
		questions[i] = domain.ReportQuestion{
			Question:      q.Text,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     pq.IsCorrect,
			WasAnswered:   pq.WasAnswered,
		}
	}

	return domain.Report{
		Platform:       Platform,
		SessionID:      rec.SessionID,
		Participant:    rec.Participant,
		Score:          fmt.Sprintf("%d/%d (%d%%)", score.CorrectCount, score.TotalCount, score.Percentage),
		CorrectCount:   score.CorrectCount,
		TotalCount:     score.TotalCount,
		Percentage:     score.Percentage,
		Performance:    score.PerformanceTier,
		ElapsedSeconds: score.ElapsedSeconds,
		TimeSpent:      FormatElapsed(score.ElapsedSeconds),
		Trigger:        rec.Trigger,
		CompletedAt:    completedAt.UTC(),
		Questions:      questions,
	}, nil
}

// EncodeReport writes report to w in the given format.
func EncodeReport(w io.Writer, report domain.Report, format ReportFormat) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	}
}

// ReportFileName derives the download name from the participant label and time.
func ReportFileName(participant string, at time.Time, format ReportFormat) string {
	label := strings.ReplaceAll(participant, "@", "-")
	label = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, label)
	return fmt.Sprintf("quizsphere-results-%s-%d.%s", label, at.UnixMilli(), format.Extension())
}

// FormatElapsed renders seconds as "Xm Ys".
func FormatElapsed(seconds int) string {
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// FormatClock renders seconds as "MM:SS" for countdown displays.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

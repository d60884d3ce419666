package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"quizsphere/internal/app"
	"quizsphere/internal/domain"
)

// View renders the current question, navigator, progress and countdown.
func (m Model) View() string {
	if m.report != nil {
		return renderSummary(*m.report, m.reportPath, m.opts.NoColor)
	}
	if m.err != nil {
		return stylize("Error: "+m.err.Error(), m.opts.NoColor, lipgloss.Color("196")) + "\n"
	}
	if m.snap.Current == nil {
		return "Loading questions...\n"
	}

	lines := []string{
		renderHeader(m.snap, m.opts.NoColor),
		"",
		renderQuestion(m.snap),
		"",
		renderNavigator(m.snap, m.opts.NoColor),
		m.progress.ViewAs(answeredRatio(m.snap)) + fmt.Sprintf(" %d/%d answered", m.snap.AnsweredCount, m.snap.TotalCount),
	}
	if m.snap.Phase == domain.PhaseSubmitted {
		lines = append(lines, "", "Submitted, preparing your results...")
	}
	if m.notice != "" {
		lines = append(lines, stylize(m.notice, m.opts.NoColor, lipgloss.Color("208")))
	}
	lines = append(lines, "", stylize(helpLine(), m.opts.NoColor, lipgloss.Color("242")))
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func renderHeader(snap domain.Snapshot, noColor bool) string {
	title := stylize(app.Platform, noColor, lipgloss.Color("33"))
	clock := "Time left " + app.FormatClock(snap.RemainingSeconds)
	color := lipgloss.Color("42")
	if snap.LowTime {
		color = lipgloss.Color("196")
	}
	return title + " | " + snap.Participant + " | " + stylize(clock, noColor, color)
}

func renderQuestion(snap domain.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d of %d\n%s\n\n", snap.CurrentIndex+1, snap.TotalCount, snap.Current.Text)
	for i, choice := range snap.Current.Choices {
		marker := " "
		if choice == snap.SelectedChoice {
			marker = "*"
		}
		fmt.Fprintf(&b, " %s %c) %s\n", marker, 'a'+rune(i), choice)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderNavigator shows one cell per question coloured by status.
func renderNavigator(snap domain.Snapshot, noColor bool) string {
	cells := make([]string, len(snap.Status))
	for i, status := range snap.Status {
		label := fmt.Sprintf("%2d", i+1)
		if i == snap.CurrentIndex {
			label = "[" + strings.TrimSpace(label) + "]"
		}
		switch status {
		case domain.StatusAnswered:
			cells[i] = stylize(label, noColor, lipgloss.Color("42"))
		case domain.StatusVisited:
			cells[i] = stylize(label, noColor, lipgloss.Color("214"))
		default:
			cells[i] = stylize(label, noColor, lipgloss.Color("240"))
		}
	}
	return strings.Join(cells, " ")
}

func renderSummary(report domain.Report, path string, noColor bool) string {
	lines := []string{
		stylize(app.Platform+" results", noColor, lipgloss.Color("33")),
		"Score: " + report.Score,
		"Performance: " + report.Performance,
		"Time spent: " + report.TimeSpent,
	}
	for i, q := range report.Questions {
		mark := "x"
		if q.IsCorrect {
			mark = "✓"
		}
		lines = append(lines, fmt.Sprintf("%s %2d. %s (yours: %s, correct: %s)", mark, i+1, q.Question, q.UserAnswer, q.CorrectAnswer))
	}
	if path != "" {
		lines = append(lines, "", "Report saved to "+path)
	}
	return strings.Join(lines, "\n") + "\n"
}

func answeredRatio(snap domain.Snapshot) float64 {
	if snap.TotalCount == 0 {
		return 0
	}
	return float64(snap.AnsweredCount) / float64(snap.TotalCount)
}

func helpLine() string {
	return "a-z/1-9 answer | " + keys.Previous.Help().Key + " previous | " + keys.Next.Help().Key + " next | s submit | q quit"
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

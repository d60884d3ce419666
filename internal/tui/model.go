package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"quizsphere/internal/app"
	"quizsphere/internal/domain"
)

// Options configures the terminal runner.
type Options struct {
	NoColor      bool
	ReportFormat app.ReportFormat
	ReportDir    string
}

// Model renders one assessment session using Bubble Tea.
type Model struct {
	ctx       context.Context
	service   *app.AssessmentService
	sessionID string
	updates   <-chan domain.Snapshot
	opts      Options

	snap     domain.Snapshot
	progress progress.Model
	notice   string

	report     *domain.Report
	reportPath string
	abandoned  bool
	err        error
}

type keyMap struct {
	Previous key.Binding
	Next     key.Binding
	Submit   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Previous: key.NewBinding(key.WithKeys("left", "p"), key.WithHelp("←/p", "previous")),
	Next:     key.NewBinding(key.WithKeys("right", "n"), key.WithHelp("→/n", "next")),
	Submit:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "submit")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// NewModel builds a model for a started session. updates comes from
// AssessmentService.Subscribe and must carry the initial snapshot.
func NewModel(ctx context.Context, service *app.AssessmentService, sessionID string, updates <-chan domain.Snapshot, opts Options) Model {
	if opts.ReportFormat == "" {
		opts.ReportFormat = app.FormatJSON
	}
	if opts.ReportDir == "" {
		opts.ReportDir = "."
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	if opts.NoColor {
		bar = progress.New(progress.WithSolidFill("7"), progress.WithWidth(40))
	}
	return Model{
		ctx:       ctx,
		service:   service,
		sessionID: sessionID,
		updates:   updates,
		opts:      opts,
		progress:  bar,
	}
}

// Report returns the produced report once the session finished.
func (m Model) Report() (*domain.Report, string) {
	return m.report, m.reportPath
}

// Abandoned reports whether the participant quit before submitting.
func (m Model) Abandoned() bool { return m.abandoned }

// Err returns the error that ended the session, if any.
func (m Model) Err() error { return m.err }

// Init waits for the first snapshot.
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

// Update consumes snapshots, key presses and the final report.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = max(min(typed.Width-20, 60), 10)
		return m, nil
	case snapshotMsg:
		m.snap = typed.Snapshot
		if m.snap.Phase == domain.PhaseSubmitted {
			return m, m.fetchReport()
		}
		return m, waitForSnapshot(m.updates)
	case reportMsg:
		if typed.err != nil {
			m.err = typed.err
		} else {
			m.report = &typed.report
			m.reportPath = typed.path
		}
		return m, tea.Quit
	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		if m.snap.Phase != domain.PhaseSubmitted {
			_ = m.service.Abandon(m.ctx, m.sessionID)
			m.abandoned = true
		}
		return m, tea.Quit
	}
	if m.snap.Phase == domain.PhaseSubmitted && key.Matches(msg, keys.Submit) {
		// retries a record write that failed on submission
		m.notice = ""
		if _, err := m.service.Submit(m.ctx, m.sessionID); err != nil {
			m.notice = err.Error()
		}
		return m, nil
	}
	if m.snap.Phase != domain.PhaseActive {
		return m, nil
	}

	var err error
	switch {
	case key.Matches(msg, keys.Previous):
		_, err = m.service.Previous(m.ctx, m.sessionID)
	case key.Matches(msg, keys.Next):
		_, err = m.service.Next(m.ctx, m.sessionID)
	case key.Matches(msg, keys.Submit):
		_, err = m.service.Submit(m.ctx, m.sessionID)
	default:
		choice, ok := choiceForKey(msg.String(), m.snap.Current)
		if !ok {
			return m, nil
		}
		_, err = m.service.Answer(m.ctx, m.sessionID, choice)
	}
	m.notice = ""
	if err != nil {
		m.notice = err.Error()
	}
	return m, nil
}

// choiceForKey maps a-z or 1-9 onto the current question's choices.
func choiceForKey(pressed string, q *domain.PublicQuestion) (string, bool) {
	if q == nil || len(pressed) != 1 {
		return "", false
	}
	c := pressed[0]
	idx := -1
	switch {
	case c >= 'a' && c <= 'z':
		idx = int(c - 'a')
	case c >= '1' && c <= '9':
		idx = int(c - '1')
	}
	if idx < 0 || idx >= len(q.Choices) {
		return "", false
	}
	return q.Choices[idx], true
}

type snapshotMsg struct {
	Snapshot domain.Snapshot
}

type reportMsg struct {
	report domain.Report
	path   string
	err    error
}

// waitForSnapshot blocks until the session publishes a snapshot.
func waitForSnapshot(updates <-chan domain.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return tea.Quit()
		}
		return snapshotMsg{Snapshot: snap}
	}
}

// fetchReport waits for the handoff, produces the report and writes the
// download file into the report directory.
func (m Model) fetchReport() tea.Cmd {
	return func() tea.Msg {
		handedOff, err := m.service.HandedOff(m.ctx, m.sessionID)
		if err != nil {
			return reportMsg{err: err}
		}
		select {
		case <-handedOff:
		case <-m.ctx.Done():
			return reportMsg{err: m.ctx.Err()}
		}

		report, err := m.service.Report(m.ctx, m.sessionID)
		if err != nil {
			return reportMsg{err: err}
		}
		path, err := writeReport(report, m.opts)
		if err != nil {
			return reportMsg{report: report, err: err}
		}
		return reportMsg{report: report, path: path}
	}
}

func writeReport(report domain.Report, opts Options) (string, error) {
	if err := os.MkdirAll(opts.ReportDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(opts.ReportDir, app.ReportFileName(report.Participant, report.CompletedAt, opts.ReportFormat))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := app.EncodeReport(f, report, opts.ReportFormat); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"quizsphere/internal/app"
	"quizsphere/internal/domain"
)

// Run starts a session for participant and drives it in the terminal until
// it is submitted or abandoned. It returns the report when one was produced.
func Run(ctx context.Context, service *app.AssessmentService, participant string, opts Options) (*domain.Report, string, error) {
	snap, err := service.Begin(ctx, participant)
	if err != nil {
		return nil, "", err
	}
	updates, cancel, err := service.Subscribe(ctx, snap.SessionID)
	if err != nil {
		return nil, "", err
	}
	defer cancel()

	final, err := tea.NewProgram(NewModel(ctx, service, snap.SessionID, updates, opts), tea.WithContext(ctx)).Run()
	if err != nil {
		_ = service.Abandon(ctx, snap.SessionID)
		return nil, "", fmt.Errorf("run terminal ui: %w", err)
	}
	model, ok := final.(Model)
	if !ok {
		return nil, "", fmt.Errorf("unexpected model %T", final)
	}
	if model.Err() != nil {
		return nil, "", model.Err()
	}
	report, path := model.Report()
	return report, path, nil
}

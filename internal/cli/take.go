package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"quizsphere/internal/app"
	"quizsphere/internal/config"
	"quizsphere/internal/tui"
)

// NewTakeCmd runs one assessment in the terminal.
func NewTakeCmd(configPath *string) *cobra.Command {
	var participant string
	var noColor bool
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take a timed assessment in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTake(cmd.Context(), *configPath, participant, noColor)
		},
	}
	cmd.Flags().StringVar(&participant, "participant", os.Getenv("QUIZSPHERE_PARTICIPANT"), "participant email or label")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colours")
	return cmd
}

func runTake(ctx context.Context, configPath, participant string, noColor bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	format, err := app.ParseReportFormat(cfg.Report.Format)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("take needs an interactive terminal")
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		noColor = true
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, path, err := tui.Run(ctx, rt.service, participant, tui.Options{
		NoColor:      noColor,
		ReportFormat: format,
		ReportDir:    cfg.Report.Dir,
	})
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Println("assessment abandoned, nothing recorded")
		return nil
	}
	fmt.Printf("%s %s\n", report.Score, report.Performance)
	if path != "" {
		fmt.Printf("report written to %s\n", path)
	}
	return nil
}

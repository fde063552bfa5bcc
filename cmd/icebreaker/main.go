// Command icebreaker runs the two-stage prospecting workflow in the terminal:
// research your company, then generate an icebreaker email for a prospect.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"icebreaker/internal/app"
	"icebreaker/internal/config"
	"icebreaker/internal/core/domain"
	"icebreaker/internal/platform/logger"
	"icebreaker/internal/platform/otel"
	"icebreaker/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file when LOG_FILE is set
	// and are discarded otherwise.
	logOut := io.Discard
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger.Setup(cfg, logOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := otel.Setup(ctx, cfg.OTel, logOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up telemetry: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	wf, err := app.BuildWorkflow(cfg, app.Overrides{}, slog.Default(), domain.StageResearch, domain.StageGenerate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(tui.NewApp(ctx, wf), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

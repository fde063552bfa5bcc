package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"icebreaker/internal/adapters/inputfile"
	"icebreaker/internal/app"
	"icebreaker/internal/config"
	"icebreaker/internal/core/domain"
	"icebreaker/internal/platform/logger"
	"icebreaker/internal/platform/otel"
	"icebreaker/internal/service"
)

func main() {
	stage := flag.String("stage", string(domain.StageResearch), "Crew stage to run: research or generate")
	inputsPath := flag.String("inputs", "", "YAML or JSON file with the crew inputs")
	var sets inputfile.Assignments
	flag.Var(&sets, "set", "Input assignment key=value (repeatable, overrides -inputs)")
	baseURL := flag.String("base-url", "", "Override the crew base URL for this stage")
	token := flag.String("token", "", "Override the crew bearer token for this stage")
	interval := flag.Duration("interval", 0, "Initial poll interval (default from POLL_INTERVAL or 5s)")
	timeout := flag.Duration("timeout", 0, "Overall wait budget (default from POLL_TIMEOUT or 300s)")
	outDir := flag.String("out", "", "Directory to export stage inputs and result")
	flag.Parse()

	if !domain.Stage(*stage).Valid() {
		fmt.Println("Usage: crew-cli -stage research|generate [-inputs file.yaml] [-set key=value ...]")
		fmt.Println("\nExample:")
		fmt.Println("  crew-cli -stage research -set company_name=Acme -set company_domain=acme.com")
		fmt.Println("  crew-cli -stage generate -inputs prospect.yaml -out ./data")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg, os.Stderr)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := otel.Setup(ctx, cfg.OTel, os.Stderr)
	if err != nil {
		slog.ErrorContext(ctx, "failed to setup telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	inputs := domain.Inputs{}
	if *inputsPath != "" {
		if inputs, err = inputfile.Load(*inputsPath); err != nil {
			slog.ErrorContext(ctx, "failed to read inputs", "error", err)
			os.Exit(1)
		}
	}
	if inputs, err = inputfile.Apply(inputs, sets); err != nil {
		slog.ErrorContext(ctx, "invalid -set", "error", err)
		os.Exit(1)
	}

	wf, err := app.BuildWorkflow(cfg, app.Overrides{
		BaseURL:     *baseURL,
		Token:       *token,
		ArtifactDir: *outDir,
		Poll:        service.WaitOptions{PollInterval: *interval, Timeout: *timeout},
	}, slog.Default(), domain.Stage(*stage))
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize crew client", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("received interrupt signal, cancelling")
		cancel()
	}()

	slog.InfoContext(ctx, "crew-cli starting", "stage", *stage, "inputs", len(inputs))
	result, err := wf.RunStage(ctx, domain.Stage(*stage), inputs)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "cancelled")
		} else {
			fmt.Fprintln(os.Stderr, service.UserMessage(domain.Stage(*stage), err))
		}
		os.Exit(1)
	}

	fmt.Println(result)
}

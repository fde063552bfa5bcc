package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"icebreaker/internal/core/domain"
	"icebreaker/internal/core/ports"
	"icebreaker/internal/platform/logger"
)

// ErrMissingCompany is returned when the company form lacks a required field.
var ErrMissingCompany = errors.New("company name and company domain are required")

// Workflow runs the two crew stages against a Session.
type Workflow struct {
	research ports.CrewClient
	generate ports.CrewClient
	waiter   *Waiter
	store    ports.ArtifactStore
	opts     WaitOptions
	logger   *slog.Logger
	now      func() time.Time
}

// NewWorkflow creates a Workflow. store may be nil to skip artifact export.
func NewWorkflow(
	research ports.CrewClient,
	generate ports.CrewClient,
	waiter *Waiter,
	store ports.ArtifactStore,
	opts WaitOptions,
	l *slog.Logger,
) *Workflow {
	if waiter == nil {
		waiter = NewWaiter(nil, l)
	}
	if l == nil {
		l = slog.Default()
	}
	return &Workflow{
		research: research,
		generate: generate,
		waiter:   waiter,
		store:    store,
		opts:     opts,
		logger:   l,
		now:      time.Now,
	}
}

// Research runs the company research crew and advances the session to the
// prospect form. On failure the session keeps its phase.
func (w *Workflow) Research(ctx context.Context, s *domain.Session, form domain.CompanyForm) error {
	name := strings.TrimSpace(form.Name)
	domainName := strings.TrimSpace(form.Domain)
	if name == "" || domainName == "" {
		return ErrMissingCompany
	}
	s.CompanyName = name
	s.CompanyDomain = domainName
	s.SupplementalInfo = strings.TrimSpace(form.Supplemental)

	report, err := w.runStage(ctx, domain.StageResearch, w.research, s.ResearchInputs())
	if err != nil {
		return err
	}
	s.ReconReport = report
	s.Phase = domain.PhaseProspect
	s.UpdatedAt = w.now().UTC()
	return nil
}

// Generate runs the icebreaker crew with the research report and the
// prospect details, and advances the session to the result screen.
func (w *Workflow) Generate(ctx context.Context, s *domain.Session, form domain.ProspectForm) error {
	s.ProspectCompany = strings.TrimSpace(form.Company)
	s.ProspectName = strings.TrimSpace(form.Name)
	s.SupplementalProspectInfo = strings.TrimSpace(form.Supplemental)

	email, err := w.runStage(ctx, domain.StageGenerate, w.generate, s.GenerateInputs())
	if err != nil {
		return err
	}
	s.IcebreakerEmail = email
	s.Phase = domain.PhaseResult
	s.UpdatedAt = w.now().UTC()
	return nil
}

// RunStage runs a single stage with caller-supplied inputs.
func (w *Workflow) RunStage(ctx context.Context, stage domain.Stage, inputs domain.Inputs) (string, error) {
	switch stage {
	case domain.StageResearch:
		return w.runStage(ctx, stage, w.research, inputs)
	case domain.StageGenerate:
		return w.runStage(ctx, stage, w.generate, inputs)
	default:
		return "", fmt.Errorf("unknown stage %q", stage)
	}
}

func (w *Workflow) runStage(ctx context.Context, stage domain.Stage, client ports.CrewClient, inputs domain.Inputs) (string, error) {
	if client == nil {
		return "", fmt.Errorf("%s stage: %w", stage, domain.ErrMissingEndpoint)
	}

	runID := uuid.New().String()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     runID,
		Stage:     string(stage),
		Component: "icebreaker.service.workflow",
	})
	sc := logger.StartSpan(ctx, "workflow."+string(stage))
	defer sc.End()
	ctx = sc.Context()
	sc.Span().SetAttributes(attribute.String("workflow.run_id", runID))

	w.logger.InfoContext(ctx, "stage starting")
	w.saveInputs(ctx, runID, stage, inputs)

	result, err := w.waiter.RunAndWait(ctx, client, inputs, w.opts)
	if err != nil {
		sc.RecordError(err)
		w.logger.ErrorContext(ctx, "stage failed", "error", err)
		return "", err
	}

	w.saveResult(ctx, runID, stage, result)
	w.logger.InfoContext(ctx, "stage completed", "result_bytes", len(result))
	return result, nil
}

// Artifact export is best effort; failures are logged and never fail a stage.
func (w *Workflow) saveInputs(ctx context.Context, runID string, stage domain.Stage, inputs domain.Inputs) {
	if w.store == nil {
		return
	}
	if err := w.store.InitRun(ctx, runID); err != nil {
		w.logger.WarnContext(ctx, "artifact init failed", "error", err)
		return
	}
	data, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		w.logger.WarnContext(ctx, "artifact encode failed", "error", err)
		return
	}
	if err := w.store.SaveInputs(ctx, runID, stage, data); err != nil {
		w.logger.WarnContext(ctx, "artifact save failed", "error", err)
	}
}

func (w *Workflow) saveResult(ctx context.Context, runID string, stage domain.Stage, result string) {
	if w.store == nil {
		return
	}
	if err := w.store.SaveResult(ctx, runID, stage, result); err != nil {
		w.logger.WarnContext(ctx, "artifact save failed", "error", err)
		return
	}
	w.logger.InfoContext(ctx, "artifacts saved", "path", w.store.RunPath(runID))
}

// UserMessage renders a stage failure for display.
func UserMessage(stage domain.Stage, err error) string {
	if errors.Is(err, ErrMissingCompany) {
		return "Company Name and Company Domain are required."
	}
	var timeout *domain.TimeoutError
	switch stage {
	case domain.StageResearch:
		if errors.As(err, &timeout) {
			return "Company research timed out. Please try again."
		}
		return fmt.Sprintf("Error during company research: %v", err)
	case domain.StageGenerate:
		if errors.As(err, &timeout) {
			return "Icebreaker generation timed out. Please try again."
		}
		return fmt.Sprintf("Error generating icebreaker: %v", err)
	default:
		return err.Error()
	}
}

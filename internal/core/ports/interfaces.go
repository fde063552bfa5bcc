package ports

import (
	"context"
	"time"

	"icebreaker/internal/core/domain"
)

// CrewClient talks to one deployed crew.
type CrewClient interface {
	// Launch kicks off a job and returns its id. It is never retried.
	Launch(ctx context.Context, inputs domain.Inputs) (string, error)

	// Poll fetches and normalizes the status of a job.
	Poll(ctx context.Context, jobID string) (domain.Status, error)
}

// Sleeper waits between polls. Implementations return ctx.Err() when the
// context ends first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ArtifactStore exports stage inputs and results of a workflow run.
type ArtifactStore interface {
	// InitRun creates the run directory structure.
	InitRun(ctx context.Context, runID string) error

	// SaveInputs saves the inputs sent to a stage.
	SaveInputs(ctx context.Context, runID string, stage domain.Stage, data []byte) error

	// SaveResult saves the text a stage returned.
	SaveResult(ctx context.Context, runID string, stage domain.Stage, text string) error

	// RunPath returns the location of a run's artifacts.
	RunPath(runID string) string
}

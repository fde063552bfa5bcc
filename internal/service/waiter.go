package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"icebreaker/internal/adapters/crewai"
	"icebreaker/internal/core/domain"
	"icebreaker/internal/core/ports"
	"icebreaker/internal/platform/logger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 300 * time.Second

	// Gentle backoff: each running poll grows the interval by 20%, up to 15s.
	BackoffFactor = 1.2
	MaxInterval   = 15 * time.Second
)

// WaitOptions tune a single RunAndWait call. Zero values select the defaults.
type WaitOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// NextInterval applies one backoff step.
func NextInterval(d time.Duration) time.Duration {
	next := time.Duration(math.Round(float64(d) * BackoffFactor))
	if next > MaxInterval {
		return MaxInterval
	}
	return next
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Waiter launches a crew job and polls it to a terminal state.
type Waiter struct {
	sleeper ports.Sleeper
	logger  *slog.Logger
}

// NewWaiter creates a Waiter. A nil sleeper uses real timers.
func NewWaiter(sleeper ports.Sleeper, l *slog.Logger) *Waiter {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &Waiter{sleeper: sleeper, logger: l}
}

// RunAndWait launches one job and blocks until it finishes, fails or runs
// out of budget.
//
// Elapsed time is the sum of requested sleep intervals, not wall-clock time,
// and is checked before each sleep. The final sleep and poll may therefore
// end past the nominal timeout.
func (w *Waiter) RunAndWait(ctx context.Context, client ports.CrewClient, inputs domain.Inputs, opts WaitOptions) (string, error) {
	opts = opts.withDefaults()

	sc := logger.StartSpan(ctx, "crew.run_and_wait")
	defer sc.End()
	ctx = sc.Context()

	jobID, err := client.Launch(ctx, inputs)
	if err != nil {
		sc.RecordError(err)
		return "", err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{JobID: jobID})
	sc.Span().SetAttributes(attribute.String("crew.kickoff_id", jobID))

	interval := opts.PollInterval
	var (
		elapsed  time.Duration
		attempts int
	)

	for elapsed < opts.Timeout {
		if err := w.sleeper.Sleep(ctx, interval); err != nil {
			sc.RecordError(err)
			return "", err
		}
		elapsed += interval
		attempts++

		status, err := client.Poll(ctx, jobID)
		if err != nil {
			sc.RecordError(err)
			return "", err
		}

		switch status.State {
		case domain.StateDone:
			sc.Span().SetAttributes(attribute.Int("crew.poll_attempts", attempts))
			w.logger.InfoContext(ctx, "crew job completed", "attempts", attempts, "elapsed", elapsed)
			return status.ResultText(), nil
		case domain.StateError:
			err := &domain.ExecutionError{JobID: jobID}
			sc.RecordError(err)
			w.logger.ErrorContext(ctx, "crew job failed", "attempts", attempts, "raw_state", status.Raw)
			return "", err
		case domain.StateRunning:
		default:
			err := &domain.UnexpectedStateError{JobID: jobID, State: status.Raw}
			sc.RecordError(err)
			w.logger.ErrorContext(ctx, "crew job in unexpected state", "attempts", attempts, "raw_state", status.Raw)
			return "", err
		}

		interval = NextInterval(interval)
		w.logger.DebugContext(ctx, "crew job still running",
			"attempt", attempts,
			"raw_state", status.Raw,
			"elapsed", elapsed,
			"next_interval", interval)
	}

	err = &domain.TimeoutError{JobID: jobID, Timeout: opts.Timeout}
	sc.RecordError(err)
	w.logger.WarnContext(ctx, "crew job timed out", "attempts", attempts, "elapsed", elapsed)
	return "", err
}

// RunAndWait builds a client for endpoint and waits for one job on real
// timers.
func RunAndWait(ctx context.Context, endpoint domain.Endpoint, inputs domain.Inputs, opts WaitOptions) (string, error) {
	client, err := crewai.NewClient(endpoint)
	if err != nil {
		return "", err
	}
	return NewWaiter(nil, nil).RunAndWait(ctx, client, inputs, opts)
}

// Package app wires configuration into a ready-to-run Workflow.
package app

import (
	"log/slog"

	"icebreaker/internal/adapters/crewai"
	"icebreaker/internal/adapters/localstorage"
	"icebreaker/internal/config"
	"icebreaker/internal/core/domain"
	"icebreaker/internal/core/ports"
	"icebreaker/internal/service"
)

// Overrides replace configured values for one run. Empty fields are ignored.
type Overrides struct {
	BaseURL     string
	Token       string
	ArtifactDir string
	Poll        service.WaitOptions
}

// BuildWorkflow creates clients for the requested stages. Stages not listed
// are left unconfigured and fail when run.
func BuildWorkflow(cfg config.Config, o Overrides, l *slog.Logger, stages ...domain.Stage) (*service.Workflow, error) {
	clients := make(map[domain.Stage]ports.CrewClient, len(stages))
	for _, stage := range stages {
		ep := endpointFor(cfg, stage)
		if o.BaseURL != "" {
			ep.BaseURL = o.BaseURL
		}
		if o.Token != "" {
			ep.Token = o.Token
		}
		if err := config.ValidateEndpoint(stage, ep); err != nil {
			return nil, err
		}
		client, err := crewai.NewClient(ep,
			crewai.WithRequestTimeout(cfg.Poll.RequestTimeout),
			crewai.WithLogger(l),
		)
		if err != nil {
			return nil, err
		}
		clients[stage] = client
	}

	var store ports.ArtifactStore
	dir := cfg.ArtifactDir
	if o.ArtifactDir != "" {
		dir = o.ArtifactDir
	}
	if dir != "" {
		store = localstorage.NewLocalStorage(dir)
	}

	opts := service.WaitOptions{
		PollInterval: cfg.Poll.Interval,
		Timeout:      cfg.Poll.Timeout,
	}
	if o.Poll.PollInterval > 0 {
		opts.PollInterval = o.Poll.PollInterval
	}
	if o.Poll.Timeout > 0 {
		opts.Timeout = o.Poll.Timeout
	}

	return service.NewWorkflow(
		clients[domain.StageResearch],
		clients[domain.StageGenerate],
		service.NewWaiter(nil, l),
		store,
		opts,
		l,
	), nil
}

func endpointFor(cfg config.Config, stage domain.Stage) domain.Endpoint {
	if stage == domain.StageGenerate {
		return cfg.Generate
	}
	return cfg.Research
}

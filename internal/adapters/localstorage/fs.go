package localstorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"icebreaker/internal/core/domain"
)

// LocalStorage implements ports.ArtifactStore for the local filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// InitRun creates the run directory.
func (s *LocalStorage) InitRun(ctx context.Context, runID string) error {
	path := s.RunPath(runID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", path, err)
	}
	return nil
}

// SaveInputs writes <stage>_inputs.json.
func (s *LocalStorage) SaveInputs(ctx context.Context, runID string, stage domain.Stage, data []byte) error {
	name := string(stage) + "_inputs.json"
	if err := os.WriteFile(filepath.Join(s.RunPath(runID), name), data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// SaveResult writes <stage>_result.md.
func (s *LocalStorage) SaveResult(ctx context.Context, runID string, stage domain.Stage, text string) error {
	name := string(stage) + "_result.md"
	if err := os.WriteFile(filepath.Join(s.RunPath(runID), name), []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// RunPath returns the path for a run directory.
func (s *LocalStorage) RunPath(runID string) string {
	return filepath.Join(s.BaseDir, "runs", runID)
}

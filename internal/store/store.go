// Package store persists observations, incidents, election results, and
// model runs in SQLite or Postgres.
package store

import (
	"context"

	"github.com/harborview-research/epi-cli/internal/model"
)

// RunFilter specifies criteria for listing model runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Weekly COVID observations
	UpsertObservations(ctx context.Context, obs []model.WeeklyObservation) (int64, error)
	ListObservations(ctx context.Context) ([]model.WeeklyObservation, error)

	// Shooting incidents
	UpsertIncidents(ctx context.Context, incidents []model.ShootingIncident) (int64, error)
	ListIncidents(ctx context.Context, year int) ([]model.ShootingIncident, error)

	// Precinct election results
	UpsertPrecinctResults(ctx context.Context, results []model.PrecinctResult) (int64, error)
	ListPrecinctResults(ctx context.Context) ([]model.PrecinctResult, error)

	// Model runs
	CreateRun(ctx context.Context, name string, cfg model.RunConfig) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

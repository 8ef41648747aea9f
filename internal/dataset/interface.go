// Package dataset defines the importable data sources and their sync logic.
package dataset

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/harborview-research/epi-cli/internal/config"
	"github.com/harborview-research/epi-cli/internal/fetcher"
	"github.com/harborview-research/epi-cli/internal/store"
)

// Cadence describes how often a dataset is updated upstream.
type Cadence string

const (
	Daily  Cadence = "daily"
	Weekly Cadence = "weekly"
	Static Cadence = "static"
)

// SyncResult holds the outcome of a dataset sync.
type SyncResult struct {
	RowsSynced       int64          `json:"rows_synced"`
	FieldsZeroFilled int64          `json:"fields_zero_filled,omitempty"`
	RowsSkipped      int64          `json:"rows_skipped,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Dataset defines the interface each data source must implement.
type Dataset interface {
	// Name returns the unique identifier for this dataset (e.g., "covid_weekly").
	Name() string

	// Source returns the configured upstream location.
	Source() string

	// Cadence returns how often this dataset is updated upstream.
	Cadence() Cadence

	// Sync downloads, parses, and loads the dataset into the store.
	// tempDir is a working directory for temporary files.
	Sync(ctx context.Context, st store.Store, f fetcher.Fetcher, tempDir string) (*SyncResult, error)
}

// Registry maps dataset names to their implementations.
type Registry struct {
	datasets map[string]Dataset
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with all datasets.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		datasets: make(map[string]Dataset),
	}

	r.Register(&CovidWeekly{cfg: cfg})
	r.Register(&NYPDShootings{cfg: cfg})
	r.Register(&ElectionResults{cfg: cfg})

	return r
}

// Register adds a dataset to the registry.
func (r *Registry) Register(d Dataset) {
	name := d.Name()
	r.datasets[name] = d
	r.order = append(r.order, name)
}

// Get returns a dataset by name.
func (r *Registry) Get(name string) (Dataset, error) {
	d, ok := r.datasets[name]
	if !ok {
		return nil, eris.Errorf("dataset: unknown dataset %q", name)
	}
	return d, nil
}

// Select returns the named datasets, or all of them when names is empty.
func (r *Registry) Select(names []string) ([]Dataset, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	var result []Dataset
	for _, name := range names {
		d, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// All returns all datasets in registration order.
func (r *Registry) All() []Dataset {
	result := make([]Dataset, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.datasets[name])
	}
	return result
}

package model

import "time"

// RunStatus represents the current state of a model run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusFitting  RunStatus = "fitting"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunConfig is the configuration a model run was fitted with.
type RunConfig struct {
	Population        float64   `json:"population"`
	TrainingWindowEnd time.Time `json:"training_window_end"`
	ForecastHorizon   int       `json:"forecast_horizon"`
}

// RunResult holds the outcome of a completed model run.
type RunResult struct {
	Beta           float64        `json:"beta"`
	Gamma          float64        `json:"gamma"`
	PairsUsed      int            `json:"pairs_used"`
	PairsDropped   int            `json:"pairs_dropped"`
	TrainingWeeks  int            `json:"training_weeks"`
	ProjectedWeeks int            `json:"projected_weeks"`
	Warnings       []string       `json:"warnings,omitempty"`
	Incidence      []IncidenceRow `json:"incidence"`
	Error          string         `json:"error,omitempty"`
}

// Run represents a single SIR fit-and-project run.
type Run struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Config    RunConfig  `json:"config"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

package geo

import (
	"go.uber.org/zap"

	"github.com/harborview-research/epi-cli/internal/model"
)

// Assigner resolves point coordinates to loaded districts.
type Assigner struct {
	districts []District
}

// NewAssigner creates an Assigner over the given districts.
func NewAssigner(districts []District) *Assigner {
	return &Assigner{districts: districts}
}

// Assign returns the first district containing the point.
func (a *Assigner) Assign(lon, lat float64) (*District, bool) {
	for i := range a.districts {
		if a.districts[i].Contains(lon, lat) {
			return &a.districts[i], true
		}
	}
	return nil, false
}

// AssignmentSummary reports how incident coordinates mapped onto districts.
type AssignmentSummary struct {
	Counts     map[string]int // district code → incident count
	Murders    map[string]int // district code → murder count
	Unassigned int64          // valid coordinates outside every district
	NoCoords   int64          // incidents without coordinates
}

// AssignIncidents buckets incidents by the district containing their
// coordinates. Incidents with missing (zero) coordinates are counted but
// not assigned.
func (a *Assigner) AssignIncidents(incidents []model.ShootingIncident) AssignmentSummary {
	summary := AssignmentSummary{
		Counts:  make(map[string]int),
		Murders: make(map[string]int),
	}

	for _, in := range incidents {
		if in.Latitude == 0 && in.Longitude == 0 {
			summary.NoCoords++
			continue
		}
		d, ok := a.Assign(in.Longitude, in.Latitude)
		if !ok {
			summary.Unassigned++
			continue
		}
		summary.Counts[d.Code]++
		if in.Murder {
			summary.Murders[d.Code]++
		}
	}

	if summary.Unassigned > 0 || summary.NoCoords > 0 {
		zap.L().Debug("geo: incomplete incident assignment",
			zap.Int64("unassigned", summary.Unassigned),
			zap.Int64("no_coords", summary.NoCoords),
		)
	}

	return summary
}

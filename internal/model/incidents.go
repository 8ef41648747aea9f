package model

import "time"

// ShootingIncident is one NYPD shooting incident record.
type ShootingIncident struct {
	IncidentKey string    `json:"incident_key"`
	OccurredAt  time.Time `json:"occurred_at"`
	Borough     string    `json:"borough"`
	Precinct    int       `json:"precinct"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Murder      bool      `json:"murder"`
}

// PrecinctResult holds election results aggregated to a police precinct.
type PrecinctResult struct {
	Precinct   int     `json:"precinct" csv:"precinct"`
	Borough    string  `json:"borough" csv:"borough"`
	VotesDem   float64 `json:"votes_dem" csv:"votes_dem"`
	VotesRep   float64 `json:"votes_rep" csv:"votes_rep"`
	VotesTotal float64 `json:"votes_total" csv:"votes_total"`
}

// DemShare returns the two-party Democratic vote share, or 0 when no
// two-party votes were recorded.
func (p PrecinctResult) DemShare() float64 {
	twoParty := p.VotesDem + p.VotesRep
	if twoParty == 0 {
		return 0
	}
	return p.VotesDem / twoParty
}

// PrecinctSummary joins incident counts with election results for one
// precinct. It is the unit of the correlation analysis.
type PrecinctSummary struct {
	Precinct  int     `json:"precinct"`
	Borough   string  `json:"borough"`
	Incidents int     `json:"incidents"`
	Murders   int     `json:"murders"`
	DemShare  float64 `json:"dem_share"`
}

package dataset

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	fetchermocks "github.com/harborview-research/epi-cli/internal/fetcher/mocks"
)

func TestNYPDShootings_Metadata(t *testing.T) {
	ds := &NYPDShootings{cfg: testConfig()}
	assert.Equal(t, "nypd_shootings", ds.Name())
	assert.Equal(t, "https://example.com/shootings.json", ds.Source())
	assert.Equal(t, Weekly, ds.Cadence())
}

func TestParseIncident(t *testing.T) {
	rec := socrataIncident{
		IncidentKey: "236168668",
		OccurDate:   "2020-06-01T00:00:00.000",
		OccurTime:   "22:15:00",
		Boro:        "BROOKLYN",
		Precinct:    "73",
		MurderFlag:  "true",
		Latitude:    "40.6712",
		Longitude:   "-73.9134",
	}

	in, err := parseIncident(rec)
	require.NoError(t, err)
	assert.Equal(t, "236168668", in.IncidentKey)
	assert.Equal(t, time.Date(2020, 6, 1, 22, 15, 0, 0, time.UTC), in.OccurredAt)
	assert.Equal(t, "BROOKLYN", in.Borough)
	assert.Equal(t, 73, in.Precinct)
	assert.True(t, in.Murder)
	assert.InDelta(t, 40.6712, in.Latitude, 1e-9)
}

func TestParseIncident_Errors(t *testing.T) {
	tests := []struct {
		name string
		rec  socrataIncident
	}{
		{"missing key", socrataIncident{OccurDate: "2020-06-01T00:00:00.000", Precinct: "73"}},
		{"bad date", socrataIncident{IncidentKey: "K", OccurDate: "06/01/2020", Precinct: "73"}},
		{"bad precinct", socrataIncident{IncidentKey: "K", OccurDate: "2020-06-01T00:00:00.000", Precinct: "n/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseIncident(tt.rec)
			assert.Error(t, err)
		})
	}
}

func TestParseIncident_MissingCoordinatesKept(t *testing.T) {
	rec := socrataIncident{
		IncidentKey: "K1",
		OccurDate:   "2020-06-01T00:00:00.000",
		Precinct:    "40",
	}

	in, err := parseIncident(rec)
	require.NoError(t, err)
	assert.Zero(t, in.Latitude)
	assert.Zero(t, in.Longitude)
}

func TestNYPDShootings_Sync_Success(t *testing.T) {
	body := `[
		{"incident_key":"K1","occur_date":"2020-06-01T00:00:00.000","occur_time":"22:15:00","boro":"BROOKLYN","precinct":"73","statistical_murder_flag":"true","latitude":"40.67","longitude":"-73.91"},
		{"incident_key":"K2","occur_date":"2020-06-02T00:00:00.000","occur_time":"01:30:00","boro":"BRONX","precinct":"40","statistical_murder_flag":"false","latitude":"40.81","longitude":"-73.92"},
		{"occur_date":"2020-06-03T00:00:00.000","precinct":"75"}
	]`

	st := newTestStore(t)
	f := fetchermocks.NewMockFetcher(t)
	f.On("Download", mock.Anything, "https://example.com/shootings.json").
		Return(io.NopCloser(strings.NewReader(body)), nil)

	ds := &NYPDShootings{cfg: testConfig()}
	result, err := ds.Sync(context.Background(), st, f, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.RowsSynced)
	assert.Equal(t, int64(1), result.RowsSkipped)

	incidents, err := st.ListIncidents(context.Background(), 2020)
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.Equal(t, "K1", incidents[0].IncidentKey)
	assert.True(t, incidents[0].Murder)
}

func TestNYPDShootings_Sync_DecodeError(t *testing.T) {
	st := newTestStore(t)
	f := fetchermocks.NewMockFetcher(t)
	f.On("Download", mock.Anything, mock.Anything).
		Return(io.NopCloser(strings.NewReader(`{"not":"an array"}`)), nil)

	ds := &NYPDShootings{cfg: testConfig()}
	_, err := ds.Sync(context.Background(), st, f, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview-research/epi-cli/internal/model"
	"github.com/harborview-research/epi-cli/internal/store"
)

func newServeStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "epi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedRun(t *testing.T, st store.Store) *model.Run {
	t.Helper()
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "spring-fit", model.RunConfig{
		Population:        330_000_000,
		TrainingWindowEnd: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		ForecastHorizon:   2,
	})
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunResult(ctx, run.ID, &model.RunResult{
		Beta:  0.01,
		Gamma: 0.5,
		Incidence: []model.IncidenceRow{
			{Week: time.Date(2020, 6, 8, 0, 0, 0, 0, time.UTC), Actual: 100, Predicted: 95, Projected: true},
		},
	}))
	return run
}

func TestRouter_Health(t *testing.T) {
	router := newRouter(newServeStore(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ListRuns(t *testing.T) {
	st := newServeStore(t)
	seedRun(t, st)
	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "spring-fit", runs[0].Name)
}

func TestRouter_ListRuns_EmptyIsArray(t *testing.T) {
	router := newRouter(newServeStore(t))

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestRouter_GetRun(t *testing.T) {
	st := newServeStore(t)
	run := seedRun(t, st)
	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunStatusComplete, got.Status)
}

func TestRouter_GetRun_NotFound(t *testing.T) {
	router := newRouter(newServeStore(t))

	req := httptest.NewRequest(http.MethodGet, "/runs/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Incidence(t *testing.T) {
	st := newServeStore(t)
	run := seedRun(t, st)
	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID+"/incidence", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var rows []model.IncidenceRow
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 100.0, rows[0].Actual)
	assert.True(t, rows[0].Projected)
}

func TestRouter_Incidence_NoResult(t *testing.T) {
	st := newServeStore(t)
	run, err := st.CreateRun(context.Background(), "queued-run", model.RunConfig{Population: 1000})
	require.NoError(t, err)
	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID+"/incidence", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/harborview-research/epi-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS weekly_observations (
	week      DATE PRIMARY KEY,
	cases     DOUBLE PRECISION NOT NULL DEFAULT 0,
	deaths    DOUBLE PRECISION NOT NULL DEFAULT 0,
	recovered DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS shooting_incidents (
	incident_key TEXT PRIMARY KEY,
	occurred_at  TIMESTAMPTZ NOT NULL,
	borough      TEXT NOT NULL,
	precinct     INTEGER NOT NULL,
	latitude     DOUBLE PRECISION NOT NULL,
	longitude    DOUBLE PRECISION NOT NULL,
	murder       BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS precinct_results (
	precinct    INTEGER PRIMARY KEY,
	borough     TEXT NOT NULL,
	votes_dem   DOUBLE PRECISION NOT NULL DEFAULT 0,
	votes_rep   DOUBLE PRECISION NOT NULL DEFAULT 0,
	votes_total DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS model_runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	config     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_incidents_occurred_at ON shooting_incidents(occurred_at);
CREATE INDEX IF NOT EXISTS idx_incidents_precinct ON shooting_incidents(precinct);
CREATE INDEX IF NOT EXISTS idx_model_runs_status ON model_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertObservations(ctx context.Context, obs []model.WeeklyObservation) (int64, error) {
	var n int64
	for _, o := range obs {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO weekly_observations (week, cases, deaths, recovered) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (week) DO UPDATE SET cases=excluded.cases, deaths=excluded.deaths, recovered=excluded.recovered`,
			o.Week.UTC(), o.CumulativeCases, o.CumulativeDeaths, o.CumulativeRecovered,
		)
		if err != nil {
			return n, eris.Wrapf(err, "postgres: upsert observation %s", o.Week.Format("2006-01-02"))
		}
		n++
	}
	return n, nil
}

func (s *PostgresStore) ListObservations(ctx context.Context) ([]model.WeeklyObservation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT week, cases, deaths, recovered FROM weekly_observations ORDER BY week`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list observations")
	}
	defer rows.Close()

	var obs []model.WeeklyObservation
	for rows.Next() {
		var o model.WeeklyObservation
		if err := rows.Scan(&o.Week, &o.CumulativeCases, &o.CumulativeDeaths, &o.CumulativeRecovered); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "postgres: iterate observations")
}

func (s *PostgresStore) UpsertIncidents(ctx context.Context, incidents []model.ShootingIncident) (int64, error) {
	var n int64
	for _, in := range incidents {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO shooting_incidents (incident_key, occurred_at, borough, precinct, latitude, longitude, murder)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (incident_key) DO UPDATE SET
				occurred_at=excluded.occurred_at, borough=excluded.borough, precinct=excluded.precinct,
				latitude=excluded.latitude, longitude=excluded.longitude, murder=excluded.murder`,
			in.IncidentKey, in.OccurredAt.UTC(), in.Borough, in.Precinct, in.Latitude, in.Longitude, in.Murder,
		)
		if err != nil {
			return n, eris.Wrapf(err, "postgres: upsert incident %s", in.IncidentKey)
		}
		n++
	}
	return n, nil
}

func (s *PostgresStore) ListIncidents(ctx context.Context, year int) ([]model.ShootingIncident, error) {
	query := `SELECT incident_key, occurred_at, borough, precinct, latitude, longitude, murder
		FROM shooting_incidents`
	var args []any
	if year > 0 {
		query += ` WHERE date_part('year', occurred_at) = $1`
		args = append(args, year)
	}
	query += ` ORDER BY occurred_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list incidents")
	}
	defer rows.Close()

	var incidents []model.ShootingIncident
	for rows.Next() {
		var in model.ShootingIncident
		if err := rows.Scan(&in.IncidentKey, &in.OccurredAt, &in.Borough, &in.Precinct,
			&in.Latitude, &in.Longitude, &in.Murder); err != nil {
			return nil, eris.Wrap(err, "postgres: scan incident")
		}
		incidents = append(incidents, in)
	}
	return incidents, eris.Wrap(rows.Err(), "postgres: iterate incidents")
}

func (s *PostgresStore) UpsertPrecinctResults(ctx context.Context, results []model.PrecinctResult) (int64, error) {
	var n int64
	for _, r := range results {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO precinct_results (precinct, borough, votes_dem, votes_rep, votes_total)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (precinct) DO UPDATE SET
				borough=excluded.borough, votes_dem=excluded.votes_dem,
				votes_rep=excluded.votes_rep, votes_total=excluded.votes_total`,
			r.Precinct, r.Borough, r.VotesDem, r.VotesRep, r.VotesTotal,
		)
		if err != nil {
			return n, eris.Wrapf(err, "postgres: upsert precinct %d", r.Precinct)
		}
		n++
	}
	return n, nil
}

func (s *PostgresStore) ListPrecinctResults(ctx context.Context) ([]model.PrecinctResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT precinct, borough, votes_dem, votes_rep, votes_total FROM precinct_results ORDER BY precinct`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list precinct results")
	}
	defer rows.Close()

	var results []model.PrecinctResult
	for rows.Next() {
		var r model.PrecinctResult
		if err := rows.Scan(&r.Precinct, &r.Borough, &r.VotesDem, &r.VotesRep, &r.VotesTotal); err != nil {
			return nil, eris.Wrap(err, "postgres: scan precinct result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: iterate precinct results")
}

func (s *PostgresStore) CreateRun(ctx context.Context, name string, cfg model.RunConfig) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run config")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO model_runs (id, name, config, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, name, string(cfgJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Name:      name,
		Config:    cfg,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE model_runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	status := model.RunStatusComplete
	if result.Error != "" {
		status = model.RunStatusFailed
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE model_runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, config, status, result, created_at, updated_at FROM model_runs WHERE id = $1`,
		runID,
	)

	var r model.Run
	var status, cfgJSON string
	var resultJSON *string

	err := row.Scan(&r.ID, &r.Name, &cfgJSON, &status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)

	if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal run config")
	}
	if resultJSON != nil {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(*resultJSON), r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, name, config, status, result, created_at, updated_at FROM model_runs`
	var args []any

	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status, cfgJSON string
		var resultJSON *string
		if err := rows.Scan(&r.ID, &r.Name, &cfgJSON, &status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run config")
		}
		if resultJSON != nil {
			r.Result = &model.RunResult{}
			if err := json.Unmarshal([]byte(*resultJSON), r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal run result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

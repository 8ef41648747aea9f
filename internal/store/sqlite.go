package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/harborview-research/epi-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS weekly_observations (
	week      TEXT PRIMARY KEY,
	cases     REAL NOT NULL DEFAULT 0,
	deaths    REAL NOT NULL DEFAULT 0,
	recovered REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS shooting_incidents (
	incident_key TEXT PRIMARY KEY,
	occurred_at  DATETIME NOT NULL,
	borough      TEXT NOT NULL,
	precinct     INTEGER NOT NULL,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	murder       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS precinct_results (
	precinct    INTEGER PRIMARY KEY,
	borough     TEXT NOT NULL,
	votes_dem   REAL NOT NULL DEFAULT 0,
	votes_rep   REAL NOT NULL DEFAULT 0,
	votes_total REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS model_runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	config     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_incidents_occurred_at ON shooting_incidents(occurred_at);
CREATE INDEX IF NOT EXISTS idx_incidents_precinct ON shooting_incidents(precinct);
CREATE INDEX IF NOT EXISTS idx_model_runs_status ON model_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const weekFormat = "2006-01-02"

func (s *SQLiteStore) UpsertObservations(ctx context.Context, obs []model.WeeklyObservation) (int64, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO weekly_observations (week, cases, deaths, recovered) VALUES (?, ?, ?, ?)
		 ON CONFLICT(week) DO UPDATE SET cases=excluded.cases, deaths=excluded.deaths, recovered=excluded.recovered`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert observations")
	}
	defer stmt.Close() //nolint:errcheck

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx,
			o.Week.UTC().Format(weekFormat), o.CumulativeCases, o.CumulativeDeaths, o.CumulativeRecovered,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert observation %s", o.Week.Format(weekFormat))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit observations")
	}
	return int64(len(obs)), nil
}

func (s *SQLiteStore) ListObservations(ctx context.Context) ([]model.WeeklyObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT week, cases, deaths, recovered FROM weekly_observations ORDER BY week`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close() //nolint:errcheck

	var obs []model.WeeklyObservation
	for rows.Next() {
		var o model.WeeklyObservation
		var week string
		if err := rows.Scan(&week, &o.CumulativeCases, &o.CumulativeDeaths, &o.CumulativeRecovered); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		o.Week, err = time.Parse(weekFormat, week)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse week %q", week)
		}
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "sqlite: iterate observations")
}

func (s *SQLiteStore) UpsertIncidents(ctx context.Context, incidents []model.ShootingIncident) (int64, error) {
	if len(incidents) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO shooting_incidents (incident_key, occurred_at, borough, precinct, latitude, longitude, murder)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(incident_key) DO UPDATE SET
			occurred_at=excluded.occurred_at, borough=excluded.borough, precinct=excluded.precinct,
			latitude=excluded.latitude, longitude=excluded.longitude, murder=excluded.murder`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert incidents")
	}
	defer stmt.Close() //nolint:errcheck

	for _, in := range incidents {
		if _, err := stmt.ExecContext(ctx,
			in.IncidentKey, in.OccurredAt.UTC(), in.Borough, in.Precinct, in.Latitude, in.Longitude, in.Murder,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert incident %s", in.IncidentKey)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit incidents")
	}
	return int64(len(incidents)), nil
}

func (s *SQLiteStore) ListIncidents(ctx context.Context, year int) ([]model.ShootingIncident, error) {
	query := `SELECT incident_key, occurred_at, borough, precinct, latitude, longitude, murder
		FROM shooting_incidents`
	var args []any
	if year > 0 {
		query += ` WHERE strftime('%Y', occurred_at) = ?`
		args = append(args, time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006"))
	}
	query += ` ORDER BY occurred_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list incidents")
	}
	defer rows.Close() //nolint:errcheck

	var incidents []model.ShootingIncident
	for rows.Next() {
		var in model.ShootingIncident
		if err := rows.Scan(&in.IncidentKey, &in.OccurredAt, &in.Borough, &in.Precinct,
			&in.Latitude, &in.Longitude, &in.Murder); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan incident")
		}
		incidents = append(incidents, in)
	}
	return incidents, eris.Wrap(rows.Err(), "sqlite: iterate incidents")
}

func (s *SQLiteStore) UpsertPrecinctResults(ctx context.Context, results []model.PrecinctResult) (int64, error) {
	if len(results) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO precinct_results (precinct, borough, votes_dem, votes_rep, votes_total)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(precinct) DO UPDATE SET
			borough=excluded.borough, votes_dem=excluded.votes_dem,
			votes_rep=excluded.votes_rep, votes_total=excluded.votes_total`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert precinct results")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, r.Precinct, r.Borough, r.VotesDem, r.VotesRep, r.VotesTotal); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert precinct %d", r.Precinct)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit precinct results")
	}
	return int64(len(results)), nil
}

func (s *SQLiteStore) ListPrecinctResults(ctx context.Context) ([]model.PrecinctResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT precinct, borough, votes_dem, votes_rep, votes_total FROM precinct_results ORDER BY precinct`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list precinct results")
	}
	defer rows.Close() //nolint:errcheck

	var results []model.PrecinctResult
	for rows.Next() {
		var r model.PrecinctResult
		if err := rows.Scan(&r.Precinct, &r.Borough, &r.VotesDem, &r.VotesRep, &r.VotesTotal); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan precinct result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: iterate precinct results")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, name string, cfg model.RunConfig) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run config")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO model_runs (id, name, config, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, string(cfgJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE model_runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	status := model.RunStatusComplete
	if result.Error != "" {
		status = model.RunStatusFailed
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE model_runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, config, status, result, created_at, updated_at FROM model_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, name, config, status, result, created_at, updated_at FROM model_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var cfgJSON string
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Name, &cfgJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run config")
	}
	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run result")
		}
	}
	return &r, nil
}

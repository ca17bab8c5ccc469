package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/model"
)

// sqliteBatch keeps each multi-row INSERT under SQLite's bound-variable limit.
const sqliteBatch = 500

// sqliteTime is fixed width so created_at sorts as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	snapshot_id          TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	row_index            INTEGER NOT NULL,
	project_id           TEXT NOT NULL,
	project_name         TEXT NOT NULL,
	contractor           TEXT NOT NULL,
	region               TEXT NOT NULL,
	province             TEXT NOT NULL,
	municipality         TEXT NOT NULL,
	legislative_district TEXT NOT NULL,
	engineering_office   TEXT NOT NULL,
	type_of_work         TEXT NOT NULL,
	main_island          TEXT NOT NULL,
	contract_cost        REAL NOT NULL,
	approved_budget      REAL NOT NULL,
	start_date           TEXT,
	completion_date      TEXT,
	duration             INTEGER,
	funding_year         INTEGER NOT NULL,
	latitude             REAL NOT NULL,
	longitude            REAL NOT NULL,
	budget_difference    REAL NOT NULL,
	budget_variance      REAL,
	risk_score           REAL,
	is_suspicious        INTEGER NOT NULL,
	anomalies            INTEGER NOT NULL DEFAULT 0,
	geom                 BLOB,
	PRIMARY KEY (snapshot_id, row_index)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
CREATE INDEX IF NOT EXISTS idx_projects_region ON projects(snapshot_id, region);
CREATE INDEX IF NOT EXISTS idx_projects_year ON projects(snapshot_id, funding_year);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, source string, projects []model.Project) (*Snapshot, error) {
	snap := &Snapshot{
		ID:        uuid.New().String(),
		Source:    source,
		Rows:      len(projects),
		CreatedAt: s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin snapshot")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, source, row_count, created_at) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.Source, snap.Rows, snap.CreatedAt.Format(sqliteTime))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert snapshot")
	}

	for start := 0; start < len(projects); start += sqliteBatch {
		end := min(start+sqliteBatch, len(projects))
		ins := sq.Insert("projects").Columns(insertColumns...)
		for i := start; i < end; i++ {
			vals, err := projectValues(snap.ID, i, &projects[i])
			if err != nil {
				return nil, err
			}
			ins = ins.Values(vals...)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: build insert")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert projects %d-%d", start, end)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit snapshot")
	}
	return snap, nil
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		snap    Snapshot
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, row_count, created_at FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&snap.ID, &snap.Source, &snap.Rows, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest snapshot")
	}
	snap.CreatedAt, err = time.Parse(sqliteTime, created)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: parse created_at")
	}
	return &snap, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context, snapshotID string, c filter.Criteria) ([]model.Project, error) {
	query, args, err := projectQuery(snapshotID, c, sq.Question)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate projects")
	}
	return filter.Apply(out, textOnly(c)), nil
}

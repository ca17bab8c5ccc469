package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/floodaudit/floodaudit/internal/db"
	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/model"
)

// PostgresStore implements Store using pgxpool. Project rows are loaded with COPY.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
	contract_cost        DOUBLE PRECISION NOT NULL,
	approved_budget      DOUBLE PRECISION NOT NULL,
	start_date           TEXT,
	completion_date      TEXT,
	duration             INTEGER,
	funding_year         INTEGER NOT NULL,
	latitude             DOUBLE PRECISION NOT NULL,
	longitude            DOUBLE PRECISION NOT NULL,
	budget_difference    DOUBLE PRECISION NOT NULL,
	budget_variance      DOUBLE PRECISION,
	risk_score           DOUBLE PRECISION,
	is_suspicious        BOOLEAN NOT NULL,
	anomalies            INTEGER NOT NULL DEFAULT 0,
	geom                 BYTEA,
	PRIMARY KEY (snapshot_id, row_index)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_projects_region ON projects(snapshot_id, region);
CREATE INDEX IF NOT EXISTS idx_projects_year ON projects(snapshot_id, funding_year);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, source string, projects []model.Project) (*Snapshot, error) {
	snap := &Snapshot{
		ID:        uuid.New().String(),
		Source:    source,
		Rows:      len(projects),
		CreatedAt: s.now().UTC(),
	}

	rows := make([][]any, len(projects))
	for i := range projects {
		vals, err := projectValues(snap.ID, i, &projects[i])
		if err != nil {
			return nil, err
		}
		rows[i] = vals
	}

	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO snapshots (id, source, row_count, created_at) VALUES ($1, $2, $3, $4)`,
			snap.ID, snap.Source, snap.Rows, snap.CreatedAt)
		if err != nil {
			return eris.Wrap(err, "postgres: insert snapshot")
		}
		n, err := db.CopyFrom(ctx, tx, "projects", insertColumns, rows)
		if err != nil {
			return err
		}
		zap.L().Debug("postgres: copied snapshot rows",
			zap.String("snapshot", snap.ID), zap.Int64("rows", n))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx,
		`SELECT id, source, row_count, created_at FROM snapshots ORDER BY created_at DESC LIMIT 1`,
	).Scan(&snap.ID, &snap.Source, &snap.Rows, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest snapshot")
	}
	return &snap, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, snapshotID string, c filter.Criteria) ([]model.Project, error) {
	query, args, err := projectQuery(snapshotID, c, sq.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects")
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate projects")
	}
	return filter.Apply(out, textOnly(c)), nil
}

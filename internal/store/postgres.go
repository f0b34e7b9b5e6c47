package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-intake/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, satisfied by pgxmock in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS briefs (
	id           TEXT PRIMARY KEY,
	input        JSONB NOT NULL,
	analysis     JSONB NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	complexity   TEXT NOT NULL,
	spam_flagged BOOLEAN NOT NULL DEFAULT FALSE,
	ip_address   TEXT,
	user_agent   TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_briefs_status ON briefs(status);
CREATE INDEX IF NOT EXISTS idx_briefs_created_at ON briefs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateBrief(ctx context.Context, brief *model.Brief) error {
	inputJSON, err := json.Marshal(brief.Input)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal input")
	}
	analysisJSON, err := json.Marshal(brief.Analysis)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO briefs (id, input, analysis, status, complexity, spam_flagged, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		brief.ID, inputJSON, analysisJSON, string(brief.Status),
		string(brief.Complexity), brief.SpamFlagged,
		brief.IPAddress, brief.UserAgent, brief.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert brief %s", brief.ID)
}

func (s *PostgresStore) GetBrief(ctx context.Context, id string) (*model.Brief, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, input, analysis, status, complexity, spam_flagged, ip_address, user_agent, created_at
		 FROM briefs WHERE id = $1`,
		id,
	)
	b, err := scanPgBrief(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *PostgresStore) ListBriefs(ctx context.Context, filter BriefFilter) ([]model.Brief, error) {
	query := `SELECT id, input, analysis, status, complexity, spam_flagged, ip_address, user_agent, created_at
		FROM briefs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	if filter.Status != "" {
		query += ` LIMIT $2`
	} else {
		query += ` LIMIT $1`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list briefs")
	}
	defer rows.Close()

	var briefs []model.Brief
	for rows.Next() {
		b, err := scanPgBrief(rows)
		if err != nil {
			return nil, err
		}
		briefs = append(briefs, *b)
	}
	return briefs, eris.Wrap(rows.Err(), "postgres: list briefs iterate")
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status model.BriefStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE briefs SET status = $1 WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FlagSpam(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE briefs SET spam_flagged = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: flag spam %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*BriefStats, error) {
	stats := &BriefStats{ByStatus: make(map[model.BriefStatus]int)}

	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM briefs GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stats")
		}
		stats.ByStatus[model.BriefStatus(status)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats iterate")
	}

	row := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM briefs WHERE spam_flagged`)
	if err := row.Scan(&stats.SpamFlagged); err != nil {
		return nil, eris.Wrap(err, "postgres: scan spam count")
	}

	return stats, nil
}

func scanPgBrief(row pgx.Row) (*model.Brief, error) {
	var (
		b            model.Brief
		inputJSON    []byte
		analysisJSON []byte
		status       string
		complexity   string
		ipAddress    *string
		userAgent    *string
	)
	if err := row.Scan(&b.ID, &inputJSON, &analysisJSON, &status, &complexity, &b.SpamFlagged, &ipAddress, &userAgent, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan brief")
	}

	if err := json.Unmarshal(inputJSON, &b.Input); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal input")
	}
	if err := json.Unmarshal(analysisJSON, &b.Analysis); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	b.Status = model.BriefStatus(status)
	b.Complexity = model.Complexity(complexity)
	if ipAddress != nil {
		b.IPAddress = *ipAddress
	}
	if userAgent != nil {
		b.UserAgent = *userAgent
	}

	return &b, nil
}

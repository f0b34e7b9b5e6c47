package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-intake/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "sqlite: create data dir")
		}
	}
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
CREATE TABLE IF NOT EXISTS briefs (
	id           TEXT PRIMARY KEY,
	input        TEXT NOT NULL,
	analysis     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	complexity   TEXT NOT NULL,
	spam_flagged INTEGER NOT NULL DEFAULT 0,
	ip_address   TEXT,
	user_agent   TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_briefs_status ON briefs(status);
CREATE INDEX IF NOT EXISTS idx_briefs_created_at ON briefs(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateBrief(ctx context.Context, brief *model.Brief) error {
	inputJSON, err := json.Marshal(brief.Input)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal input")
	}
	analysisJSON, err := json.Marshal(brief.Analysis)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO briefs (id, input, analysis, status, complexity, spam_flagged, ip_address, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		brief.ID, string(inputJSON), string(analysisJSON), string(brief.Status),
		string(brief.Complexity), boolToInt(brief.SpamFlagged),
		brief.IPAddress, brief.UserAgent, brief.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert brief %s", brief.ID)
}

func (s *SQLiteStore) GetBrief(ctx context.Context, id string) (*model.Brief, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, analysis, status, complexity, spam_flagged, ip_address, user_agent, created_at
		 FROM briefs WHERE id = ?`,
		id,
	)
	b, err := scanBrief(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *SQLiteStore) ListBriefs(ctx context.Context, filter BriefFilter) ([]model.Brief, error) {
	query := `SELECT id, input, analysis, status, complexity, spam_flagged, ip_address, user_agent, created_at
		FROM briefs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list briefs")
	}
	defer rows.Close()

	var briefs []model.Brief
	for rows.Next() {
		b, err := scanBrief(rows)
		if err != nil {
			return nil, err
		}
		briefs = append(briefs, *b)
	}
	return briefs, eris.Wrap(rows.Err(), "sqlite: list briefs iterate")
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status model.BriefStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE briefs SET status = ? WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update status %s", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) FlagSpam(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE briefs SET spam_flagged = 1 WHERE id = ?`,
		id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: flag spam %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*BriefStats, error) {
	stats := &BriefStats{ByStatus: make(map[model.BriefStatus]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM briefs GROUP BY status`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stats")
		}
		stats.ByStatus[model.BriefStatus(status)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats iterate")
	}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM briefs WHERE spam_flagged = 1`)
	if err := row.Scan(&stats.SpamFlagged); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan spam count")
	}

	return stats, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBrief(row scanner) (*model.Brief, error) {
	var (
		b            model.Brief
		inputJSON    string
		analysisJSON string
		status       string
		complexity   string
		spamFlagged  int
		ipAddress    sql.NullString
		userAgent    sql.NullString
		createdAt    time.Time
	)
	if err := row.Scan(&b.ID, &inputJSON, &analysisJSON, &status, &complexity, &spamFlagged, &ipAddress, &userAgent, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan brief")
	}

	if err := json.Unmarshal([]byte(inputJSON), &b.Input); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal input")
	}
	if err := json.Unmarshal([]byte(analysisJSON), &b.Analysis); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	b.Status = model.BriefStatus(status)
	b.Complexity = model.Complexity(complexity)
	b.SpamFlagged = spamFlagged != 0
	b.IPAddress = ipAddress.String
	b.UserAgent = userAgent.String
	b.CreatedAt = createdAt

	return &b, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

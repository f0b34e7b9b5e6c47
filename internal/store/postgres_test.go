package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-intake/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func briefColumns() []string {
	return []string{"id", "input", "analysis", "status", "complexity", "spam_flagged", "ip_address", "user_agent", "created_at"}
}

func briefRow(t *testing.T, b *model.Brief) []any {
	t.Helper()
	inputJSON, err := json.Marshal(b.Input)
	require.NoError(t, err)
	analysisJSON, err := json.Marshal(b.Analysis)
	require.NoError(t, err)
	return []any{
		b.ID, inputJSON, analysisJSON, string(b.Status), string(b.Complexity),
		b.SpamFlagged, &b.IPAddress, &b.UserAgent, b.CreatedAt,
	}
}

func TestPostgresCreateBrief(t *testing.T) {
	s, mock := newMockPostgres(t)
	b := sampleBrief("b-1", model.BriefStatusPending)

	mock.ExpectExec("INSERT INTO briefs").
		WithArgs(b.ID, pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", "medium",
			false, b.IPAddress, b.UserAgent, b.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateBrief(context.Background(), b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetBrief(t *testing.T) {
	s, mock := newMockPostgres(t)
	want := sampleBrief("b-1", model.BriefStatusApproved)

	mock.ExpectQuery("SELECT (.+) FROM briefs WHERE id").
		WithArgs("b-1").
		WillReturnRows(pgxmock.NewRows(briefColumns()).AddRow(briefRow(t, want)...))

	got, err := s.GetBrief(context.Background(), "b-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Input, got.Input)
	assert.Equal(t, want.Analysis, got.Analysis)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.IPAddress, got.IPAddress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetBriefMissing(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT (.+) FROM briefs WHERE id").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows(briefColumns()))

	got, err := s.GetBrief(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresListBriefs(t *testing.T) {
	s, mock := newMockPostgres(t)
	a := sampleBrief("a", model.BriefStatusPending)
	b := sampleBrief("b", model.BriefStatusPending)

	mock.ExpectQuery("SELECT (.+) FROM briefs WHERE 1=1 AND status").
		WithArgs("pending", 200).
		WillReturnRows(pgxmock.NewRows(briefColumns()).
			AddRow(briefRow(t, b)...).
			AddRow(briefRow(t, a)...))

	briefs, err := s.ListBriefs(context.Background(), BriefFilter{Status: model.BriefStatusPending})
	require.NoError(t, err)
	require.Len(t, briefs, 2)
	assert.Equal(t, "b", briefs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateStatus(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE briefs SET status").
		WithArgs("approved", "b-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.UpdateStatus(context.Background(), "b-1", model.BriefStatusApproved))

	mock.ExpectExec("UPDATE briefs SET status").
		WithArgs("approved", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := s.UpdateStatus(context.Background(), "missing", model.BriefStatusApproved)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresFlagSpam(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE briefs SET spam_flagged").
		WithArgs("b-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	flagged, err := s.FlagSpam(context.Background(), "b-1")
	require.NoError(t, err)
	assert.True(t, flagged)

	mock.ExpectExec("UPDATE briefs SET spam_flagged").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	flagged, err = s.FlagSpam(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, flagged)
}

func TestPostgresStats(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 2).
			AddRow("approved", 1))
	mock.ExpectQuery("SELECT COUNT(.+) FROM briefs WHERE spam_flagged").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[model.BriefStatusPending])
	assert.Equal(t, 1, stats.SpamFlagged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS briefs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.Migrate(context.Background()))
}

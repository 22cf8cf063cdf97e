package retention

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeExecer struct {
	statements []string
	args       [][]any
	failOn     string
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.statements = append(f.statements, sql)
	f.args = append(f.args, args)
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func TestRunRetentionJob(t *testing.T) {
	db := &fakeExecer{}
	require.NoError(t, RunRetentionJob(context.Background(), db, 14, 365))

	require.Len(t, db.statements, 2)
	require.Contains(t, db.statements[0], "mail_outbox")
	require.Contains(t, db.statements[0], "status IN ('sent', 'failed')")
	require.Equal(t, []any{14}, db.args[0])
	require.Contains(t, db.statements[1], "audit_log")
	require.Equal(t, []any{365}, db.args[1])
}

func TestRunRetentionJob_StopsOnError(t *testing.T) {
	db := &fakeExecer{failOn: "mail_outbox"}
	err := RunRetentionJob(context.Background(), db, 14, 365)
	require.ErrorContains(t, err, "mail cleanup failed")
	require.Len(t, db.statements, 1)
}

func TestDeleteOldMail_ReturnsRowsAffected(t *testing.T) {
	n, err := DeleteOldMail(context.Background(), &fakeExecer{}, 7)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

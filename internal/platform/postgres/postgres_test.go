package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txcontext "octopus/pkg/platform/tx"
)

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE providers").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), mock, func(ctx context.Context) error {
		_, ok := txcontext.From(ctx)
		assert.True(t, ok, "transaction carried by context")
		_, err := Conn(ctx, mock).Exec(ctx, "UPDATE providers SET status = 'VERIFIED'")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = WithTx(context.Background(), mock, func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_JoinsAmbientTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	runner := NewTxRunner(mock)
	calls := 0
	err = runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return runner.RunInTx(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet(), "inner call must not open a second transaction")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}

func TestCountByStatus(t *testing.T) {
	type status string

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 3).
			AddRow("VERIFIED", 5))
	mock.ExpectQuery("SELECT status, COUNT").WillReturnError(errors.New("connection reset"))

	counts, err := CountByStatus[status](context.Background(), mock,
		"SELECT status, COUNT(*) FROM providers WHERE owner = $1 GROUP BY status", "p-1")
	require.NoError(t, err)
	assert.Equal(t, map[status]int{"PENDING": 3, "VERIFIED": 5}, counts)

	_, err = CountByStatus[status](context.Background(), mock, "SELECT status, COUNT(*) FROM providers GROUP BY status")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

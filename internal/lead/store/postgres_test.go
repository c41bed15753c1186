package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octopus/internal/lead/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/sentinel"
)

var leadCols = []string{"id", "provider_id", "listing_id", "customer_name", "customer_email", "customer_phone",
	"service_requested", "message", "preferred_contact", "budget_range", "status", "attribution_hash",
	"attribution_source", "signed_url", "signed_url_expires_at", "contacted_at", "quoted_at", "booked_at",
	"completed_at", "lost_at", "lost_reason", "created_at", "updated_at"}

var capturedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func leadRow(lid, pid uuid.UUID, status string) *pgxmock.Rows {
	none := (*time.Time)(nil)
	return pgxmock.NewRows(leadCols).AddRow(lid, pid, "", "Riley", "riley@example.test", "",
		"plumbing", "", "", "", status, "hash", "web", "https://octopus.test/a/hash",
		capturedAt.Add(72*time.Hour), none, none, none, none, none, "", capturedAt, capturedAt)
}

func TestPostgresLeadStore_Create(t *testing.T) {
	lead := newLead("hash", capturedAt)

	t.Run("inserts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO leads").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewPostgres(mock).Create(context.Background(), lead))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate hash is a conflict", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("INSERT INTO leads").WillReturnError(&pgconn.PgError{Code: "23505"})

		err = NewPostgres(mock).Create(context.Background(), lead)
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestPostgresLeadStore_Find(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lid, pid := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WithArgs(lid).
		WillReturnRows(leadRow(lid, pid, "QUOTED"))
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE attribution_hash").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgres(mock)
	got, err := store.FindByID(context.Background(), id.LeadID(lid))
	require.NoError(t, err)
	assert.Equal(t, id.ProviderID(pid), got.ProviderID)
	assert.Equal(t, models.StatusQuoted, got.Status)
	assert.Equal(t, "Riley", got.Customer.Name)

	_, err = store.FindByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadStore_CountByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pid := uuid.New()
	mock.ExpectQuery("SELECT status, COUNT(.+) FROM leads").
		WithArgs((*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).AddRow("CAPTURED", 4).AddRow("LOST", 1))
	mock.ExpectQuery("SELECT status, COUNT(.+) FROM leads").
		WithArgs(&pid).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).AddRow("BOOKED", 2))

	store := NewPostgres(mock)
	all, err := store.CountByStatus(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int{models.StatusCaptured: 4, models.StatusLost: 1}, all)

	providerID := id.ProviderID(pid)
	mine, err := store.CountByStatus(context.Background(), &providerID)
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int{models.StatusBooked: 2}, mine)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLeadStore_Execute(t *testing.T) {
	lid, pid := uuid.New(), uuid.New()
	later := capturedAt.Add(time.Hour)

	t.Run("advances inside a transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM leads WHERE id = \\$1 FOR UPDATE").
			WithArgs(lid).
			WillReturnRows(leadRow(lid, pid, "CAPTURED"))
		mock.ExpectExec("UPDATE leads").
			WithArgs(lid, "CONTACTED", pgxmock.AnyArg(), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil),
				(*time.Time)(nil), "", later).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		got, err := NewPostgres(mock).Execute(context.Background(), id.LeadID(lid),
			func(l *models.Lead) error { return l.CanAdvance(models.StatusContacted) },
			func(l *models.Lead) { l.Advance(models.StatusContacted, later) })
		require.NoError(t, err)
		assert.Equal(t, models.StatusContacted, got.Status)
		require.NotNil(t, got.ContactedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected transition rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM leads WHERE id = \\$1 FOR UPDATE").
			WithArgs(lid).
			WillReturnRows(leadRow(lid, pid, "CAPTURED"))
		mock.ExpectRollback()

		_, err = NewPostgres(mock).Execute(context.Background(), id.LeadID(lid),
			func(l *models.Lead) error { return l.CanAdvance(models.StatusBooked) },
			func(l *models.Lead) { l.Advance(models.StatusBooked, later) })
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err = NewPostgres(mock).Execute(context.Background(), id.LeadID(lid),
			func(*models.Lead) error { return nil }, func(*models.Lead) {})
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})
}

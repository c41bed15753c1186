package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"octopus/internal/booking/models"
	"octopus/internal/platform/postgres"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

const bookingColumns = `id, lead_id, provider_id, customer_name, service_description, scheduled_date, notes,
	status, estimated_value, actual_value, commission_rate, commission_amount, provider_confirmed_at,
	customer_confirmed_at, started_at, completed_at, cancelled_at, cancel_reason, disputed_at,
	dispute_reason, resolved_at, resolved_by, resolution, resolution_notes, created_at, updated_at`

// PostgresStore persists bookings in the bookings table.
type PostgresStore struct {
	db postgres.DB
}

func NewPostgres(db postgres.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Booking) error {
	_, err := postgres.Conn(ctx, s.db).Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		uuid.UUID(b.ID), uuid.UUID(b.LeadID), uuid.UUID(b.ProviderID), b.CustomerName, b.ServiceDescription,
		b.ScheduledDate, b.Notes, string(b.Status), b.EstimatedValue, b.ActualValue, b.CommissionRate,
		b.CommissionAmount, b.ProviderConfirmedAt, b.CustomerConfirmedAt, b.StartedAt, b.CompletedAt,
		b.CancelledAt, b.CancelReason, b.DisputedAt, b.DisputeReason, b.ResolvedAt, b.ResolvedBy,
		string(b.Resolution), b.ResolutionNotes, b.CreatedAt, b.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("booking for lead %s: %w", b.LeadID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, bookingID id.BookingID) (*models.Booking, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, uuid.UUID(bookingID))
	return one(row, "booking "+bookingID.String())
}

func (s *PostgresStore) FindByLead(ctx context.Context, leadID id.LeadID) (*models.Booking, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE lead_id = $1`, uuid.UUID(leadID))
	return one(row, "booking for lead "+leadID.String())
}

func one(row pgx.Row, what string) (*models.Booking, error) {
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select booking: %w", err)
	}
	return b, nil
}

// Execute locks the row, runs validate and mutate, and writes every mutable
// column back in the same transaction.
// CountByStatus counts bookings per status, for one provider when
// providerID is set.
func (s *PostgresStore) CountByStatus(ctx context.Context, providerID *id.ProviderID) (map[models.Status]int, error) {
	counts, err := postgres.CountByStatus[models.Status](ctx, s.db, `
		SELECT status, COUNT(*) FROM bookings
		WHERE ($1::uuid IS NULL OR provider_id = $1)
		GROUP BY status`, postgres.OptionalUUID(providerID))
	if err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	return counts, nil
}

// Revenue sums bookings settled at or after since. A zero since covers all
// time.
func (s *PostgresStore) Revenue(ctx context.Context, providerID *id.ProviderID, since time.Time) (models.Revenue, error) {
	var r models.Revenue
	err := postgres.Conn(ctx, s.db).QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(actual_value), 0)::float8, COALESCE(SUM(commission_amount), 0)::float8
		FROM bookings
		WHERE status = 'COMPLETED'
			AND completed_at >= $2
			AND ($1::uuid IS NULL OR provider_id = $1)`,
		postgres.OptionalUUID(providerID), since,
	).Scan(&r.Bookings, &r.Gross, &r.Commission)
	if err != nil {
		return models.Revenue{}, fmt.Errorf("sum booking revenue: %w", err)
	}
	r.Gross = models.Round2(r.Gross)
	r.Commission = models.Round2(r.Commission)
	return r, nil
}

func (s *PostgresStore) Execute(ctx context.Context, bookingID id.BookingID, validate func(*models.Booking) error, mutate func(*models.Booking)) (*models.Booking, error) {
	var out *models.Booking
	err := postgres.WithTx(ctx, s.db, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, s.db)
		row := conn.QueryRow(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, uuid.UUID(bookingID))
		b, err := scanBooking(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("booking %s: %w", bookingID, sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if err := validate(b); err != nil {
			return err
		}
		mutate(b)

		_, err = conn.Exec(ctx, `
			UPDATE bookings
			SET status = $2, actual_value = $3, commission_amount = $4, provider_confirmed_at = $5,
				customer_confirmed_at = $6, started_at = $7, completed_at = $8, cancelled_at = $9,
				cancel_reason = $10, disputed_at = $11, dispute_reason = $12, resolved_at = $13,
				resolved_by = $14, resolution = $15, resolution_notes = $16, updated_at = $17
			WHERE id = $1`,
			uuid.UUID(b.ID), string(b.Status), b.ActualValue, b.CommissionAmount, b.ProviderConfirmedAt,
			b.CustomerConfirmedAt, b.StartedAt, b.CompletedAt, b.CancelledAt, b.CancelReason, b.DisputedAt,
			b.DisputeReason, b.ResolvedAt, b.ResolvedBy, string(b.Resolution), b.ResolutionNotes, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var (
		b                           models.Booking
		bookingID, leadID, provider uuid.UUID
		status, resolution          string
	)
	if err := row.Scan(&bookingID, &leadID, &provider, &b.CustomerName, &b.ServiceDescription,
		&b.ScheduledDate, &b.Notes, &status, &b.EstimatedValue, &b.ActualValue, &b.CommissionRate,
		&b.CommissionAmount, &b.ProviderConfirmedAt, &b.CustomerConfirmedAt, &b.StartedAt, &b.CompletedAt,
		&b.CancelledAt, &b.CancelReason, &b.DisputedAt, &b.DisputeReason, &b.ResolvedAt, &b.ResolvedBy,
		&resolution, &b.ResolutionNotes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.ID = id.BookingID(bookingID)
	b.LeadID = id.LeadID(leadID)
	b.ProviderID = id.ProviderID(provider)
	b.Status = models.Status(status)
	b.Resolution = models.Outcome(resolution)
	return &b, nil
}

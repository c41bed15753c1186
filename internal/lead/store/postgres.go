package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"octopus/internal/lead/models"
	"octopus/internal/platform/postgres"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

const leadColumns = `id, provider_id, listing_id, customer_name, customer_email, customer_phone,
	service_requested, message, preferred_contact, budget_range, status, attribution_hash,
	attribution_source, signed_url, signed_url_expires_at, contacted_at, quoted_at, booked_at,
	completed_at, lost_at, lost_reason, created_at, updated_at`

// PostgresStore persists leads in the leads table.
type PostgresStore struct {
	db postgres.DB
}

func NewPostgres(db postgres.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, l *models.Lead) error {
	_, err := postgres.Conn(ctx, s.db).Exec(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		uuid.UUID(l.ID), uuid.UUID(l.ProviderID), l.ListingID, l.Customer.Name, l.Customer.Email, l.Customer.Phone,
		l.ServiceRequested, l.Message, l.PreferredContact, l.BudgetRange, string(l.Status), l.AttributionHash,
		l.AttributionSource, l.SignedURL, l.SignedURLExpiresAt, l.ContactedAt, l.QuotedAt, l.BookedAt,
		l.CompletedAt, l.LostAt, l.LostReason, l.CreatedAt, l.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("lead attribution %s: %w", l.AttributionHash, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, leadID id.LeadID) (*models.Lead, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, uuid.UUID(leadID))
	return s.one(row, leadID.String())
}

func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*models.Lead, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE attribution_hash = $1`, hash)
	return s.one(row, hash)
}

func (s *PostgresStore) one(row pgx.Row, key string) (*models.Lead, error) {
	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select lead: %w", err)
	}
	return l, nil
}

// CountByStatus counts leads per status, for one provider when providerID
// is set.
func (s *PostgresStore) CountByStatus(ctx context.Context, providerID *id.ProviderID) (map[models.Status]int, error) {
	counts, err := postgres.CountByStatus[models.Status](ctx, s.db, `
		SELECT status, COUNT(*) FROM leads
		WHERE ($1::uuid IS NULL OR provider_id = $1)
		GROUP BY status`, postgres.OptionalUUID(providerID))
	if err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}
	return counts, nil
}

// Execute locks the row, runs validate and mutate, and writes the funnel
// columns back in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, leadID id.LeadID, validate func(*models.Lead) error, mutate func(*models.Lead)) (*models.Lead, error) {
	var out *models.Lead
	err := postgres.WithTx(ctx, s.db, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, s.db)
		row := conn.QueryRow(ctx,
			`SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, uuid.UUID(leadID))
		l, err := scanLead(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lead %s: %w", leadID, sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock lead: %w", err)
		}
		if err := validate(l); err != nil {
			return err
		}
		mutate(l)

		_, err = conn.Exec(ctx, `
			UPDATE leads
			SET status = $2, contacted_at = $3, quoted_at = $4, booked_at = $5, completed_at = $6,
				lost_at = $7, lost_reason = $8, updated_at = $9
			WHERE id = $1`,
			uuid.UUID(l.ID), string(l.Status), l.ContactedAt, l.QuotedAt, l.BookedAt, l.CompletedAt,
			l.LostAt, l.LostReason, l.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanLead(row pgx.Row) (*models.Lead, error) {
	var (
		l          models.Lead
		leadID     uuid.UUID
		providerID uuid.UUID
		status     string
	)
	if err := row.Scan(&leadID, &providerID, &l.ListingID, &l.Customer.Name, &l.Customer.Email,
		&l.Customer.Phone, &l.ServiceRequested, &l.Message, &l.PreferredContact, &l.BudgetRange, &status,
		&l.AttributionHash, &l.AttributionSource, &l.SignedURL, &l.SignedURLExpiresAt, &l.ContactedAt,
		&l.QuotedAt, &l.BookedAt, &l.CompletedAt, &l.LostAt, &l.LostReason, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.ID = id.LeadID(leadID)
	l.ProviderID = id.ProviderID(providerID)
	l.Status = models.Status(status)
	return &l, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

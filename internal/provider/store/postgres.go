package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"octopus/internal/platform/postgres"
	"octopus/internal/provider/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

const providerColumns = `id, business_name, contact_name, email, phone, website, description, services,
	service_area_cities, years_in_business, status, trust_score, verified_at, suspended_reason,
	created_at, updated_at`

// PostgresStore persists providers in the providers table.
type PostgresStore struct {
	db postgres.DB
}

func NewPostgres(db postgres.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Provider) error {
	_, err := postgres.Conn(ctx, s.db).Exec(ctx, `
		INSERT INTO providers (`+providerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		uuid.UUID(p.ID), p.BusinessName, p.ContactName, p.Email, p.Phone, p.Website, p.Description,
		p.Services, p.ServiceAreaCities, p.YearsInBusiness, string(p.Status), p.TrustScore,
		p.VerifiedAt, p.SuspendedReason, p.CreatedAt, p.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("provider %q: %w", p.BusinessName, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, providerID id.ProviderID) (*models.Provider, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE id = $1`, uuid.UUID(providerID))
	p, err := scanProvider(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("provider %s: %w", providerID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select provider: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Search(ctx context.Context, filter models.SearchFilter) (*models.SearchResult, error) {
	where, args := searchPredicate(filter)
	conn := postgres.Conn(ctx, s.db)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM providers WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count providers: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := conn.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM providers
		WHERE %s
		ORDER BY trust_score DESC, created_at ASC
		LIMIT $%d OFFSET $%d`, providerColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("search providers: %w", err)
	}
	defer rows.Close()

	result := &models.SearchResult{Total: total, Limit: filter.Limit, Offset: filter.Offset, Providers: []*models.Provider{}}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		result.Providers = append(result.Providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return result, nil
}

func searchPredicate(f models.SearchFilter) (string, []any) {
	clauses := []string{"trust_score >= $1"}
	args := []any{f.MinTrustScore}
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Query != "" {
		add("(business_name ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+escapeLike(f.Query)+"%")
	}
	if f.Service != "" {
		add("$%d = ANY (services)", strings.ToLower(f.Service))
	}
	if f.City != "" {
		add("EXISTS (SELECT 1 FROM unnest(service_area_cities) c WHERE lower(c) = lower($%d))", f.City)
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	counts, err := postgres.CountByStatus[models.Status](ctx, s.db,
		`SELECT status, COUNT(*) FROM providers GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count providers by status: %w", err)
	}
	return counts, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate and
// mutate, and writes the mutable columns back in the same transaction. A
// rename onto an existing claim returns ErrConflict.
func (s *PostgresStore) Execute(ctx context.Context, providerID id.ProviderID, validate func(*models.Provider) error, mutate func(*models.Provider)) (*models.Provider, error) {
	var out *models.Provider
	err := postgres.WithTx(ctx, s.db, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, s.db)
		row := conn.QueryRow(ctx,
			`SELECT `+providerColumns+` FROM providers WHERE id = $1 FOR UPDATE`, uuid.UUID(providerID))
		p, err := scanProvider(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("provider %s: %w", providerID, sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock provider: %w", err)
		}
		if err := validate(p); err != nil {
			return err
		}
		mutate(p)

		_, err = conn.Exec(ctx, `
			UPDATE providers
			SET business_name = $2, contact_name = $3, email = $4, phone = $5, website = $6,
				description = $7, services = $8, service_area_cities = $9, years_in_business = $10,
				status = $11, trust_score = $12, verified_at = $13, suspended_reason = $14, updated_at = $15
			WHERE id = $1`,
			uuid.UUID(p.ID), p.BusinessName, p.ContactName, p.Email, p.Phone, p.Website,
			p.Description, p.Services, p.ServiceAreaCities, p.YearsInBusiness,
			string(p.Status), p.TrustScore, p.VerifiedAt, p.SuspendedReason, p.UpdatedAt,
		)
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("provider %q: %w", p.BusinessName, sentinel.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("update provider: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanProvider(row pgx.Row) (*models.Provider, error) {
	var (
		p          models.Provider
		providerID uuid.UUID
		status     string
		verifiedAt *time.Time
	)
	if err := row.Scan(&providerID, &p.BusinessName, &p.ContactName, &p.Email, &p.Phone, &p.Website,
		&p.Description, &p.Services, &p.ServiceAreaCities, &p.YearsInBusiness, &status, &p.TrustScore,
		&verifiedAt, &p.SuspendedReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = id.ProviderID(providerID)
	p.Status = models.Status(status)
	p.VerifiedAt = verifiedAt
	return &p, nil
}

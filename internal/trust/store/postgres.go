package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"octopus/internal/platform/postgres"
	"octopus/internal/trust/agents"
	"octopus/internal/trust/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

const scoreColumns = `id, provider_id, score, decision, needs_manual_review, verdicts, failures,
	reviewer_id, review_notes, supersedes, calculated_at`

// PostgresStore persists TrustScores in the append-only trust_scores table.
type PostgresStore struct {
	db postgres.Querier
}

func NewPostgres(db postgres.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, score *models.TrustScore) error {
	verdicts, err := json.Marshal(score.Verdicts)
	if err != nil {
		return fmt.Errorf("marshal verdicts: %w", err)
	}
	failures := []byte("[]")
	if len(score.Failures) > 0 {
		if failures, err = json.Marshal(score.Failures); err != nil {
			return fmt.Errorf("marshal failures: %w", err)
		}
	}
	var supersedes *uuid.UUID
	if score.Supersedes != nil {
		u := uuid.UUID(*score.Supersedes)
		supersedes = &u
	}

	_, err = postgres.Conn(ctx, s.db).Exec(ctx, `
		INSERT INTO trust_scores (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(score.ID), uuid.UUID(score.ProviderID), score.Score, string(score.Decision),
		score.NeedsManualReview, verdicts, failures, score.ReviewerID, score.ReviewNotes,
		supersedes, score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trust score: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error) {
	row := postgres.Conn(ctx, s.db).QueryRow(ctx, `
		SELECT `+scoreColumns+`
		FROM trust_scores
		WHERE provider_id = $1
		ORDER BY calculated_at DESC, seq DESC
		LIMIT 1`, uuid.UUID(providerID))
	score, err := scanScore(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("latest trust score for %s: %w", providerID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select latest trust score: %w", err)
	}
	return score, nil
}

func (s *PostgresStore) History(ctx context.Context, providerID id.ProviderID, limit int) ([]*models.TrustScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM trust_scores
		WHERE provider_id = $1
		ORDER BY calculated_at DESC, seq DESC`
	args := []any{uuid.UUID(providerID)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := postgres.Conn(ctx, s.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select trust history: %w", err)
	}
	defer rows.Close()

	var out []*models.TrustScore
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trust score: %w", err)
		}
		out = append(out, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trust history: %w", err)
	}
	return out, nil
}

// PendingReviews counts providers whose latest record still awaits a
// reviewer.
func (s *PostgresStore) PendingReviews(ctx context.Context) (int, error) {
	var n int
	err := postgres.Conn(ctx, s.db).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM (
			SELECT DISTINCT ON (provider_id) needs_manual_review
			FROM trust_scores
			ORDER BY provider_id, calculated_at DESC, seq DESC
		) latest
		WHERE needs_manual_review`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending reviews: %w", err)
	}
	return n, nil
}

func scanScore(row pgx.Row) (*models.TrustScore, error) {
	var (
		scoreID, providerID uuid.UUID
		supersedes          *uuid.UUID
		decision            string
		verdicts, failures  []byte
		ts                  models.TrustScore
	)
	if err := row.Scan(&scoreID, &providerID, &ts.Score, &decision, &ts.NeedsManualReview,
		&verdicts, &failures, &ts.ReviewerID, &ts.ReviewNotes, &supersedes, &ts.CalculatedAt); err != nil {
		return nil, err
	}
	ts.ID = id.TrustScoreID(scoreID)
	ts.ProviderID = id.ProviderID(providerID)
	ts.Decision = models.Decision(decision)
	if supersedes != nil {
		prev := id.TrustScoreID(*supersedes)
		ts.Supersedes = &prev
	}
	if err := json.Unmarshal(verdicts, &ts.Verdicts); err != nil {
		return nil, fmt.Errorf("decode verdicts: %w", err)
	}
	if len(failures) > 0 {
		if err := json.Unmarshal(failures, &ts.Failures); err != nil {
			return nil, fmt.Errorf("decode failures: %w", err)
		}
	}
	return &ts, nil
}

// PostgresContributions is the contribution ledger backed by the
// contributions table.
type PostgresContributions struct {
	db postgres.Querier
}

func NewPostgresContributions(db postgres.Querier) *PostgresContributions {
	return &PostgresContributions{db: db}
}

func (s *PostgresContributions) Record(ctx context.Context, c *models.Contribution) error {
	_, err := postgres.Conn(ctx, s.db).Exec(ctx, `
		INSERT INTO contributions (id, provider_id, hours, verified, quality, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, uuid.UUID(c.ProviderID), c.Hours, c.Verified, c.Quality, c.Description, c.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert contribution: %w", err)
	}
	return nil
}

func (s *PostgresContributions) Summary(ctx context.Context, subject agents.Subject, since time.Time) (*agents.ContributionSummary, error) {
	var (
		sum    agents.ContributionSummary
		lastAt *time.Time
	)
	err := postgres.Conn(ctx, s.db).QueryRow(ctx, `
		SELECT COALESCE(SUM(hours), 0)::float8,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE verified),
		       COALESCE(AVG(quality) FILTER (WHERE verified), 0)::float8,
		       MAX(occurred_at)
		FROM contributions
		WHERE provider_id = $1 AND occurred_at >= $2`,
		uuid.UUID(subject.ProviderID), since,
	).Scan(&sum.Hours, &sum.Count, &sum.VerifiedCount, &sum.AverageQuality, &lastAt)
	if err != nil {
		return nil, fmt.Errorf("summarise contributions: %w", err)
	}
	if lastAt != nil {
		sum.LastAt = *lastAt
	}
	return &sum, nil
}

// Package postgres owns the pgx connection pool, transaction scoping and
// schema migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"octopus/internal/platform/config"
	txcontext "octopus/pkg/platform/tx"
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a Querier that can open transactions.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens and pings a pool.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db Querier) Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

// WithTx runs fn inside a transaction. A transaction already carried by ctx
// is joined rather than nested, so the outermost caller owns commit.
func WithTx(ctx context.Context, db DB, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TxRunner exposes WithTx to services that coordinate several stores.
type TxRunner struct {
	db DB
}

func NewTxRunner(db DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.db, fn)
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CountByStatus runs a query selecting (status, count) pairs and collects
// them into a map keyed by the caller's status type.
func CountByStatus[S ~string](ctx context.Context, db Querier, sql string, args ...any) (map[S]int, error) {
	rows, err := Conn(ctx, db).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	var (
		status string
		n      int
	)
	counts := make(map[S]int)
	_, err = pgx.ForEachRow(rows, []any{&status, &n}, func() error {
		counts[S(status)] = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// OptionalUUID converts a typed id pointer into a nullable uuid argument, for
// predicates of the form ($1::uuid IS NULL OR col = $1).
func OptionalUUID[T ~[16]byte](v *T) *uuid.UUID {
	if v == nil {
		return nil
	}
	u := uuid.UUID(*v)
	return &u
}

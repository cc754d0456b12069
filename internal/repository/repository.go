package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrSalesHistory rejects deleting an item or variant that sale records
	// still reference. The sales log outlives its stock holders.
	ErrSalesHistory = errors.New("sales history exists")

	// ErrInvalidInput marks writes rejected before reaching the database.
	ErrInvalidInput = errors.New("invalid input")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// begin starts a transaction with the rollback already deferred; callers
// commit explicitly.
func (r *Repository) begin(ctx context.Context, label string) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %s tx: %w", label, err)
	}
	return tx, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// newUniqueCode builds the 10-digit code printed on item labels.
func newUniqueCode() string {
	return fmt.Sprintf("%010d", 1000000000+rand.Int63n(9000000000))
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

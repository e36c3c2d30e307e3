package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/gopherreset/internal/apperrors"
	"github.com/nkiryanov/gopherreset/internal/models"
)

// No-op update makes RETURNING work for existing row too
const ensureTokenCounter = `-- name: EnsureTokenCounter
INSERT INTO token_counters (user_id, purpose, counter)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, purpose) DO UPDATE
SET counter = token_counters.counter
RETURNING counter
`

// Return counter for purpose, create it with 'initial' value if it not exists
func (r *UserRepo) EnsureTokenCounter(ctx context.Context, userID uuid.UUID, purpose models.Purpose, initial int) (int, error) {
	rows, _ := r.DB.Query(ctx, ensureTokenCounter, userID, string(purpose), initial)
	counter, err := pgx.CollectOneRow(rows, pgx.RowTo[int])
	return counter, counterError(err)
}

const incrementTokenCounter = `-- name: IncrementTokenCounter
INSERT INTO token_counters (user_id, purpose, counter)
VALUES ($1, $2, $3 + 1)
ON CONFLICT (user_id, purpose) DO UPDATE
SET counter = token_counters.counter + 1
RETURNING counter
`

// Increment counter in one statement, so concurrent increments are never lost
func (r *UserRepo) IncrementTokenCounter(ctx context.Context, userID uuid.UUID, purpose models.Purpose, initial int) (int, error) {
	rows, _ := r.DB.Query(ctx, incrementTokenCounter, userID, string(purpose), initial)
	counter, err := pgx.CollectOneRow(rows, pgx.RowTo[int])
	return counter, counterError(err)
}

func counterError(err error) error {
	var pgErr *pgconn.PgError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

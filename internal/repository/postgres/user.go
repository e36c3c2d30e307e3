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
	"github.com/nkiryanov/gopherreset/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, salt, hashed_password, email_confirmed)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, email, salt, hashed_password, email_confirmed, '{}'::jsonb
`

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), params.Email, params.Salt, params.HashedPassword, params.EmailConfirmed)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Token counters are aggregated into jsonb object {purpose: counter}
const selectUser = `
SELECT u.id, u.created_at, u.email, u.salt, u.hashed_password, u.email_confirmed,
       COALESCE(
           (SELECT jsonb_object_agg(tc.purpose, tc.counter) FROM token_counters tc WHERE tc.user_id = u.id),
           '{}'::jsonb
       )
FROM users u
`

const getUserByID = `-- name: getUserByID` + selectUser + `WHERE u.id = $1`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: getUserByEmail` + selectUser + `WHERE u.email = $1`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const lockUserByEmail = `-- name: lockUserByEmail
SELECT id FROM users WHERE email = $1 FOR UPDATE
`

// User is read by a separate statement after the lock is acquired,
// so its token counters include changes committed while waiting
func (r *UserRepo) GetUserByEmailForUpdate(ctx context.Context, email string) (models.User, error) {
	var id uuid.UUID

	err := r.DB.QueryRow(ctx, lockUserByEmail, email).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return models.User{}, apperrors.ErrUserNotFound
	case err != nil:
		return models.User{}, fmt.Errorf("db error: %w", err)
	}

	return r.GetUserByID(ctx, id)
}

const updatePassword = `-- name: UpdatePassword
UPDATE users
SET hashed_password = $2
WHERE id = $1
`

func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	tag, err := r.DB.Exec(ctx, updatePassword, id, hashedPassword)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

const setEmailConfirmed = `-- name: SetEmailConfirmed
UPDATE users
SET email_confirmed = $2
WHERE id = $1
`

func (r *UserRepo) SetEmailConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error {
	tag, err := r.DB.Exec(ctx, setEmailConfirmed, id, confirmed)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.Salt, &u.HashedPassword, &u.EmailConfirmed, &u.TokenCounter)
	return u, err
}

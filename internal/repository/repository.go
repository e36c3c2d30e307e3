package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/gopherreset/internal/models"
)

type CreateUserParams struct {
	Email          string
	Salt           string
	HashedPassword string
	EmailConfirmed bool
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user with its token counters
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Same as GetUserByEmail but locks the user until transaction ends
	// Concurrent callers are served one by one, each sees changes of the previous
	GetUserByEmailForUpdate(ctx context.Context, email string) (models.User, error)

	// Replace user password hash
	// If user not found must return apperrors.ErrUserNotFound
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error

	// Mark user email as confirmed
	SetEmailConfirmed(ctx context.Context, userID uuid.UUID, confirmed bool) error

	// Return token counter for purpose, creating it with 'initial' if it is absent
	// Must be atomic: concurrent callers get the same value
	EnsureTokenCounter(ctx context.Context, userID uuid.UUID, purpose models.Purpose, initial int) (int, error)

	// Increment token counter for purpose and return the new value
	// Absent counter is created with 'initial+1'
	// Must be atomic: concurrent increments are never lost
	IncrementTokenCounter(ctx context.Context, userID uuid.UUID, purpose models.Purpose, initial int) (int, error)
}

type Storage interface {
	User() UserRepo

	// Run fn in transaction
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

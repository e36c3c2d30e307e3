// Package tokens issues and verifies stateless purpose scoped tokens.
//
// A token is a JWT signed with the user salt. It embeds the user email, salt,
// password hash and the current generation counter of its purpose. The token
// is valid only while all of them match the user record, so changing password
// or incrementing the counter revokes every token issued before.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/gopherreset/internal/apperrors"
	"github.com/nkiryanov/gopherreset/internal/logger"
	"github.com/nkiryanov/gopherreset/internal/models"
)

const defaultSigningMethod = "HS256"

type Claims struct {
	jwt.RegisteredClaims
	Email          string         `json:"email"`
	Salt           string         `json:"salt"`
	Type           models.Purpose `json:"type"`
	TokenCounter   int            `json:"tokenCounter"`
	HashedPassword string         `json:"hashedPassword"`
}

// Persistent token counters
// Both methods must be atomic per (user, purpose)
type CounterStore interface {
	EnsureTokenCounter(ctx context.Context, userID uuid.UUID, purpose models.Purpose, initial int) (int, error)
	IncrementTokenCounter(ctx context.Context, userID uuid.UUID, purpose models.Purpose, initial int) (int, error)
}

// Token manager with sensible default
type Config struct {
	// JWT MAC (Message Authentication Code) algorithm
	// Only HMAC algorithms allowed cause user salt is the key
	// If not set than default is used
	Alg string

	// Clock to issue and verify tokens
	// If not set than time.Now is used
	Now func() time.Time
}

type Manager struct {
	alg    jwt.SigningMethod
	now    func() time.Time
	store  CounterStore
	logger logger.Logger
}

func New(cfg Config, store CounterStore, l logger.Logger) (*Manager, error) {
	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("signing method %q is not supported", cfg.Alg)
	}

	return &Manager{
		alg:    alg,
		now:    cfg.Now,
		store:  store,
		logger: l,
	}, nil
}

// Return manager copy that persists counters to another store (e.g. transaction)
func (m *Manager) WithStore(store CounterStore) *Manager {
	c := *m
	c.store = store
	return &c
}

// Issue token for user and purpose valid for ttl
// User token counter is created if it not exists yet and the user is updated in place
func (m *Manager) Issue(ctx context.Context, user *models.User, purpose models.Purpose, ttl time.Duration) (models.IssuedToken, error) {
	var issued models.IssuedToken

	if !purpose.Valid() {
		return issued, fmt.Errorf("can't issue token for %q: %w", purpose, apperrors.ErrUnknownPurpose)
	}
	if ttl <= 0 {
		return issued, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	counter, err := m.store.EnsureTokenCounter(ctx, user.ID, purpose, models.InitialGeneration)
	if err != nil {
		return issued, fmt.Errorf("error while saving token counter. Err: %w", err)
	}
	user.SetGeneration(purpose, counter)

	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Email:          user.Email,
			Salt:           user.Salt,
			Type:           purpose,
			TokenCounter:   counter,
			HashedPassword: user.HashedPassword,
		},
	)
	value, err := token.SignedString([]byte(user.Salt))
	if err != nil {
		return issued, fmt.Errorf("error while signing token. Err: %w", err)
	}

	m.logger.Info("new token issued", "user", user.Email, "purpose", purpose)

	return models.IssuedToken{Value: value, Purpose: purpose, ExpiresAt: expiresAt}, nil
}

// Verify token against current user state
// Never fails: any problem means the token is not valid
func (m *Manager) Verify(_ context.Context, token string, user models.User, purpose models.Purpose) bool {
	v := m.check(token, user, purpose)
	if v.Valid() {
		return true
	}

	switch v.Reason {
	case ReasonCounter:
		// Someone presents revoked token: worth to monitor
		m.logger.Warn(
			"user tried to verify invalidated token",
			"user", user.Email,
			"purpose", purpose,
			"presentedCounter", v.Presented,
			"actualCounter", v.Actual,
		)
	default:
		m.logger.Debug("token rejected", "user", user.Email, "purpose", purpose, "reason", v.Reason, "error", v.Err)
	}

	return false
}

// Invalidate all tokens of purpose issued for user
// User token counter is incremented and the user is updated in place
func (m *Manager) Invalidate(ctx context.Context, user *models.User, purpose models.Purpose) error {
	if !purpose.Valid() {
		return fmt.Errorf("can't invalidate tokens for %q: %w", purpose, apperrors.ErrUnknownPurpose)
	}

	counter, err := m.store.IncrementTokenCounter(ctx, user.ID, purpose, models.InitialGeneration)
	if err != nil {
		return fmt.Errorf("error while incrementing token counter. Err: %w", err)
	}
	user.SetGeneration(purpose, counter)

	m.logger.Info("tokens invalidated", "user", user.Email, "purpose", purpose, "generation", counter)

	return nil
}

// Return email the token claims to be issued for
// Signature is NOT verified: use it only to find the user to verify the token against
func Subject(token string) (string, error) {
	claims := &Claims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return "", fmt.Errorf("error while parsing token. Err: %w", errors.Join(apperrors.ErrTokenInvalid, err))
	}
	if claims.Email == "" {
		return "", fmt.Errorf("token has no subject: %w", apperrors.ErrTokenInvalid)
	}

	return claims.Email, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/gopherreset/internal/apperrors"
	"github.com/nkiryanov/gopherreset/internal/models"
	"github.com/nkiryanov/gopherreset/internal/service/tokens"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
	defaultTokenTTL         = 7 * 24 * time.Hour
)

type Config struct {
	// Header to read and write authentication token. "Authorization" if not set
	AccessHeaderName string

	// Auth scheme of access header. "Bearer" if not set
	AccessAuthScheme string

	// Authentication token lifetime. 7 days if not set
	TokenTTL time.Duration
}

type tokenManager interface {
	Issue(ctx context.Context, user *models.User, purpose models.Purpose, ttl time.Duration) (models.IssuedToken, error)
	Verify(ctx context.Context, token string, user models.User, purpose models.Purpose) bool
	Invalidate(ctx context.Context, user *models.User, purpose models.Purpose) error
}

type userService interface {
	CreateUser(ctx context.Context, email string, password string) (models.User, error)
	Login(ctx context.Context, email string, password string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Auth service
type AuthService struct {
	accessHeaderName string
	accessAuthScheme string
	tokenTTL         time.Duration

	tokens tokenManager
	users  userService
}

func NewService(cfg Config, tokens tokenManager, users userService) (*AuthService, error) {
	if cfg.AccessHeaderName == "" {
		cfg.AccessHeaderName = defaultAccessHeaderName
	}
	if cfg.AccessAuthScheme == "" {
		cfg.AccessAuthScheme = defaultAccessAuthScheme
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.TokenTTL < 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", cfg.TokenTTL)
	}

	return &AuthService{
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
		tokenTTL:         cfg.TokenTTL,
		tokens:           tokens,
		users:            users,
	}, nil
}

// Register new user and log it in
func (s *AuthService) Register(ctx context.Context, email string, password string) (models.IssuedToken, error) {
	user, err := s.users.CreateUser(ctx, email, password)
	if err != nil {
		return models.IssuedToken{}, err
	}

	return s.issue(ctx, &user)
}

// Return authentication token if credentials are valid
// Has to return apperrors.ErrUserNotFound if user not exists or password is wrong
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.IssuedToken, error) {
	user, err := s.users.Login(ctx, email, password)
	if err != nil {
		return models.IssuedToken{}, err
	}

	return s.issue(ctx, &user)
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (models.IssuedToken, error) {
	token, err := s.tokens.Issue(ctx, user, models.PurposeAuthentication, s.tokenTTL)
	if err != nil {
		return token, fmt.Errorf("token could not be issued. Err: %w", err)
	}
	return token, nil
}

// Return user the request is authenticated for
// Any problem with the token is reported as apperrors.ErrTokenInvalid
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (models.User, error) {
	header := r.Header.Get(s.accessHeaderName)

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) || token == "" {
		return models.User{}, fmt.Errorf("no %s token in request: %w", s.accessAuthScheme, apperrors.ErrTokenInvalid)
	}

	email, err := tokens.Subject(token)
	if err != nil {
		return models.User{}, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.User{}, fmt.Errorf("token user not exists: %w", apperrors.ErrTokenInvalid)
	case err != nil:
		return models.User{}, err
	}

	if !s.tokens.Verify(ctx, token, user, models.PurposeAuthentication) {
		return models.User{}, apperrors.ErrTokenInvalid
	}

	return user, nil
}

// Log user out on every device: all its authentication tokens become invalid
func (s *AuthService) Logout(ctx context.Context, user models.User) error {
	return s.tokens.Invalidate(ctx, &user, models.PurposeAuthentication)
}

// Write authentication token to response
func (s *AuthService) SetAuthToken(w http.ResponseWriter, token models.IssuedToken) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+token.Value)
}

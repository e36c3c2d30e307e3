package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/gopherreset/internal/handlers/middleware"
	"github.com/nkiryanov/gopherreset/internal/logger"
	"github.com/nkiryanov/gopherreset/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	resetService resetService,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService)

	apiuser := http.NewServeMux()

	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /logout", withAuth(handleLogout(authService, logger)))
	apiuser.Handle("GET /me", withAuth(handleUserMe()))

	apiuser.Handle("POST /resetPassword", handleResetPassword(resetService, logger))
	apiuser.Handle("POST /changePasswordWithToken", handleChangePasswordWithToken(resetService, logger))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with email and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, email string, password string) (models.IssuedToken, error)

	// Login user with email and password
	// Has to return apperrors.ErrUserNotFound if user not found or password is wrong
	Login(ctx context.Context, email string, password string) (models.IssuedToken, error)

	// Invalidate all authentication tokens of the user
	Logout(ctx context.Context, user models.User) error

	// Set authentication token to response
	SetAuthToken(w http.ResponseWriter, token models.IssuedToken)

	// Get request and return user if it authenticated or error
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)
}

type resetService interface {
	// Send password reset link to the user
	// Has to return apperrors.ErrUserNotFound or apperrors.ErrEmailNotConfirmed
	RequestReset(ctx context.Context, email string) error

	// Set new password if token is valid
	// Has to return apperrors.ErrUserNotFound or apperrors.ErrTokenInvalid
	ChangePasswordWithToken(ctx context.Context, email string, token string, newPassword string) error
}

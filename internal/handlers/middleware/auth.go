package middleware

import (
	"context"
	"net/http"

	"github.com/nkiryanov/gopherreset/internal/handlers/render"
	"github.com/nkiryanov/gopherreset/internal/handlers/userctx"
	"github.com/nkiryanov/gopherreset/internal/models"
)

type authService interface {
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)
}

// Put authenticated user to request context or respond 401
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

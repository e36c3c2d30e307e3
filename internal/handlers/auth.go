package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/gopherreset/internal/apperrors"
	"github.com/nkiryanov/gopherreset/internal/handlers/render"
	"github.com/nkiryanov/gopherreset/internal/handlers/userctx"
	"github.com/nkiryanov/gopherreset/internal/logger"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		token, err := authService.Register(r.Context(), data.Email, data.Password)

		switch {
		case err == nil:
			authService.SetAuthToken(w, token)
			render.JSON(w, messageResponse{Message: "User registered successfully"})
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[credentials](w, r)
		if err != nil {
			return
		}

		token, err := authService.Login(r.Context(), data.Email, data.Password)

		switch {
		case err == nil:
			authService.SetAuthToken(w, token)
			render.JSON(w, messageResponse{Message: "User logged in successfully"})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusUnauthorized)
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogout(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		err := authService.Logout(r.Context(), user)
		if err != nil {
			l.Error("Failed to logout user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, messageResponse{Message: "User logged out successfully"})
	})
}

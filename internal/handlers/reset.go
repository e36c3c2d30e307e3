package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/gopherreset/internal/apperrors"
	"github.com/nkiryanov/gopherreset/internal/handlers/render"
	"github.com/nkiryanov/gopherreset/internal/logger"
)

// Parameters are passed in query string, so the link from the email may be posted as is
// Email is not validated: any email without a user is answered with 409
func handleResetPassword(resetService resetService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := resetService.RequestReset(r.Context(), r.URL.Query().Get("email"))

		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: "password reset link sent to the email provided"})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "user not found", http.StatusConflict)
		case errors.Is(err, apperrors.ErrEmailNotConfirmed):
			render.ServiceError(w, "email not confirmed", http.StatusConflict)
		default:
			l.Error("Failed to request password reset", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleChangePasswordWithToken(resetService resetService, l logger.Logger) http.Handler {
	// Unknown email is 409 and bad token is 403, so only the new password is validated
	type request struct {
		Email       string `json:"email"`
		Token       string `json:"passwordResetToken"`
		NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := request{
			Email:       q.Get("email"),
			Token:       q.Get("passwordResetToken"),
			NewPassword: q.Get("newPassword"),
		}
		if err := render.Validate(w, data); err != nil {
			return
		}

		err := resetService.ChangePasswordWithToken(r.Context(), data.Email, data.Token, data.NewPassword)

		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: "password changed"})
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "user not found", http.StatusConflict)
		case errors.Is(err, apperrors.ErrTokenInvalid):
			render.ServiceError(w, "invalid password reset token", http.StatusForbidden)
		default:
			l.Error("Failed to change password", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

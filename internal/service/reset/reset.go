// Package reset implements password reset by e-mailed token.
package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/gopherreset/internal/apperrors"
	"github.com/nkiryanov/gopherreset/internal/logger"
	"github.com/nkiryanov/gopherreset/internal/models"
	"github.com/nkiryanov/gopherreset/internal/repository"
	"github.com/nkiryanov/gopherreset/internal/service/frontlink"
	"github.com/nkiryanov/gopherreset/internal/service/mailer"
	"github.com/nkiryanov/gopherreset/internal/service/password"
	"github.com/nkiryanov/gopherreset/internal/service/tokens"
)

const defaultTokenTTL = 24 * time.Hour

type Config struct {
	// Sender address of reset emails
	From string

	// Password reset token lifetime. 1 day if not set
	TokenTTL time.Duration

	// Hasher to hash new password. password.DefaultHasher if not set
	Hasher *password.Hasher
}

type linkBuilder interface {
	Build(route string, params map[string]string) string
}

type ResetService struct {
	from     string
	tokenTTL time.Duration
	hasher   *password.Hasher

	storage repository.Storage
	tokens  *tokens.Manager
	links   linkBuilder
	sender  mailer.Sender
	logger  logger.Logger
}

func NewService(
	cfg Config,
	storage repository.Storage,
	tm *tokens.Manager,
	links linkBuilder,
	sender mailer.Sender,
	l logger.Logger,
) (*ResetService, error) {
	if cfg.From == "" {
		return nil, errors.New("sender address must be set")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.TokenTTL < 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.Hasher == nil {
		cfg.Hasher = password.DefaultHasher
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &ResetService{
		from:     cfg.From,
		tokenTTL: cfg.TokenTTL,
		hasher:   cfg.Hasher,
		storage:  storage,
		tokens:   tm,
		links:    links,
		sender:   sender,
		logger:   l,
	}, nil
}

type letterData struct {
	Email     string
	Link      string
	ExpiresAt time.Time
}

// Send link with new password reset token to the user
// Reset tokens sent before become invalid
//
// Has to return apperrors.ErrUserNotFound if user not exists
// and apperrors.ErrEmailNotConfirmed if user email is not confirmed
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	var letter letterData

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		user, err := st.User().GetUserByEmailForUpdate(ctx, email)
		if err != nil {
			return err
		}
		if !user.EmailConfirmed {
			return apperrors.ErrEmailNotConfirmed
		}

		tm := s.tokens.WithStore(st.User())

		err = tm.Invalidate(ctx, &user, models.PurposePasswordReset)
		if err != nil {
			return err
		}

		token, err := tm.Issue(ctx, &user, models.PurposePasswordReset, s.tokenTTL)
		if err != nil {
			return err
		}

		letter = letterData{
			Email: user.Email,
			Link: s.links.Build(frontlink.RouteChangePassword, map[string]string{
				"email":              user.Email,
				"passwordResetToken": token.Value,
			}),
			ExpiresAt: token.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("can't issue password reset token. Err: %w", err)
	}

	msg, err := s.message(letter)
	if err != nil {
		return err
	}

	// Send only after commit
	err = s.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("can't send password reset email. Err: %w", err)
	}

	return nil
}

func (s *ResetService) message(letter letterData) (mailer.Message, error) {
	text, err := render(textBody, letter)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("error while rendering email text. Err: %w", err)
	}
	html, err := render(htmlBody, letter)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("error while rendering email html. Err: %w", err)
	}

	return mailer.Message{
		From:    s.from,
		To:      letter.Email,
		Subject: subject,
		Text:    text,
		HTML:    html,
	}, nil
}

// Set new password if reset token is valid
// Every authentication and password reset token of the user become invalid
//
// Has to return apperrors.ErrUserNotFound if user not exists
// and apperrors.ErrTokenInvalid if token is not valid
func (s *ResetService) ChangePasswordWithToken(ctx context.Context, email string, token string, newPassword string) error {
	if newPassword == "" {
		return errors.New("can't use empty password")
	}

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		user, err := st.User().GetUserByEmailForUpdate(ctx, email)
		if err != nil {
			return err
		}

		tm := s.tokens.WithStore(st.User())

		if !tm.Verify(ctx, token, user, models.PurposePasswordReset) {
			return apperrors.ErrTokenInvalid
		}

		user.HashedPassword = s.hasher.Hash(newPassword, user.Salt)
		err = st.User().UpdatePassword(ctx, user.ID, user.HashedPassword)
		if err != nil {
			return err
		}

		for _, purpose := range []models.Purpose{models.PurposeAuthentication, models.PurposePasswordReset} {
			err = tm.Invalidate(ctx, &user, purpose)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("can't change password. Err: %w", err)
	}

	s.logger.Info("password changed with reset token", "user", email)
	return nil
}

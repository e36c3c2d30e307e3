package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	ErrTokenInvalid   = errors.New("token is invalid")
	ErrUnknownPurpose = errors.New("unknown token purpose")
)

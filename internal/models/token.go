package models

import (
	"time"
)

// Purpose scopes token generation counter
type Purpose string

const (
	PurposeAuthentication Purpose = "authentication"
	PurposePasswordReset  Purpose = "password reset"

	// Generation assigned on the first issuance
	InitialGeneration = 1
)

// All known purposes
var Purposes = []Purpose{PurposeAuthentication, PurposePasswordReset}

func (p Purpose) Valid() bool {
	switch p {
	case PurposeAuthentication, PurposePasswordReset:
		return true
	default:
		return false
	}
}

func (p Purpose) String() string {
	return string(p)
}

type IssuedToken struct {
	Value     string
	Purpose   Purpose
	ExpiresAt time.Time
}

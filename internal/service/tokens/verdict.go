package tokens

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/gopherreset/internal/models"
)

// Why token was rejected
type Reason int

const (
	ReasonNone      Reason = iota // token is valid
	ReasonMalformed               // not parsed, wrong signature or expired
	ReasonEmail
	ReasonSalt
	ReasonPurpose
	ReasonPassword
	ReasonCounter // token generation is not the current one
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMalformed:
		return "malformed"
	case ReasonEmail:
		return "email"
	case ReasonSalt:
		return "salt"
	case ReasonPurpose:
		return "purpose"
	case ReasonPassword:
		return "hashedPassword"
	case ReasonCounter:
		return "counter"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Result of token check
type Verdict struct {
	Reason Reason

	// Parsing error for ReasonMalformed
	Err error

	// Counters for ReasonCounter
	Presented int
	Actual    int
}

func (v Verdict) Valid() bool {
	return v.Reason == ReasonNone
}

func (m *Manager) check(token string, user models.User, purpose models.Purpose) Verdict {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(user.Salt), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Verdict{Reason: ReasonMalformed, Err: err}
	}

	if claims.Email != user.Email {
		return Verdict{Reason: ReasonEmail}
	}
	if claims.Salt != user.Salt {
		return Verdict{Reason: ReasonSalt}
	}
	if claims.Type != purpose {
		return Verdict{Reason: ReasonPurpose}
	}
	if claims.HashedPassword != user.HashedPassword {
		return Verdict{Reason: ReasonPassword}
	}

	actual, ok := user.Generation(purpose)
	if !ok || claims.TokenCounter != actual {
		return Verdict{Reason: ReasonCounter, Presented: claims.TokenCounter, Actual: actual}
	}

	return Verdict{Reason: ReasonNone}
}

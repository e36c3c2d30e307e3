package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	Salt           string
	HashedPassword string
	EmailConfirmed bool

	// Current token generation per purpose
	// Purposes never issued are absent
	TokenCounter map[Purpose]int
}

// Return current generation for purpose and whether it was ever issued
func (u User) Generation(p Purpose) (int, bool) {
	counter, ok := u.TokenCounter[p]
	return counter, ok
}

// Set generation for purpose, allocating the map if needed
func (u *User) SetGeneration(p Purpose, counter int) {
	if u.TokenCounter == nil {
		u.TokenCounter = make(map[Purpose]int, len(Purposes))
	}
	u.TokenCounter[p] = counter
}

package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	SaltBytesLen = 16

	defaultTime    = 1
	defaultMemKiB  = 64 * 1024
	defaultThreads = 2
	keyLen         = 32
)

// Argon2id parameters
// Zero values are replaced with defaults
type Params struct {
	Time    uint32
	MemKiB  uint32
	Threads uint8
}

// Salted argon2id hasher
// Salt is stored per user and also signs user tokens, so it is a secret
type Hasher struct {
	params Params
}

// Will be used as default one if user not provide it's own
var DefaultHasher = NewHasher(Params{})

func NewHasher(p Params) *Hasher {
	if p.Time == 0 {
		p.Time = defaultTime
	}
	if p.MemKiB == 0 {
		p.MemKiB = defaultMemKiB
	}
	if p.Threads == 0 {
		p.Threads = defaultThreads
	}

	return &Hasher{params: p}
}

func (h *Hasher) Hash(password string, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), h.params.Time, h.params.MemKiB, h.params.Threads, keyLen)
	return hex.EncodeToString(key)
}

// Compare known hashedPassword and user provided password in constant time
func (h *Hasher) Compare(hashedPassword string, password string, salt string) bool {
	got := h.Hash(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hashedPassword)) == 1
}

// Generate random salt hex encoded
func NewSalt() (string, error) {
	b := make([]byte, SaltBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("error while generating salt. Err: %w", err)
	}

	return hex.EncodeToString(b), nil
}

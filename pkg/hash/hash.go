package hash

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes and verifies passwords. The zero value uses bcrypt.DefaultCost.
// Passwords are reduced to a SHA-256 digest before bcrypt, so any length is
// accepted and the whole password counts.
type Bcrypt struct {
	Cost int
}

func New(cost int) Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Bcrypt{Cost: cost}
}

// prehash returns base64(sha256(password)), 44 bytes with no NUL.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashbytes, err := bcrypt.GenerateFromPassword(prehash(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

// Verify reports whether password matches digest. A malformed digest is a mismatch.
func (b Bcrypt) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), prehash(password)) == nil
}

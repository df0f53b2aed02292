// Package auth — password hashing utilities.
//
// WHY BCRYPT?
// bcrypt is deliberately slow, which makes brute-forcing stolen hashes
// expensive. It also generates a random salt per hash and embeds it in the
// output, so two users with the same password get different hashes and no
// separate salt column is needed.
//
// NEVER store passwords in plain text or with fast hashes (MD5, SHA-256) —
// those fall to GPU rigs in minutes.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly ~250ms on a
// modern server — negligible for a login, brutal for an attacker. Tune it so
// hashing stays in the 200–300ms range on your production hardware.
const defaultCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected in tests —
// bcrypt's minimum cost 4 makes a test suite that hashes a lot of passwords
// run in milliseconds instead of minutes.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// newPasswordServiceWithCost is the unexported helper used by the tests in
// this package.
func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom (low)
// cost for tests in other packages. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// maxPasswordBytes is bcrypt's input limit. The algorithm only keys on the
// first 72 bytes; most bcrypt bindings silently truncate longer inputs, and
// the API accepts passwords up to 255 characters, so we truncate explicitly
// rather than reject — a user who registered with a 100-char password must
// be able to log in with it.
const maxPasswordBytes = 72

// truncatePassword caps the plaintext at what bcrypt actually keys on.
// Hash and Verify must apply the same cap or long passwords would hash one
// way and verify another.
func truncatePassword(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// Hash hashes the given plaintext with bcrypt. The output is self-contained
// (version, cost, salt, digest) and is what gets stored in the users table.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncatePassword(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// Returns nil on match. The comparison is constant-time internally, so it is
// safe against timing attacks.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

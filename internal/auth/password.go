// Package auth provides password hashing, bearer token issuance and the
// HTTP middleware that ties a request to an authenticated user.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User registers with username/email/password → password is bcrypt-hashed
// 2. Login verifies the hash and issues a signed JWT carrying the user id
// 3. The client stores the token and sends it as "Authorization: Bearer <t>"
// 4. Middleware validates the token, loads the user and puts it in the
//    request context for handlers to read
//
// The server keeps no session state — the signed token IS the session.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the bcrypt work factor used in production.
//
// Cost 12 takes roughly ~250ms on a modern server — negligible for a login,
// brutal for an attacker brute-forcing a stolen hash. Tune so hashing takes
// ~200-300ms on your production hardware.
const DefaultBcryptCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected: tests use
// bcrypt.MinCost to avoid paying ~250ms per hash, production uses 12.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the given bcrypt cost.
// Pass DefaultBcryptCost outside of tests.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password with bcrypt.
//
// The output is self-contained ($2a$12$<salt><hash>) — the salt and cost are
// embedded, so the hash string is all that needs storing.
//
// Returns an error for passwords longer than 72 bytes: bcrypt silently
// truncates beyond that, and silent truncation of a password is worse than
// an explicit rejection.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks a plaintext password against a stored bcrypt hash.
// Returns nil on a match. The comparison is constant-time internally, so
// response timing doesn't reveal how close a guess was.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

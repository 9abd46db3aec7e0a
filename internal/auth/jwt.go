package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// issuer identifies tokens minted by this server. Validation rejects tokens
// issued for other applications even when they share a signing key.
const issuer = "shiori"

// DefaultTokenLifetime is how long a bearer token stays valid.
//
// A diary is a daily-use app; forcing a login every 15 minutes would be
// hostile. Seven days matches the "stay signed in for a while, then
// re-authenticate" expectation. There is no refresh token — expiry simply
// sends the client back to the login form.
const DefaultTokenLifetime = 7 * 24 * time.Hour

// Token validation failures, distinguished so the HTTP layer can report
// "expired" (ask the user to log in again) separately from "invalid"
// (tampered or malformed — reject outright).
var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// TokenService issues and validates JWT bearer tokens.
//
// It holds the HMAC secret used for both signing and verification (HS256 is
// symmetric). The same secret must stay stable across restarts or every
// outstanding session dies with the process.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. Pass lifetime <= 0 to use DefaultTokenLifetime.
//
// The secret should be at least 32 bytes of random data in production:
//
//	JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, lifetime time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenService{secret: []byte(secret), lifetime: lifetime}, nil
}

// claims is the JWT payload. We embed jwt.RegisteredClaims and use the
// standard "sub" claim for the user id — no custom claim fields needed.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a bearer token for the given user id.
//
// The token carries:
//   - sub: the user id (formatted as decimal)
//   - iat/exp: issuance and expiry instants
//   - iss: "shiori"
//   - jti: a unique xid, so every token is distinguishable even when two
//     are minted in the same second for the same user
func (s *TokenService) Generate(userID int64) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			Issuer:    issuer,
			ID:        xid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// GenerateWithDuration creates a token with a custom expiry, bypassing the
// configured lifetime. Used by tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID int64, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
			ID:        xid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning the user id and
// the token's expiry instant.
//
// Checks performed (mostly by the jwt library):
//   - signature is valid for our secret
//   - not expired
//   - issuer is "shiori"
//   - algorithm is HS256 — jwt.WithValidMethods closes the classic
//     algorithm-confusion hole where an attacker supplies alg=none
//
// Failures map onto exactly two errors: ErrTokenExpired and ErrTokenInvalid.
func (s *TokenService) Validate(tokenStr string) (int64, time.Time, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, time.Time{}, ErrTokenExpired
		}
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, time.Time{}, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, time.Time{}, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	if c.ExpiresAt == nil {
		return 0, time.Time{}, fmt.Errorf("%w: missing expiry", ErrTokenInvalid)
	}

	return userID, c.ExpiresAt.Time, nil
}

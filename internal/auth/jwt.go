// Package auth provides JWT token generation and validation for the API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. Client registers (POST /api/users) or logs in (POST /api/auth)
// 2. Server verifies credentials and issues a signed JWT
// 3. The token travels in the x-auth-token header on every request
// 4. The RequireAuth middleware validates it and puts the caller's Identity
//    in the request context for handlers to read
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't need to store session
// data. Everything needed (user id, username, email, expiry) is inside the
// signed token, and the HMAC signature ensures nobody can tamper with it
// without the secret key.
//
// The token payload mirrors what handlers most often need about the caller
// ({_id, username, email}), so most requests never touch the users table at
// all. The flip side: a profile update changes that payload, which is why
// every successful PATCH /api/users/me reissues the token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenTTL is deliberately long: clients hold one token until they
// log out or change their profile (which reissues it).
const defaultTokenTTL = 30 * 24 * time.Hour

// Identity is the authenticated caller as encoded in the token.
type Identity struct {
	ID       string
	Username string
	Email    string
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations — keep it safe and rotate it
// periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. jwt.RegisteredClaims contributes the standard
// fields (Subject, ExpiresAt, IssuedAt, Issuer); Subject carries the user id,
// and the two custom claims carry the rest of the Identity.
type claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Generate creates and signs a JWT for the given identity with the default
// lifetime.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, fast, and fine for a
// single-server deployment.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, defaultTokenTTL)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests and anywhere a shorter-lived token is wanted.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Username: id.Username,
		Email:    id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    "microblog",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the Identity it
// encodes.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches "microblog" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks — without
//     jwt.WithValidMethods an attacker could try alg:"none")
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
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
		jwt.WithIssuer("microblog"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return Identity{
		ID:       c.Subject,
		Username: c.Username,
		Email:    c.Email,
	}, nil
}

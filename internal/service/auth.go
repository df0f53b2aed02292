// Package service — registration and login.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT) + PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Register: validate, reject duplicates, hash the password, issue a token
//   - Login: verify credentials without leaking which half was wrong
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new account and returns it together with a signed
// token, so the handler can set the x-auth-token header in one step.
//
// Duplicate checks run before the (slow) bcrypt hash: no point paying
// ~250ms for a username that's already taken.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, string, error) {
	if err := validateUsername(username); err != nil {
		return nil, "", err
	}
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if err := validatePassword(password); err != nil {
		return nil, "", err
	}

	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", apperror.Conflict("Username already registered")
	}

	taken, err = s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", apperror.Conflict("Email already registered")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(auth.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, token, nil
}

// Login verifies email+password and returns a signed token.
//
// SECURITY NOTE: "no such email" and "wrong password" both answer with the
// same message, so an attacker can't probe which addresses have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.ValidationFailed("email", "Invalid email or password")
		}
		return "", err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return "", apperror.ValidationFailed("password", "Invalid email or password")
	}

	token, err := s.tokens.Generate(auth.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))

	return token, nil
}

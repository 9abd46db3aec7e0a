// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER SHAPE:
//
//	Handler (HTTP)     → parses requests, writes responses
//	Service (business) → validates, enforces rules, orchestrates
//	Repository (data)  → reads/writes the database
//
// Services accept primitives and return domain models plus apperror
// variants; they know nothing about HTTP. Handlers translate the errors to
// status codes. Repositories are injected as interfaces so tests can swap
// in in-memory mocks.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/shiori/internal/apperror"
	"github.com/sakif/shiori/internal/auth"
	"github.com/sakif/shiori/internal/model"
	"github.com/sakif/shiori/internal/repository"
)

// UserService handles registration, authentication and account lookups.
type UserService struct {
	repo      repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(repo repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{
		repo:      repo,
		passwords: passwords,
		logger:    logger,
	}
}

// Register validates the input, checks uniqueness, hashes the password and
// persists a new user. The returned user never carries the hash.
//
// Uniqueness is checked here for friendly errors AND enforced by the
// database's UNIQUE constraints — a concurrent registration that slips
// between check and insert still comes back as the same Duplicate error.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailTaken(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email availability: %w", err)
	}
	if taken {
		return nil, apperror.Duplicate("email", "a user with this email already exists")
	}

	taken, err = s.repo.UsernameTaken(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("checking username availability: %w", err)
	}
	if taken {
		return nil, apperror.Duplicate("username", "this username is already taken")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	// Don't hand the hash back to the caller.
	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies email + password and stamps last_login on success.
//
// The error kinds stay distinct — ErrNotFound for an unknown email,
// ErrUnauthorized for a wrong password — because the API reports them
// differently (404 vs 401). Neither message says anything about hashing.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", "email and password are required")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Info("failed login attempt", slog.Int64("userID", user.ID))
		return nil, apperror.Unauthorized("invalid password")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		// A failed last-login stamp shouldn't block a valid login.
		s.logger.Error("updating last login failed",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		now := time.Now()
		user.LastLogin = &now
	}

	s.logger.Info("user authenticated", slog.Int64("userID", user.ID))

	user.PasswordHash = ""
	return user, nil
}

// GetByID returns the user without the credential field.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UsernameAvailable reports whether a well-formed username is free.
// Malformed usernames are a validation error, not "unavailable".
func (s *UserService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return false, err
	}

	taken, err := s.repo.UsernameTaken(ctx, username)
	if err != nil {
		return false, fmt.Errorf("checking username availability: %w", err)
	}
	return !taken, nil
}

// EmailAvailable reports whether a well-formed email is free.
func (s *UserService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := ValidateEmail(email); err != nil {
		return false, err
	}

	taken, err := s.repo.EmailTaken(ctx, email)
	if err != nil {
		return false, fmt.Errorf("checking email availability: %w", err)
	}
	return !taken, nil
}

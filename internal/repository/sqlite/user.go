package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/shiori/internal/apperror"
	"github.com/sakif/shiori/internal/model"
	"github.com/sakif/shiori/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user row and fills in ID and timestamps.
//
// The service layer checks availability before calling this, but two
// registrations can still race between check and insert — the UNIQUE
// constraints are the real guarantee, so constraint violations are
// translated into the same Duplicate errors the pre-check produces.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateUserError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id

	return nil
}

// duplicateUserError translates a users UNIQUE violation into the matching
// apperror, or returns nil when the error is something else.
func duplicateUserError(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	if strings.Contains(msg, "users.email") {
		return apperror.Duplicate("email", "a user with this email already exists")
	}
	if strings.Contains(msg, "users.username") {
		return apperror.Duplicate("username", "this username is already taken")
	}
	return nil
}

// GetUserByID retrieves a user by id, without the password hash.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, created_at, updated_at, last_login
		 FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}

	return &u, nil
}

// GetUserByEmail retrieves a user by email, INCLUDING the password hash.
// This is the lookup behind authentication — the only code path that needs
// the hash. Everything else uses the hash-free lookups.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, updated_at, last_login
		 FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	return &u, nil
}

// GetUserByUsername retrieves a user by username, without the password hash.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, created_at, updated_at, last_login
		 FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username: %w", err)
	}

	return &u, nil
}

// UpdateLastLogin stamps last_login (and updated_at) with the current time.
func (db *DB) UpdateLastLogin(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating last login for user %d: %w", id, err)
	}
	return nil
}

// EmailTaken reports whether any user already has this email.
func (db *DB) EmailTaken(ctx context.Context, email string) (bool, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE email = ?`, email,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking email: %w", err)
	}
	return true, nil
}

// UsernameTaken reports whether any user already has this username.
func (db *DB) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE username = ?`, username,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username: %w", err)
	}
	return true, nil
}

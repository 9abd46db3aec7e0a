// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage is the concrete implementation;
// tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/shiori/internal/model"
)

// UserRepository owns user identity rows.
//
// Lookups return the user WITHOUT the password hash except GetUserByEmail,
// which the authentication path uses for hash verification and which must
// therefore include it. Callers of GetUserByEmail are responsible for not
// passing the result onward with the hash still populated.
type UserRepository interface {
	// CreateUser inserts a new user and fills in ID and timestamps.
	// Returns apperror.ErrDuplicate when the username or email is taken.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUserByID returns the user without the password hash.
	// Returns apperror.ErrNotFound when no such user exists.
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	// GetUserByEmail returns the user INCLUDING the password hash.
	// Returns apperror.ErrNotFound when no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// GetUserByUsername returns the user without the password hash.
	// Returns apperror.ErrNotFound when no such user exists.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// UpdateLastLogin stamps the user's last_login with the current time.
	UpdateLastLogin(ctx context.Context, id int64) error

	// EmailTaken reports whether any user already has this email.
	EmailTaken(ctx context.Context, email string) (bool, error)

	// UsernameTaken reports whether any user already has this username.
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

// DiaryStats are the raw aggregates behind the statistics endpoint.
// The service layer derives the rounded average from these.
type DiaryStats struct {
	TotalDays    int
	TotalEntries int
	FirstDay     *string
	LastDay      *string
}

// DiaryRepository owns day and entry rows. Every method takes the owning
// userID and must never observe or mutate another user's rows.
type DiaryRepository interface {
	// ListDays returns one summary per day, ordered by date descending.
	// DisplayDate is left empty — it's derived by the service on read,
	// because "Today" yesterday is "Yesterday" today.
	ListDays(ctx context.Context, userID int64) ([]model.DaySummary, error)

	// GetDayEntries returns the entries for one date, ordered by time
	// ascending. An empty slice (not an error) when the day has no rows.
	GetDayEntries(ctx context.Context, userID int64, date string) ([]model.Entry, error)

	// EnsureDay creates the day row if it doesn't exist yet. Idempotent:
	// concurrent calls for the same (date, user) leave exactly one row.
	EnsureDay(ctx context.Context, userID int64, date, displayDate string) error

	// InsertEntry appends an entry, filling in ID and timestamps.
	// The day row for (entry.Date, entry.UserID) must already exist.
	InsertEntry(ctx context.Context, entry *model.Entry) error

	// Statistics returns the raw diary aggregates for one user.
	Statistics(ctx context.Context, userID int64) (*DiaryStats, error)

	// ExportAll returns every entry grouped by date, times ascending.
	ExportAll(ctx context.Context, userID int64) (map[string][]model.Entry, error)

	// DeleteAll removes every day and entry belonging to one user.
	// A development affordance — deliberately scoped by user id and not
	// exposed over HTTP.
	DeleteAll(ctx context.Context, userID int64) error
}

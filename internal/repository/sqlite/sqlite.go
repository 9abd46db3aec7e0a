// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite?
// It's a pure Go translation of SQLite — no CGo, no C compiler, trivial
// cross-compilation. The driver registers itself with database/sql under
// the name "sqlite" via the blank import below.
//
// The database is a single file (or ":memory:" for tests). One process, one
// connection pool; SQLite's own locking serialises conflicting writes, which
// is all this workload needs — the only write contention in the system is
// two near-simultaneous "create today's day row" calls, and the days table's
// composite primary key plus INSERT OR IGNORE makes that race harmless.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB wraps a sql.DB connection pool and implements both
// repository.UserRepository and repository.DiaryRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/diary.db" → file-based, persistent
//   - ":memory:"      → throwaway in-memory DB, ideal for tests
//
// Pragmas ride in the DSN so the driver applies them to EVERY pooled
// connection. PRAGMA statements run with conn.Exec would only reach the one
// connection the pool happened to hand out — leaving foreign keys off and
// no busy timeout on the rest.
//
//	busy_timeout — a connection that hits the write lock waits (up to 5s)
//	               instead of failing with SQLITE_BUSY; two simultaneous
//	               "create today's day row" requests both succeed
//	journal_mode — WAL lets reads proceed while a write is in flight
//	foreign_keys — OFF by default in SQLite; the cascades need it ON
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each pool connection to ":memory:" would open its own empty database.
	// One connection keeps tests looking at the same data.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Fail fast on a bad path or permissions rather than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New —
// it flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent
// so it's safe to run on every startup.
//
// Three tables:
//
//	users   — one row per account; username and email are each UNIQUE
//	days    — one row per (date, user); exists iff the user wrote that day
//	          (or read "today", which lazily creates it)
//	entries — the diary notes; cascade-deleted with their day or user
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login    DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS days (
			date         TEXT NOT NULL,
			user_id      INTEGER NOT NULL,
			display_date TEXT NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (date, user_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_days_user ON days(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating days table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			date       TEXT NOT NULL,
			user_id    INTEGER NOT NULL,
			time       TEXT NOT NULL,
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (date, user_id) REFERENCES days(date, user_id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_entries_user_date ON entries(user_id, date);
		CREATE INDEX IF NOT EXISTS idx_entries_time ON entries(date, time);
	`)
	if err != nil {
		return fmt.Errorf("creating entries table: %w", err)
	}

	return nil
}

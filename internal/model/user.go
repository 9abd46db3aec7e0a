// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — the `json:"..."` tags tell
// encoding/json how each field appears on the wire.
package model

import "time"

// User represents a registered diary account.
//
// WHY ID int64?
// Users are keyed by a SQLite INTEGER PRIMARY KEY AUTOINCREMENT. The id is
// opaque to clients — it appears in responses and inside bearer tokens, but
// nothing should parse meaning out of it.
//
// PasswordHash is tagged `json:"-"` so it can NEVER leak into a response,
// even if a handler serialises the struct directly. Lookups that don't need
// the hash leave it empty.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"` // nil until the first login
}

package service

import (
	"regexp"

	"github.com/sakif/shiori/internal/apperror"
)

// Validation rules for registration input.
//
// These are pure functions over strings — no database, no clock — so
// they're unit-testable in isolation and behave identically wherever
// they're called from (registration, availability checks).
var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	letterRe   = regexp.MustCompile(`[A-Za-z]`)
	digitRe    = regexp.MustCompile(`\d`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe     = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// ValidateUsername checks length (3-20) and charset (letters, digits,
// underscore).
func ValidateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if !usernameRe.MatchString(username) {
		return apperror.ValidationFailed("username",
			"username must be 3-20 characters of letters, digits and underscores")
	}
	return nil
}

// ValidateEmail checks basic email syntax. It's the classic
// something@something.something check, not an RFC 5322 parser — real
// verification would be a confirmation email, which is out of scope.
func ValidateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if !emailRe.MatchString(email) {
		return apperror.ValidationFailed("email", "invalid email format")
	}
	return nil
}

// ValidatePassword requires at least 6 characters with at least one letter
// and one digit.
func ValidatePassword(password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			"password must be at least 6 characters")
	}
	if !letterRe.MatchString(password) || !digitRe.MatchString(password) {
		return apperror.ValidationFailed("password",
			"password must contain both letters and digits")
	}
	return nil
}

// ValidateDate checks the ISO YYYY-MM-DD shape of a date parameter.
func ValidateDate(date string) error {
	if !dateRe.MatchString(date) {
		return apperror.ValidationFailed("date", "invalid date format, use YYYY-MM-DD")
	}
	return nil
}

// validTime reports whether s is a well-formed HH:MM time of day.
func validTime(s string) bool {
	return timeRe.MatchString(s)
}

package model

import "time"

// Entry is a single diary note. Entries are write-once: they are created
// for the current day and never updated or deleted afterwards.
//
// Date is the calendar day in ISO form ("2025-08-29"); Time is the
// time-of-day in "HH:MM". Both are stored as text — the diary's notion of
// "when" is the server's local calendar, not an absolute instant.
type Entry struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	UserID    int64     `json:"-"` // never serialised; scoping is implicit
	Time      string    `json:"time"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Day is a per-user, per-date bucket of entries, ordered by time ascending.
//
// A Day can be empty — reading a date with no rows returns a Day with an
// empty Entries slice, not an error. CurrentTime is only populated on the
// "today" read so the client can prefill the entry form.
type Day struct {
	Date        string  `json:"date"`
	DisplayDate string  `json:"displayDate"`
	Entries     []Entry `json:"entries"`
	CurrentTime string  `json:"currentTime,omitempty"`
}

// DaySummary is one row of the days list: the date, its display label,
// how many entries it holds and the most recent entry (nil when empty).
type DaySummary struct {
	Date         string `json:"date"`
	DisplayDate  string `json:"displayDate"`
	EntriesCount int    `json:"entriesCount"`
	LastEntry    *Entry `json:"lastEntry"`
}

// Statistics aggregates a user's whole diary.
// FirstDay/LastDay are nil when the diary is empty.
type Statistics struct {
	TotalDays            int     `json:"totalDays"`
	TotalEntries         int     `json:"totalEntries"`
	FirstDay             *string `json:"firstDay"`
	LastDay              *string `json:"lastDay"`
	AverageEntriesPerDay float64 `json:"averageEntriesPerDay"` // rounded to 1 decimal
}

// Export is the full-diary dump returned by the export endpoint.
// Data maps each date to that day's entries, ordered by time ascending.
type Export struct {
	ExportDate time.Time          `json:"exportDate"`
	User       ExportUser         `json:"user"`
	Data       map[string][]Entry `json:"data"`
}

// ExportUser is the slim user identity embedded in an Export.
type ExportUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

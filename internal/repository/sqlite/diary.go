package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/shiori/internal/model"
	"github.com/sakif/shiori/internal/repository"
)

// compile-time check that *DB implements repository.DiaryRepository
var _ repository.DiaryRepository = (*DB)(nil)

// ListDays returns one summary per day for the user, newest first.
//
// The LEFT JOIN keeps days with zero entries (possible when "today" was
// read but never written to) — they appear with entriesCount 0 and no last
// entry. MAX(e.id) identifies the most recently written entry because entry
// ids are monotonically increasing.
func (db *DB) ListDays(ctx context.Context, userID int64) ([]model.DaySummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT d.date, COUNT(e.id), MAX(e.id)
		 FROM days d
		 LEFT JOIN entries e ON d.date = e.date AND d.user_id = e.user_id
		 WHERE d.user_id = ?
		 GROUP BY d.date
		 ORDER BY d.date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing days for user %d: %w", userID, err)
	}
	defer rows.Close()

	summaries := []model.DaySummary{}
	lastIDs := []sql.NullInt64{}
	for rows.Next() {
		var s model.DaySummary
		var lastID sql.NullInt64
		if err := rows.Scan(&s.Date, &s.EntriesCount, &lastID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning day summary: %w", err)
		}
		summaries = append(summaries, s)
		lastIDs = append(lastIDs, lastID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating day summaries: %w", err)
	}

	// Resolve last entries after the rows are closed — SQLite dislikes
	// nested queries on the same connection while a result set is open.
	for i, lastID := range lastIDs {
		if !lastID.Valid {
			continue
		}
		entry, err := db.getEntryByID(ctx, userID, lastID.Int64)
		if err != nil {
			return nil, err
		}
		summaries[i].LastEntry = entry
	}

	return summaries, nil
}

// getEntryByID fetches one entry, scoped by user id so one user's day list
// can never surface another user's entry.
func (db *DB) getEntryByID(ctx context.Context, userID, entryID int64) (*model.Entry, error) {
	var e model.Entry
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, date, user_id, time, text, created_at, updated_at
		 FROM entries WHERE id = ? AND user_id = ?`,
		entryID, userID,
	).Scan(&e.ID, &e.Date, &e.UserID, &e.Time, &e.Text, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting entry %d: %w", entryID, err)
	}
	return &e, nil
}

// GetDayEntries returns a day's entries ordered by time ascending.
// A date with no rows yields an empty slice — absence is a valid empty day.
func (db *DB) GetDayEntries(ctx context.Context, userID int64, date string) ([]model.Entry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, date, user_id, time, text, created_at, updated_at
		 FROM entries
		 WHERE date = ? AND user_id = ?
		 ORDER BY time ASC, id ASC`,
		date, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting entries for %s: %w", date, err)
	}
	defer rows.Close()

	entries := []model.Entry{}
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.UserID, &e.Time, &e.Text, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating entries: %w", err)
	}

	return entries, nil
}

// EnsureDay creates the day row for (date, userID) if it doesn't exist.
//
// INSERT OR IGNORE rides on the composite primary key: two concurrent calls
// both succeed, exactly one row exists afterwards, and neither caller can
// tell which insert won. No check-then-insert race window.
func (db *DB) EnsureDay(ctx context.Context, userID int64, date, displayDate string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO days (date, user_id, display_date)
		 VALUES (?, ?, ?)`,
		date, userID, displayDate,
	)
	if err != nil {
		return fmt.Errorf("sqlite: ensuring day %s for user %d: %w", date, userID, err)
	}
	return nil
}

// InsertEntry appends a new entry and fills in its ID and timestamps.
// There is deliberately no UpdateEntry or DeleteEntry — entries are
// write-once from the moment they are created.
func (db *DB) InsertEntry(ctx context.Context, entry *model.Entry) error {
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO entries (date, user_id, time, text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Date,
		entry.UserID,
		entry.Time,
		entry.Text,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting entry for %s: %w", entry.Date, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// Statistics aggregates the user's entries in a single query.
// MIN/MAX over zero rows scan as NULL, hence the NullString dance.
func (db *DB) Statistics(ctx context.Context, userID int64) (*repository.DiaryStats, error) {
	var stats repository.DiaryStats
	var firstDay, lastDay sql.NullString

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT date), COUNT(*), MIN(date), MAX(date)
		 FROM entries WHERE user_id = ?`,
		userID,
	).Scan(&stats.TotalDays, &stats.TotalEntries, &firstDay, &lastDay)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting statistics for user %d: %w", userID, err)
	}

	if firstDay.Valid {
		stats.FirstDay = &firstDay.String
	}
	if lastDay.Valid {
		stats.LastDay = &lastDay.String
	}

	return &stats, nil
}

// ExportAll returns every entry the user has, grouped by date with each
// day's entries in time order. No pagination — an export is a full dump.
func (db *DB) ExportAll(ctx context.Context, userID int64) (map[string][]model.Entry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, date, user_id, time, text, created_at, updated_at
		 FROM entries
		 WHERE user_id = ?
		 ORDER BY date ASC, time ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: exporting entries for user %d: %w", userID, err)
	}
	defer rows.Close()

	data := map[string][]model.Entry{}
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.UserID, &e.Time, &e.Text, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning export entry: %w", err)
		}
		data[e.Date] = append(data[e.Date], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating export entries: %w", err)
	}

	return data, nil
}

// DeleteAll wipes one user's diary. Entries first, then days — explicit
// rather than leaning on cascade, so it behaves the same even on a
// connection where foreign_keys didn't get switched on.
func (db *DB) DeleteAll(ctx context.Context, userID int64) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM entries WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("sqlite: deleting entries for user %d: %w", userID, err)
	}
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM days WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("sqlite: deleting days for user %d: %w", userID, err)
	}
	return nil
}

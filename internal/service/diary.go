package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/shiori/internal/apperror"
	"github.com/sakif/shiori/internal/model"
	"github.com/sakif/shiori/internal/repository"
)

// MaxEntryTextLength is the practical limit on a single entry's text,
// counted in characters (runes), after trimming.
const MaxEntryTextLength = 10000

// DiaryService implements the diary rules: days bucket entries per user,
// entries are appended only to "today", and nothing is ever edited or
// deleted through the API.
//
// The clock is injected (now func) so date-sensitive behaviour — what
// counts as "today", which label a date gets — is deterministic in tests.
type DiaryService struct {
	repo   repository.DiaryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewDiaryService creates a DiaryService using the system clock.
func NewDiaryService(repo repository.DiaryRepository, logger *slog.Logger) *DiaryService {
	return &DiaryService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// NewDiaryServiceWithClock creates a DiaryService with a custom clock.
// Tests use this to pin "today".
func NewDiaryServiceWithClock(repo repository.DiaryRepository, logger *slog.Logger, now func() time.Time) *DiaryService {
	return &DiaryService{
		repo:   repo,
		logger: logger,
		now:    now,
	}
}

// DATE DERIVATION
//
// "Today" is the calendar date in the server's local timezone at call time.
// The same derivation feeds listing, reading and creating, so an entry
// created through CreateTodayEntry always lands on the date GetToday reads.

// dateOf formats a time as the diary's ISO calendar date.
func dateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// timeOf formats a time as the diary's HH:MM time of day.
func timeOf(t time.Time) string {
	return t.Format("15:04")
}

// DisplayDate derives the human label for a date relative to now:
// "Today", "Yesterday", or a long-form date like "August 29, 2026".
func DisplayDate(date string, now time.Time) string {
	switch date {
	case dateOf(now):
		return "Today"
	case dateOf(now.AddDate(0, 0, -1)):
		return "Yesterday"
	}

	parsed, err := time.ParseInLocation("2006-01-02", date, now.Location())
	if err != nil {
		// Not a real date — show it as-is rather than invent a label.
		return date
	}
	return parsed.Format("January 2, 2006")
}

// ListDays returns the user's days newest-first, with display labels
// derived against the current clock.
func (s *DiaryService) ListDays(ctx context.Context, userID int64) ([]model.DaySummary, error) {
	days, err := s.repo.ListDays(ctx, userID)
	if err != nil {
		s.logger.Error("listing days failed",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing days: %w", err)
	}

	now := s.now()
	for i := range days {
		days[i].DisplayDate = DisplayDate(days[i].Date, now)
	}

	return days, nil
}

// GetDay returns one day with its entries in time order. A date with no
// rows returns an empty day, never an error — an unwritten day is a valid,
// empty day.
func (s *DiaryService) GetDay(ctx context.Context, userID int64, date string) (*model.Day, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	entries, err := s.repo.GetDayEntries(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("getting day %s: %w", date, err)
	}

	return &model.Day{
		Date:        date,
		DisplayDate: DisplayDate(date, s.now()),
		Entries:     entries,
	}, nil
}

// GetToday computes today's date, lazily creates its day row, and returns
// it with the current entries and the current time of day (for prefilling
// the entry form).
func (s *DiaryService) GetToday(ctx context.Context, userID int64) (*model.Day, error) {
	now := s.now()
	today := dateOf(now)

	if err := s.repo.EnsureDay(ctx, userID, today, DisplayDate(today, now)); err != nil {
		return nil, fmt.Errorf("ensuring today: %w", err)
	}

	entries, err := s.repo.GetDayEntries(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("getting today's entries: %w", err)
	}

	return &model.Day{
		Date:        today,
		DisplayDate: "Today",
		Entries:     entries,
		CurrentTime: timeOf(now),
	}, nil
}

// CreateTodayEntry appends a new entry to today's day. This is the ONLY
// entry-mutating operation in the system: the date is always today's
// (callers cannot pick one), and there is no edit or delete for entries of
// any age.
//
// timeOfDay is optional; when empty the current HH:MM is used.
func (s *DiaryService) CreateTodayEntry(ctx context.Context, userID int64, text, timeOfDay string) (*model.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "entry text cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxEntryTextLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("entry text is too long (maximum %d characters)", MaxEntryTextLength))
	}

	now := s.now()
	today := dateOf(now)

	if timeOfDay == "" {
		timeOfDay = timeOf(now)
	} else if !validTime(timeOfDay) {
		return nil, apperror.ValidationFailed("time", "time must be HH:MM")
	}

	if err := s.repo.EnsureDay(ctx, userID, today, DisplayDate(today, now)); err != nil {
		return nil, fmt.Errorf("ensuring today: %w", err)
	}

	entry := &model.Entry{
		Date:   today,
		UserID: userID,
		Time:   timeOfDay,
		Text:   text,
	}
	if err := s.repo.InsertEntry(ctx, entry); err != nil {
		s.logger.Error("creating entry failed",
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating entry: %w", err)
	}

	s.logger.Info("entry created",
		slog.Int64("userID", userID),
		slog.Int64("entryID", entry.ID),
		slog.String("date", entry.Date),
	)

	return entry, nil
}

// Statistics aggregates the user's diary. The average is rounded to one
// decimal and is exactly 0 for an empty diary.
func (s *DiaryService) Statistics(ctx context.Context, userID int64) (*model.Statistics, error) {
	raw, err := s.repo.Statistics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting statistics: %w", err)
	}

	stats := &model.Statistics{
		TotalDays:    raw.TotalDays,
		TotalEntries: raw.TotalEntries,
		FirstDay:     raw.FirstDay,
		LastDay:      raw.LastDay,
	}
	if raw.TotalDays > 0 {
		stats.AverageEntriesPerDay = math.Round(float64(raw.TotalEntries)/float64(raw.TotalDays)*10) / 10
	}

	return stats, nil
}

// Export produces the full-diary dump for download: every entry grouped by
// date, stamped with the export instant and the owning user's identity.
func (s *DiaryService) Export(ctx context.Context, user *model.User) (*model.Export, error) {
	data, err := s.repo.ExportAll(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("exporting diary: %w", err)
	}

	return &model.Export{
		ExportDate: s.now(),
		User: model.ExportUser{
			ID:       user.ID,
			Username: user.Username,
		},
		Data: data,
	}, nil
}

// ClearAll wipes one user's diary. A development affordance — it is not
// routed over HTTP and always requires an explicit user id.
func (s *DiaryService) ClearAll(ctx context.Context, userID int64) error {
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("clearing diary: %w", err)
	}
	s.logger.Warn("diary cleared", slog.Int64("userID", userID))
	return nil
}

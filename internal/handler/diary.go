package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/shiori/internal/apperror"
	"github.com/sakif/shiori/internal/auth"
	"github.com/sakif/shiori/internal/service"
)

// DiaryHandler serves the diary endpoints. Every route here sits behind
// RequireAuth: the user comes from the request context and all service
// calls are scoped by that user's id — there is no way to name another
// user in a diary request.
type DiaryHandler struct {
	diary  *service.DiaryService
	logger *slog.Logger
}

// NewDiaryHandler creates a DiaryHandler.
func NewDiaryHandler(diary *service.DiaryService, logger *slog.Logger) *DiaryHandler {
	return &DiaryHandler{
		diary:  diary,
		logger: logger,
	}
}

// HandleListDays returns the day summaries, newest first.
//
// HTTP: GET /api/days (protected)
func (h *DiaryHandler) HandleListDays(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	days, err := h.diary.ListDays(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("listing days failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, days)
}

// HandleGetDay returns one day's entries, time ascending.
//
// HTTP: GET /api/days/{date} (protected)
//
// The date must match YYYY-MM-DD or the request is rejected with 400. A
// valid date with no entries is a 200 with an empty entries array.
func (h *DiaryHandler) HandleGetDay(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	day, err := h.diary.GetDay(r.Context(), user.ID, r.PathValue("date"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, day)
}

// HandleGetToday returns today's day (creating its row if needed) plus the
// current time of day.
//
// HTTP: GET /api/today (protected)
func (h *DiaryHandler) HandleGetToday(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	day, err := h.diary.GetToday(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("getting today failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, day)
}

// HandleCreateEntry appends an entry to today.
//
// HTTP: POST /api/today/entries (protected)
// Body: {"text": "...", "time": "HH:MM" (optional)}
//
// Whatever date the client is looking at, the entry lands on the server's
// "today" — there is no date in the request to honour. This is the only
// write operation the diary exposes for entries.
func (h *DiaryHandler) HandleCreateEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req struct {
		Text string `json:"text"`
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	entry, err := h.diary.CreateTodayEntry(r.Context(), user.ID, req.Text, req.Time)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// HandleStatistics returns the diary aggregates.
//
// HTTP: GET /api/statistics (protected)
func (h *DiaryHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	stats, err := h.diary.Statistics(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("getting statistics failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleExport returns the full diary dump as a downloadable JSON file.
//
// HTTP: GET /api/export (protected)
//
// Content-Disposition marks it as an attachment so the browser saves it
// instead of rendering it.
func (h *DiaryHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	export, err := h.diary.Export(r.Context(), user)
	if err != nil {
		h.logger.Error("export failed",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("shiori-diary-export-%s-%s.json",
		user.Username, export.ExportDate.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	writeJSON(w, http.StatusOK, export)

	h.logger.Info("diary exported",
		slog.Int64("userID", user.ID),
		slog.Int("days", len(export.Data)),
	)
}

// HandleAPIInfo describes the API for anonymous discovery.
//
// HTTP: GET /
func HandleAPIInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":           "Shiori Diary API",
		"database":       "SQLite",
		"authentication": "JWT bearer tokens",
		"publicEndpoints": []string{
			"GET  /                        - API info",
			"POST /api/auth/register       - create an account",
			"POST /api/auth/login          - log in",
			"POST /api/auth/validate       - check a token",
			"POST /api/auth/check-username - username availability",
			"POST /api/auth/check-email    - email availability",
		},
		"protectedEndpoints": []string{
			"GET  /api/auth/me             - current user",
			"POST /api/auth/logout         - log out (client-side discard)",
			"GET  /api/days                - list days",
			"GET  /api/days/{date}         - one day's entries",
			"GET  /api/today               - today's day",
			"POST /api/today/entries       - append an entry to today",
			"GET  /api/statistics          - diary statistics",
			"GET  /api/export              - full JSON export",
		},
	})
}

// HandleNotFound is the JSON 404 for unknown API routes.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "route not found",
	})
}

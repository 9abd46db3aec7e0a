package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/shiori/internal/apperror"
	"github.com/sakif/shiori/internal/auth"
	"github.com/sakif/shiori/internal/model"
	"github.com/sakif/shiori/internal/service"
)

// AuthHandler serves registration, login and the token/account helper
// endpoints under /api/auth.
type AuthHandler struct {
	users  *service.UserService
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *service.UserService, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// authResponse is the shape returned by register and login: the account
// (never including the credential) plus a fresh bearer token.
type authResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
	Token   string      `json:"token"`
}

// HandleRegister creates a new account and logs it straight in.
//
// HTTP: POST /api/auth/register
// Body: {"username": "...", "email": "...", "password": "..."}
//
//	201 — account created, body carries user + token
//	400 — validation failure (field details in the message)
//	409 — username or email already taken
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) && !errors.Is(err, apperror.ErrDuplicate) {
			h.logger.Error("registration failed", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		h.logger.Error("token generation failed",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "registration successful",
		User:    user,
		Token:   token,
	})
}

// HandleLogin authenticates an existing account.
//
// HTTP: POST /api/auth/login
// Body: {"email": "...", "password": "..."}
//
//	200 — body carries user + token
//	400 — missing or malformed email
//	404 — no account with that email
//	401 — wrong password
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		h.logger.Error("token generation failed",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "login successful",
		User:    user,
		Token:   token,
	})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/auth/me (protected)
//
// The frontend calls this on load to confirm its stored token still works
// and to refresh the cached profile.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but be safe.
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]*model.User{"user": user})
}

// publicUser is the identity embedded in a validate response: id, username
// and email, nothing else.
type publicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// validateResponse is the body of POST /api/auth/validate.
type validateResponse struct {
	Valid     bool        `json:"valid"`
	User      *publicUser `json:"user,omitempty"`
	ExpiresAt string      `json:"expiresAt,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// HandleValidate checks a caller-supplied token without requiring auth.
//
// HTTP: POST /api/auth/validate
// Body: {"token": "..."}
//
// The client uses this to decide whether a stored session is still alive
// before showing the diary. Replies 200 {valid:true, user, expiresAt} or
// 401 {valid:false, error} — never a bare error shape, so the client has
// one decode path.
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "token is required",
		})
		return
	}

	userID, expiresAt, err := h.tokens.Validate(req.Token)
	if err != nil {
		reason := "token is invalid"
		if errors.Is(err, auth.ErrTokenExpired) {
			reason = "token expired"
		}
		writeJSON(w, http.StatusUnauthorized, validateResponse{Valid: false, Error: reason})
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, validateResponse{Valid: false, Error: "user no longer exists"})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:     true,
		User:      &publicUser{ID: user.ID, Username: user.Username, Email: user.Email},
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// HandleLogout acknowledges a logout.
//
// HTTP: POST /api/auth/logout (protected)
//
// Tokens are stateless — there is no server-side session to destroy and no
// revocation list. "Logging out" is the client discarding its token; this
// endpoint exists so the frontend has something to call.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "logged out, discard the token client-side",
	})
}

// availabilityResponse is the body of the check-username/check-email
// endpoints.
type availabilityResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// HandleCheckUsername reports whether a username is free.
//
// HTTP: POST /api/auth/check-username
// Body: {"username": "..."}
//
// A malformed username is 400 (it can never be registered, so
// "available" would be misleading); a well-formed one is always 200 with
// the availability flag.
func (h *AuthHandler) HandleCheckUsername(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	available, err := h.users.UsernameAvailable(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "username is available"
	if !available {
		message = "username is already taken"
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Available: available, Message: message})
}

// HandleCheckEmail reports whether an email is free.
//
// HTTP: POST /api/auth/check-email
// Body: {"email": "..."}
func (h *AuthHandler) HandleCheckEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	available, err := h.users.EmailAvailable(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "email is available"
	if !available {
		message = "email is already in use"
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Available: available, Message: message})
}

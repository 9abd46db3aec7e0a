package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/shiori/internal/apperror"
	"github.com/sakif/shiori/internal/model"
	"github.com/sakif/shiori/internal/repository"
)

// contextKey is an unexported type for context keys in this package.
// A package-private key type means only this package can read or write the
// authenticated user in a request context — no string-key collisions.
type contextKey string

const userKey contextKey = "user"

// Middleware validates bearer tokens and resolves them to users.
//
// It resolves the FULL user row on every authenticated request (not just the
// id from the token): a token outlives the user it was minted for if the
// account is ever removed, and handlers want the username/email anyway.
type Middleware struct {
	tokens *TokenService
	users  repository.UserRepository
	logger *slog.Logger
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(tokens *TokenService, users repository.UserRepository, logger *slog.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// RequireAuth enforces authentication on protected routes.
//
// It reads "Authorization: Bearer <token>", validates the JWT, loads the
// user and stores it in the request context. Status codes distinguish the
// failure modes the client handles differently:
//
//	401 — no token, or token expired (log in again)
//	403 — token present but invalid (tampered/malformed)
//	404 — token valid but the user no longer exists
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			writeAuthError(w, http.StatusUnauthorized, "token_missing", "authentication required")
			return
		}

		userID, _, err := m.tokens.Validate(tokenStr)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				writeAuthError(w, http.StatusUnauthorized, "token_expired", "session expired, please log in again")
				return
			}
			writeAuthError(w, http.StatusForbidden, "token_invalid", "token is invalid")
			return
		}

		user, err := m.users.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				// Valid token for an account that no longer exists.
				writeAuthError(w, http.StatusNotFound, "user_gone", "user no longer exists")
				return
			}
			m.logger.Error("auth: resolving user failed",
				slog.Int64("userID", userID),
				slog.String("error", err.Error()),
			)
			writeAuthError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the user when a valid token is present but never
// blocks the request. Handlers that behave differently for authenticated
// callers check UserFromContext; anonymous requests simply have no user.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenStr := bearerToken(r); tokenStr != "" {
			if userID, _, err := m.tokens.Validate(tokenStr); err == nil {
				if user, err := m.users.GetUserByID(r.Context(), userID); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), userKey, user))
				}
			}
		}
		// Always continue — no 401 even if no token.
		next.ServeHTTP(w, r)
	})
}

// ContextWithUser returns a context carrying the given user, as RequireAuth
// would have stored it.
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns (nil, false) for anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// bearerToken extracts the token from the Authorization header.
// Returns "" when the header is absent or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeAuthError writes the standard error JSON shape without importing the
// handler package (that would be an import cycle — handlers import auth for
// UserFromContext).
func writeAuthError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errType + `","message":"` + message + `"}`))
}

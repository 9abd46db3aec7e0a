package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sakif/shiori/internal/apperror"
	"github.com/sakif/shiori/internal/model"
)

// stubUserRepo serves a single known user for middleware tests.
type stubUserRepo struct {
	user *model.User
}

func (s *stubUserRepo) CreateUser(context.Context, *model.User) error { return nil }

func (s *stubUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
}

func (s *stubUserRepo) GetUserByEmail(context.Context, string) (*model.User, error) {
	return nil, apperror.NotFound("user", "")
}

func (s *stubUserRepo) GetUserByUsername(context.Context, string) (*model.User, error) {
	return nil, apperror.NotFound("user", "")
}

func (s *stubUserRepo) UpdateLastLogin(context.Context, int64) error       { return nil }
func (s *stubUserRepo) EmailTaken(context.Context, string) (bool, error)   { return false, nil }
func (s *stubUserRepo) UsernameTaken(context.Context, string) (bool, error) { return false, nil }

func newTestMiddleware(t *testing.T, repo *stubUserRepo) (*Middleware, *TokenService) {
	t.Helper()
	tokens := newTestTokenService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMiddleware(tokens, repo, logger), tokens
}

// echoUser is the protected handler under test: it reports whether a user
// made it into the request context.
func echoUser(t *testing.T, wantID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("no user in context inside protected handler")
			return
		}
		if user.ID != wantID {
			t.Errorf("user.ID = %d, want %d", user.ID, wantID)
		}
	})
}

func TestRequireAuth_ValidToken(t *testing.T) {
	repo := &stubUserRepo{user: &model.User{ID: 7, Username: "sakura"}}
	mw, tokens := newTestMiddleware(t, repo)

	token, err := tokens.Generate(7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/days", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw.RequireAuth(echoUser(t, 7)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestRequireAuth_MissingToken(t *testing.T) {
	mw, _ := newTestMiddleware(t, &stubUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/days", nil)
	rr := httptest.NewRecorder()

	called := false
	mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if called {
		t.Error("protected handler ran without a token")
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	repo := &stubUserRepo{user: &model.User{ID: 7}}
	mw, tokens := newTestMiddleware(t, repo)

	token, err := tokens.GenerateWithDuration(7, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/days", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw.RequireAuth(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for an expired token", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, "token_expired") {
		t.Errorf("body = %s, want token_expired marker", body)
	}
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	mw, _ := newTestMiddleware(t, &stubUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/days", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rr := httptest.NewRecorder()

	mw.RequireAuth(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for an invalid token", rr.Code)
	}
}

func TestRequireAuth_UserGone(t *testing.T) {
	// Token is valid, but the repo no longer has the user.
	mw, tokens := newTestMiddleware(t, &stubUserRepo{})

	token, err := tokens.Generate(99)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/days", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw.RequireAuth(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when the user no longer exists", rr.Code)
	}
}

func TestOptionalAuth_NoToken(t *testing.T) {
	mw, _ := newTestMiddleware(t, &stubUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	reached := false
	mw.OptionalAuth(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		reached = true
		if _, ok := UserFromContext(r.Context()); ok {
			t.Error("anonymous request should have no user in context")
		}
	})).ServeHTTP(rr, req)

	if !reached {
		t.Error("OptionalAuth blocked an anonymous request")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"no header", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(req); got != tt.want {
				t.Errorf("bearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

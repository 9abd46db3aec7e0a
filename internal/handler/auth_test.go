package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/shiori/internal/auth"
	"github.com/sakif/shiori/internal/handler"
	"github.com/sakif/shiori/internal/model"
	"github.com/sakif/shiori/internal/repository/sqlite"
	"github.com/sakif/shiori/internal/service"
)

// testEnv wires handlers to real services over an in-memory database, so
// handler tests exercise the same path a request takes in production.
type testEnv struct {
	auth   *handler.AuthHandler
	diary  *handler.DiaryHandler
	users  *service.UserService
	tokens *auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService("handler-test-secret-key", time.Hour)
	require.NoError(t, err)

	users := service.NewUserService(db, auth.NewPasswordService(bcrypt.MinCost), logger)
	diary := service.NewDiaryService(db, logger)

	return &testEnv{
		auth:   handler.NewAuthHandler(users, tokens, logger),
		diary:  handler.NewDiaryHandler(diary, logger),
		users:  users,
		tokens: tokens,
	}
}

// registerUser creates an account through the service and returns the user.
func registerUser(t *testing.T, env *testEnv, username, email string) *model.User {
	t.Helper()
	user, err := env.users.Register(context.Background(), username, email, "secret1")
	require.NoError(t, err)
	return user
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandler_HandleRegister(t *testing.T) {
	t.Run("creates account and returns token", func(t *testing.T) {
		env := newTestEnv(t)

		req := postJSON("/api/auth/register", `{"username":"sakura","email":"sakura@example.com","password":"secret1"}`)
		rr := httptest.NewRecorder()
		env.auth.HandleRegister(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var res struct {
			Message string      `json:"message"`
			User    *model.User `json:"user"`
			Token   string      `json:"token"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		require.NotNil(t, res.User)
		assert.Equal(t, "sakura", res.User.Username)
		assert.NotEmpty(t, res.Token)

		userID, _, err := env.tokens.Validate(res.Token)
		assert.NoError(t, err)
		assert.Equal(t, res.User.ID, userID)
	})

	t.Run("does not leak the password hash", func(t *testing.T) {
		env := newTestEnv(t)

		req := postJSON("/api/auth/register", `{"username":"sakura","email":"sakura@example.com","password":"secret1"}`)
		rr := httptest.NewRecorder()
		env.auth.HandleRegister(rr, req)

		assert.NotContains(t, rr.Body.String(), "passwordHash")
		assert.NotContains(t, rr.Body.String(), "$2a$")
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		env := newTestEnv(t)
		registerUser(t, env, "sakura", "sakura@example.com")

		req := postJSON("/api/auth/register", `{"username":"other","email":"sakura@example.com","password":"secret1"}`)
		rr := httptest.NewRecorder()
		env.auth.HandleRegister(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		tests := []struct {
			name string
			body string
		}{
			{"malformed JSON", `{"username":`},
			{"bad email", `{"username":"sakura","email":"not-an-email","password":"secret1"}`},
			{"short password", `{"username":"sakura","email":"s@example.com","password":"ab1"}`},
			{"username too short", `{"username":"ab","email":"s@example.com","password":"secret1"}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rr := httptest.NewRecorder()
				env.auth.HandleRegister(rr, postJSON("/api/auth/register", tt.body))
				assert.Equal(t, http.StatusBadRequest, rr.Code)
			})
		}
	})
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		env := newTestEnv(t)
		registerUser(t, env, "sakura", "sakura@example.com")

		req := postJSON("/api/auth/login", `{"email":"sakura@example.com","password":"secret1"}`)
		rr := httptest.NewRecorder()
		env.auth.HandleLogin(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			User  *model.User `json:"user"`
			Token string      `json:"token"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.NotEmpty(t, res.Token)
		require.NotNil(t, res.User)
		assert.NotNil(t, res.User.LastLogin)
	})

	t.Run("wrong password", func(t *testing.T) {
		env := newTestEnv(t)
		registerUser(t, env, "sakura", "sakura@example.com")

		req := postJSON("/api/auth/login", `{"email":"sakura@example.com","password":"wrong99"}`)
		rr := httptest.NewRecorder()
		env.auth.HandleLogin(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		env := newTestEnv(t)

		req := postJSON("/api/auth/login", `{"email":"ghost@example.com","password":"secret1"}`)
		rr := httptest.NewRecorder()
		env.auth.HandleLogin(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAuthHandler_HandleValidate(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerUser(t, env, "sakura", "sakura@example.com")

		token, err := env.tokens.Generate(user.ID)
		require.NoError(t, err)

		req := postJSON("/api/auth/validate", `{"token":"`+token+`"}`)
		rr := httptest.NewRecorder()
		env.auth.HandleValidate(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			Valid bool `json:"valid"`
			User  *struct {
				ID       int64  `json:"id"`
				Username string `json:"username"`
				Email    string `json:"email"`
			} `json:"user"`
			ExpiresAt string `json:"expiresAt"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.True(t, res.Valid)
		require.NotNil(t, res.User)
		assert.Equal(t, user.ID, res.User.ID)
		assert.Equal(t, "sakura", res.User.Username)
		assert.Equal(t, "sakura@example.com", res.User.Email)
		assert.NotEmpty(t, res.ExpiresAt)
	})

	t.Run("garbage token", func(t *testing.T) {
		env := newTestEnv(t)

		req := postJSON("/api/auth/validate", `{"token":"not.a.jwt"}`)
		rr := httptest.NewRecorder()
		env.auth.HandleValidate(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		var res struct {
			Valid bool `json:"valid"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.False(t, res.Valid)
	})

	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv(t)

		req := postJSON("/api/auth/validate", `{}`)
		rr := httptest.NewRecorder()
		env.auth.HandleValidate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_HandleMe(t *testing.T) {
	env := newTestEnv(t)
	user := registerUser(t, env, "sakura", "sakura@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), user))
	rr := httptest.NewRecorder()
	env.auth.HandleMe(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		User *model.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	require.NotNil(t, res.User)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Equal(t, "sakura@example.com", res.User.Email)
}

func TestAuthHandler_Availability(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "sakura", "sakura@example.com")

	t.Run("taken username", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.auth.HandleCheckUsername(rr, postJSON("/api/auth/check-username", `{"username":"sakura"}`))

		assert.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			Available bool `json:"available"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.False(t, res.Available)
	})

	t.Run("free email", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.auth.HandleCheckEmail(rr, postJSON("/api/auth/check-email", `{"email":"new@example.com"}`))

		assert.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			Available bool `json:"available"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.True(t, res.Available)
	})

	t.Run("malformed username", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.auth.HandleCheckUsername(rr, postJSON("/api/auth/check-username", `{"username":"!!"}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/types"
)

// =============================================================================
// Mocks
// =============================================================================

type mockSessionStarter struct {
	loginFn      func(ctx context.Context, username string) (string, error)
	lastUsername string
}

func (m *mockSessionStarter) Login(ctx context.Context, username string) (string, error) {
	m.lastUsername = username
	if m.loginFn != nil {
		return m.loginFn(ctx, username)
	}
	return "tok_" + strings.Repeat("ab", 32), nil
}

func newAuthRouter(sessions SessionStarter) http.Handler {
	h := NewAuthHandler(sessions, slog.Default())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// =============================================================================
// Tests
// =============================================================================

func TestHandleLogin_IssuesToken(t *testing.T) {
	sessions := &mockSessionStarter{}
	router := newAuthRouter(sessions)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice"}`))
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", sessions.lastUsername)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, strings.HasPrefix(resp.Token, "tok_"))
}

func TestHandleLogin_MissingUsername(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body object", `{}`},
		{"empty username", `{"username":""}`},
		{"no body", ``},
		{"malformed JSON", `{"username"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthRouter(&mockSessionStarter{})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			router.ServeHTTP(w, r)

			// Expected client mistakes are 200 with a legacy error body.
			require.Equal(t, http.StatusOK, w.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "BadRequest", resp["error"])
		})
	}
}

func TestHandleLogin_StorageFailure(t *testing.T) {
	sessions := &mockSessionStarter{
		loginFn: func(ctx context.Context, username string) (string, error) {
			return "", types.NewAppError(types.ErrCodeInternalDB, "insert failed", errors.New("boom"))
		},
	}
	router := newAuthRouter(sessions)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice"}`))
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestHandleLogin_EachLoginIsAFreshSession(t *testing.T) {
	calls := 0
	sessions := &mockSessionStarter{
		loginFn: func(ctx context.Context, username string) (string, error) {
			calls++
			return "tok_" + strings.Repeat("0", 63) + string(rune('a'+calls)), nil
		},
	}
	router := newAuthRouter(sessions)

	var tokens []string
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice"}`))
		router.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)

		var resp LoginResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		tokens = append(tokens, resp.Token)
	}

	assert.NotEqual(t, tokens[0], tokens[1], "re-login must not reuse tokens")
}

// Package handlers contains the HTTP handler implementations for the demo
// backend. Handlers depend on narrow service interfaces so tests can inject
// fakes without touching storage.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subtrack/internal/core"
	"subtrack/internal/types"
)

// SessionStarter issues session tokens for usernames.
// Mirrors the concrete auth.SessionService method used by this handler.
type SessionStarter interface {
	Login(ctx context.Context, username string) (string, error)
}

// LoginRequest is the request body for POST /login. Any non-empty username
// is accepted; there are no passwords in the demo flow.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token string `json:"token"`
}

// AuthHandler handles the demo login flow.
type AuthHandler struct {
	sessions SessionStarter
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler with the provided dependencies.
func NewAuthHandler(sessions SessionStarter, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes mounts the auth routes onto the prefixed router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
}

// HandleLogin processes POST /login.
//
// A missing or empty username is an expected client mistake and is reported
// as a 200 BadRequest per the legacy contract. A fresh token is issued on
// every call; logging in twice yields two valid sessions.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Username == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingUsername, "username is required", nil))
		return
	}

	token, err := h.sessions.Login(r.Context(), req.Username)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, LoginResponse{Token: token})
}

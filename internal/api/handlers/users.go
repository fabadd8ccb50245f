package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subtrack/internal/core"
	"subtrack/internal/types"
)

// ProfileService assembles the merged user view served by GET /me.
type ProfileService interface {
	Profile(ctx context.Context, token string) (*types.UserProfile, error)
}

// SessionResolver maps session tokens back to their owner.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*types.Session, error)
}

// WaitOpener opens a webhook wait window for a user.
type WaitOpener interface {
	OpenWait(ctx context.Context, username string) error
}

// PendingWebhookResponse acknowledges an opened wait window. Clients poll
// GET /me until isWaitingForWebhook flips back to false.
type PendingWebhookResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// UserHandler serves the logged-in user's profile and wait-window routes.
type UserHandler struct {
	profiles ProfileService
	sessions SessionResolver
	waits    WaitOpener
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler with the provided dependencies.
func NewUserHandler(
	profiles ProfileService,
	sessions SessionResolver,
	waits WaitOpener,
	logger *slog.Logger,
) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		profiles: profiles,
		sessions: sessions,
		waits:    waits,
		logger:   logger,
	}
}

// RegisterRoutes mounts the user routes onto the prefixed router.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.HandleMe)
	r.Post("/pending-webhooks", h.HandlePendingWebhooks)
}

// queryToken extracts the session token from the query string, the legacy
// transport the demo clients use.
func queryToken(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return "", types.NewAppError(
			types.ErrCodeValidationMissingToken, "token query parameter is required", nil)
	}
	return token, nil
}

// HandleMe processes GET /me?token=.
//
// The response merges session identity, subscription state with derived
// activity flags, and webhook wait status. Unknown tokens report a 200
// NotFound per the legacy contract.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	token, err := queryToken(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	profile, err := h.profiles.Profile(r.Context(), token)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, profile)
}

// HandlePendingWebhooks processes POST /pending-webhooks?token=.
//
// It opens a wait window for the token's owner; the client calls this right
// after initiating a purchase so the UI can show a spinner until the
// provider's webhook lands.
func (h *UserHandler) HandlePendingWebhooks(w http.ResponseWriter, r *http.Request) {
	token, err := queryToken(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	session, err := h.sessions.Resolve(r.Context(), token)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.waits.OpenWait(r.Context(), session.Username); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, PendingWebhookResponse{
		OK:      true,
		Message: "waiting for webhook",
	})
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subtrack/internal/core"
	"subtrack/internal/types"
)

// EntitlementChecker decides whether a session token currently has paid
// access.
type EntitlementChecker interface {
	Entitled(ctx context.Context, token string) (username string, entitled bool, err error)
}

// ContentResponse is a piece of demo content.
type ContentResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Demo content bodies. The demo clients match on these exact strings.
var (
	publicContent = ContentResponse{
		Title:   "Free Content",
		Content: "This is some public content that everybody can access. 🍫",
	}
	protectedContent = ContentResponse{
		Title:   "Premium Content",
		Content: "This is some information only subscribers can access. 💰",
	}
)

// ContentHandler serves the free and subscriber-gated content routes.
type ContentHandler struct {
	entitlements EntitlementChecker
	logger       *slog.Logger
}

// NewContentHandler creates a ContentHandler with the provided dependencies.
func NewContentHandler(entitlements EntitlementChecker, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{entitlements: entitlements, logger: logger}
}

// RegisterRoutes mounts the content routes onto the prefixed router.
func (h *ContentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/content/public/{id}", h.HandlePublic)
	r.Get("/content/protected/{id}", h.HandleProtected)
}

// HandlePublic processes GET /content/public/{id}. No auth required.
// The id is accepted but unused; the demo serves a single piece of content.
func (h *ContentHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, publicContent)
}

// HandleProtected processes GET /content/protected/{id}?token=.
//
// Access requires a subscription whose expiration is strictly in the
// future. Free-tier users and users whose subscription just lapsed get a
// 200 NoSubscription body, which the demo client renders as a paywall.
func (h *ContentHandler) HandleProtected(w http.ResponseWriter, r *http.Request) {
	token, err := queryToken(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	username, entitled, err := h.entitlements.Entitled(r.Context(), token)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !entitled {
		h.logger.Debug("protected content denied",
			slog.String("username", username),
			slog.String("content_id", chi.URLParam(r, "id")),
		)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeNoSubscription, "no active subscription", nil))
		return
	}

	core.JSON(w, r, http.StatusOK, protectedContent)
}

// This file implements the billing-provider webhook endpoint. The route is
// NOT behind any session check -- the provider calls it directly. Security
// is provided by the shared secret carried in the payload body.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subtrack/internal/core"
	"subtrack/internal/subscription"
	"subtrack/internal/types"
)

// WebhookProcessor reconciles one provider event against local state.
type WebhookProcessor interface {
	Process(ctx context.Context, event *types.WebhookEvent) (*subscription.Result, error)
}

// WebhookResponse acknowledges a processed event back to the provider.
type WebhookResponse struct {
	OK     bool                 `json:"ok"`
	Result types.WebhookOutcome `json:"result"`
}

// WebhookHandler handles webhook calls from the billing provider.
type WebhookHandler struct {
	processor WebhookProcessor
	logger    *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler with the provided dependencies.
func NewWebhookHandler(processor WebhookProcessor, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{processor: processor, logger: logger}
}

// RegisterRoutes mounts the webhook route onto the prefixed router.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/iaptic", h.HandleWebhook)
}

// HandleWebhook processes POST /webhooks/iaptic.
//
// A bad shared secret returns 401 {"ok":false}; the provider treats any
// other response as delivered, so recognized and unrecognized event types
// alike are acknowledged with 200. Storage failures return 500, which the
// provider retries.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var event types.WebhookEvent
	if err := core.DecodeJSON(w, r, &event); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.processor.Process(r.Context(), &event)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("webhook processed",
		slog.String("type", event.Type),
		slog.String("username", event.ApplicationUsername),
		slog.String("outcome", string(result.Outcome)),
	)

	core.JSON(w, r, http.StatusOK, WebhookResponse{OK: true, Result: result.Outcome})
}

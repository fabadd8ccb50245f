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

	"subtrack/internal/subscription"
	"subtrack/internal/types"
)

type mockWebhookProcessor struct {
	processFn func(ctx context.Context, event *types.WebhookEvent) (*subscription.Result, error)
	lastEvent *types.WebhookEvent
}

func (m *mockWebhookProcessor) Process(ctx context.Context, event *types.WebhookEvent) (*subscription.Result, error) {
	m.lastEvent = event
	if m.processFn != nil {
		return m.processFn(ctx, event)
	}
	return &subscription.Result{Outcome: types.OutcomeTestPassed}, nil
}

func newWebhookRouter(processor WebhookProcessor) http.Handler {
	h := NewWebhookHandler(processor, slog.Default())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postWebhook(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/webhooks/iaptic", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, r)
	return w
}

func TestHandleWebhook_AcknowledgesOutcome(t *testing.T) {
	processor := &mockWebhookProcessor{
		processFn: func(ctx context.Context, event *types.WebhookEvent) (*subscription.Result, error) {
			return &subscription.Result{Outcome: types.OutcomeUpdated}, nil
		},
	}
	router := newWebhookRouter(processor)

	w := postWebhook(t, router, `{
		"password": "shh",
		"type": "purchases.updated",
		"applicationUsername": "alice",
		"purchases": {"p1": {"expirationDate": "2030-01-01T00:00:00Z"}}
	}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp WebhookResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.OK)
	assert.Equal(t, types.OutcomeUpdated, resp.Result)

	// The full payload reaches the reconciler untouched.
	require.NotNil(t, processor.lastEvent)
	assert.Equal(t, "alice", processor.lastEvent.ApplicationUsername)
	assert.Len(t, processor.lastEvent.Purchases, 1)
}

func TestHandleWebhook_BadCredentialIs401(t *testing.T) {
	processor := &mockWebhookProcessor{
		processFn: func(ctx context.Context, event *types.WebhookEvent) (*subscription.Result, error) {
			return nil, types.NewAppError(types.ErrCodeWebhookUnauthorized, "bad credential", nil)
		},
	}
	router := newWebhookRouter(processor)

	w := postWebhook(t, router, `{"password":"wrong","type":"TEST"}`)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]bool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp["ok"])
}

func TestHandleWebhook_UnknownFieldsTolerated(t *testing.T) {
	processor := &mockWebhookProcessor{}
	router := newWebhookRouter(processor)

	// Provider payloads carry fields the demo does not model.
	w := postWebhook(t, router, `{"password":"shh","type":"TEST","notificationId":"n-1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, processor.lastEvent)
	assert.Equal(t, "TEST", processor.lastEvent.Type)
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	processor := &mockWebhookProcessor{}
	router := newWebhookRouter(processor)

	w := postWebhook(t, router, `{"password":`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, processor.lastEvent, "malformed payloads never reach the reconciler")

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "BadRequest", resp["error"])
}

func TestHandleWebhook_StorageFailureIs500(t *testing.T) {
	processor := &mockWebhookProcessor{
		processFn: func(ctx context.Context, event *types.WebhookEvent) (*subscription.Result, error) {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "upsert failed", errors.New("boom"))
		},
	}
	router := newWebhookRouter(processor)

	w := postWebhook(t, router, `{"password":"shh","type":"purchases.updated","applicationUsername":"alice","purchases":{}}`)

	// 500 makes the provider retry the delivery.
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

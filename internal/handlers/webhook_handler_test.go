package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/studyhall/studyhall-backend/internal/billing"
	"github.com/studyhall/studyhall-backend/internal/config"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
)

const testWebhookSecret = "whsec_test_123"

func newWebhookTestApp(t *testing.T, secret string, reconciler *entitlement.Reconciler) *fiber.App {
	t.Helper()
	client := billing.NewCheckoutClient(&config.Config{
		StripeAPIKey:    "sk_test_xxx",
		StripePricePlus: "price_plus",
		StripePriceMax:  "price_max",
	})
	app := fiber.New()
	app.Post("/api/webhooks/stripe", NewWebhookHandler(secret, client, reconciler).HandleStripe)
	return app
}

func newWebhookReconciler(t *testing.T) (*entitlement.Reconciler, *entitlement.MemoryStore) {
	t.Helper()
	store := entitlement.NewMemoryStore()
	resolver, err := entitlement.NewResolver(store, time.Minute, 5*time.Minute)
	require.NoError(t, err)
	return entitlement.NewReconciler(store, entitlement.NewMemoryLedger(), resolver.Coordinator()), store
}

func signedWebhookRequest(t *testing.T, secret string, payload []byte) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func checkoutCompletedPayload(t *testing.T, eventID string, userID uuid.UUID, tier string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":           "cs_test",
				"mode":         "subscription",
				"customer":     "cus_test",
				"subscription": "sub_test",
				"metadata":     map[string]string{"user_id": userID.String(), "tier": tier},
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestHandleStripeSecretNotConfigured(t *testing.T) {
	reconciler, _ := newWebhookReconciler(t)
	app := newWebhookTestApp(t, "", reconciler)

	resp, err := app.Test(signedWebhookRequest(t, testWebhookSecret, []byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleStripeMissingSignature(t *testing.T) {
	reconciler, _ := newWebhookReconciler(t)
	app := newWebhookTestApp(t, testWebhookSecret, reconciler)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStripeInvalidSignature(t *testing.T) {
	reconciler, _ := newWebhookReconciler(t)
	app := newWebhookTestApp(t, testWebhookSecret, reconciler)

	payload := checkoutCompletedPayload(t, "evt_sig", uuid.New(), "plus")
	resp, err := app.Test(signedWebhookRequest(t, "whsec_wrong", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStripeCheckoutCompleted(t *testing.T) {
	reconciler, store := newWebhookReconciler(t)
	app := newWebhookTestApp(t, testWebhookSecret, reconciler)
	userID := uuid.New()

	payload := checkoutCompletedPayload(t, "evt_ok", userID, "plus")
	resp, err := app.Test(signedWebhookRequest(t, testWebhookSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	_, hasStale := body["stale"]
	assert.False(t, hasStale)

	sub, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "plus", sub.Tier)
}

func TestHandleStripeRedeliveryAcknowledged(t *testing.T) {
	reconciler, store := newWebhookReconciler(t)
	app := newWebhookTestApp(t, testWebhookSecret, reconciler)
	userID := uuid.New()

	payload := checkoutCompletedPayload(t, "evt_redeliver", userID, "max")
	for i := 0; i < 2; i++ {
		resp, err := app.Test(signedWebhookRequest(t, testWebhookSecret, payload))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	sub, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "max", sub.Tier)
}

func TestHandleStripeIgnoredEventType(t *testing.T) {
	reconciler, _ := newWebhookReconciler(t)
	app := newWebhookTestApp(t, testWebhookSecret, reconciler)

	payload, err := json.Marshal(map[string]any{
		"id":   "evt_invoice",
		"type": "invoice.paid",
		"data": map[string]any{"object": map[string]any{}},
	})
	require.NoError(t, err)

	resp, err := app.Test(signedWebhookRequest(t, testWebhookSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["received"])
}

func TestHandleStripeBadPayloadRejected(t *testing.T) {
	reconciler, _ := newWebhookReconciler(t)
	app := newWebhookTestApp(t, testWebhookSecret, reconciler)

	// Valid signature but a checkout session without any user id.
	payload, err := json.Marshal(map[string]any{
		"id":   "evt_bad",
		"type": "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":       "cs_bad",
				"mode":     "subscription",
				"metadata": map[string]string{"tier": "plus"},
			},
		},
	})
	require.NoError(t, err)

	resp, err := app.Test(signedWebhookRequest(t, testWebhookSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStripeUnknownCustomer(t *testing.T) {
	reconciler, _ := newWebhookReconciler(t)
	app := newWebhookTestApp(t, testWebhookSecret, reconciler)

	payload, err := json.Marshal(map[string]any{
		"id":   "evt_orphan",
		"type": "customer.subscription.updated",
		"data": map[string]any{
			"object": map[string]any{
				"id":       "sub_orphan",
				"customer": "cus_never_linked",
				"status":   "active",
			},
		},
	})
	require.NoError(t, err)

	resp, err := app.Test(signedWebhookRequest(t, testWebhookSecret, payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestHandleStripeCacheClearFailureAcknowledgedStale(t *testing.T) {
	store := entitlement.NewMemoryStore()
	coord := entitlement.NewCoordinator(
		func(uuid.UUID) error { return errors.New("partition down") },
		func(uuid.UUID) error { return nil },
		func(uuid.UUID) error { return nil },
	)
	reconciler := entitlement.NewReconciler(store, entitlement.NewMemoryLedger(), coord)
	app := newWebhookTestApp(t, testWebhookSecret, reconciler)
	userID := uuid.New()

	payload := checkoutCompletedPayload(t, "evt_stale", userID, "plus")
	resp, err := app.Test(signedWebhookRequest(t, testWebhookSecret, payload))
	require.NoError(t, err)

	// The write landed, so the event must be acknowledged; the response
	// flags the possibly stale caches instead of forcing a redelivery.
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, true, body["stale"])

	sub, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "plus", sub.Tier)
}

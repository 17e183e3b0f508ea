package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/studyhall/studyhall-backend/internal/config"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
)

func newTestClient() *CheckoutClient {
	return NewCheckoutClient(&config.Config{
		StripeAPIKey:       "sk_test_xxx",
		StripePricePlus:    "price_plus",
		StripePriceMax:     "price_max",
		CheckoutSuccessURL: "https://app.example.com/billing/success",
		CheckoutCancelURL:  "https://app.example.com/billing/cancel",
	})
}

func stripeEvent(t *testing.T, id, eventType string, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestMapStripeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"active", entitlement.StatusActive},
		{"trialing", entitlement.StatusActive},
		{"past_due", entitlement.StatusPastDue},
		{"unpaid", entitlement.StatusPastDue},
		{"canceled", entitlement.StatusCancelled},
		{"cancelled", entitlement.StatusCancelled},
		{"  Active  ", entitlement.StatusActive},
		{"incomplete", entitlement.StatusInactive},
		{"paused", entitlement.StatusInactive},
		{"", entitlement.StatusInactive},
		{"garbage", entitlement.StatusInactive},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, MapStripeStatus(tt.in))
		})
	}
}

func TestPriceToTier(t *testing.T) {
	client := newTestClient()

	assert.Equal(t, entitlement.TierPlus, client.PriceToTier("price_plus"))
	assert.Equal(t, entitlement.TierMax, client.PriceToTier("price_max"))
	assert.Equal(t, entitlement.TierFree, client.PriceToTier("price_unknown"))
	assert.Equal(t, entitlement.TierFree, client.PriceToTier(""))
}

func TestTranslateEventCheckoutCompleted(t *testing.T) {
	client := newTestClient()
	userID := uuid.New()

	t.Run("user id from metadata", func(t *testing.T) {
		ev := stripeEvent(t, "evt_1", "checkout.session.completed", map[string]any{
			"id":           "cs_1",
			"mode":         "subscription",
			"customer":     "cus_1",
			"subscription": "sub_1",
			"metadata":     map[string]string{"user_id": userID.String(), "tier": "plus"},
		})

		got, err := client.TranslateEvent(ev)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "evt_1", got.ID)
		assert.Equal(t, entitlement.EventCheckoutCompleted, got.Type)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, "cus_1", got.CustomerID)
		assert.Equal(t, "sub_1", got.SubscriptionID)
		assert.Equal(t, entitlement.TierPlus, got.Tier)
	})

	t.Run("user id falls back to client_reference_id", func(t *testing.T) {
		ev := stripeEvent(t, "evt_2", "checkout.session.completed", map[string]any{
			"id":                  "cs_2",
			"mode":                "subscription",
			"customer":            "cus_2",
			"client_reference_id": userID.String(),
			"metadata":            map[string]string{"tier": "max"},
		})

		got, err := client.TranslateEvent(ev)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, entitlement.TierMax, got.Tier)
	})

	t.Run("non-subscription mode ignored", func(t *testing.T) {
		ev := stripeEvent(t, "evt_3", "checkout.session.completed", map[string]any{
			"id":   "cs_3",
			"mode": "payment",
		})

		got, err := client.TranslateEvent(ev)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing user id rejected", func(t *testing.T) {
		ev := stripeEvent(t, "evt_4", "checkout.session.completed", map[string]any{
			"id":       "cs_4",
			"mode":     "subscription",
			"metadata": map[string]string{"tier": "plus"},
		})

		_, err := client.TranslateEvent(ev)
		assert.Error(t, err)
	})

	t.Run("bad tier metadata rejected", func(t *testing.T) {
		ev := stripeEvent(t, "evt_5", "checkout.session.completed", map[string]any{
			"id":       "cs_5",
			"mode":     "subscription",
			"metadata": map[string]string{"user_id": userID.String(), "tier": "platinum"},
		})

		_, err := client.TranslateEvent(ev)
		require.Error(t, err)
		assert.ErrorIs(t, err, entitlement.ErrInvalidTier)
	})
}

func TestTranslateEventSubscriptionUpdated(t *testing.T) {
	client := newTestClient()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	t.Run("top-level period bounds", func(t *testing.T) {
		ev := stripeEvent(t, "evt_u1", "customer.subscription.updated", map[string]any{
			"id":                   "sub_u1",
			"customer":             "cus_u1",
			"status":               "active",
			"current_period_start": start.Unix(),
			"current_period_end":   end.Unix(),
			"items": map[string]any{"data": []map[string]any{
				{"price": map[string]any{"id": "price_max"}},
			}},
		})

		got, err := client.TranslateEvent(ev)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entitlement.EventSubscriptionUpdated, got.Type)
		assert.Equal(t, entitlement.TierMax, got.Tier)
		assert.Equal(t, entitlement.StatusActive, got.Status)
		assert.Equal(t, start.Unix(), got.PeriodStart.Unix())
		assert.Equal(t, end.Unix(), got.PeriodEnd.Unix())
	})

	t.Run("period bounds from first item", func(t *testing.T) {
		ev := stripeEvent(t, "evt_u2", "customer.subscription.updated", map[string]any{
			"id":       "sub_u2",
			"customer": "cus_u2",
			"status":   "past_due",
			"items": map[string]any{"data": []map[string]any{
				{
					"current_period_start": start.Unix(),
					"current_period_end":   end.Unix(),
					"price":                map[string]any{"id": "price_plus"},
				},
			}},
		})

		got, err := client.TranslateEvent(ev)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entitlement.TierPlus, got.Tier)
		assert.Equal(t, entitlement.StatusPastDue, got.Status)
		assert.Equal(t, start.Unix(), got.PeriodStart.Unix())
	})

	t.Run("unknown price grants no paid tier", func(t *testing.T) {
		ev := stripeEvent(t, "evt_u3", "customer.subscription.updated", map[string]any{
			"id":       "sub_u3",
			"customer": "cus_u3",
			"status":   "active",
			"items": map[string]any{"data": []map[string]any{
				{"price": map[string]any{"id": "price_from_another_app"}},
			}},
		})

		got, err := client.TranslateEvent(ev)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entitlement.TierFree, got.Tier)
	})
}

func TestTranslateEventSubscriptionDeleted(t *testing.T) {
	client := newTestClient()
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	ev := stripeEvent(t, "evt_d1", "customer.subscription.deleted", map[string]any{
		"id":                   "sub_d1",
		"customer":             "cus_d1",
		"status":               "canceled",
		"cancel_at_period_end": true,
		"current_period_end":   end.Unix(),
	})

	got, err := client.TranslateEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entitlement.EventSubscriptionCanceled, got.Type)
	assert.True(t, got.CancelAtPeriodEnd)
	assert.Equal(t, end.Unix(), got.PeriodEnd.Unix())
}

func TestTranslateEventIgnoredTypes(t *testing.T) {
	client := newTestClient()

	for _, eventType := range []string{"invoice.paid", "payment_intent.succeeded", "charge.refunded"} {
		ev := stripeEvent(t, "evt_x", eventType, map[string]any{})
		got, err := client.TranslateEvent(ev)
		require.NoError(t, err)
		assert.Nil(t, got, "event type %s must be ignored", eventType)
	}
}

func TestCreateSession(t *testing.T) {
	userID := uuid.New().String()

	t.Run("builds subscription params and returns url", func(t *testing.T) {
		client := newTestClient()
		var captured *stripe.CheckoutSessionParams
		client.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			captured = params
			return &stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/session"}, nil
		}

		url, err := client.CreateSession(context.Background(), userID, "student@example.com", entitlement.TierPlus)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.com/c/session", url)

		require.NotNil(t, captured)
		assert.Equal(t, "subscription", *captured.Mode)
		assert.Equal(t, userID, *captured.ClientReferenceID)
		require.Len(t, captured.LineItems, 1)
		assert.Equal(t, "price_plus", *captured.LineItems[0].Price)
		assert.Equal(t, userID, captured.SubscriptionData.Metadata["user_id"])
		assert.Equal(t, "plus", captured.SubscriptionData.Metadata["tier"])
	})

	t.Run("free tier has no price", func(t *testing.T) {
		client := newTestClient()
		_, err := client.CreateSession(context.Background(), userID, "student@example.com", entitlement.TierFree)
		assert.ErrorIs(t, err, ErrBillingProcessor)
	})

	t.Run("missing api key", func(t *testing.T) {
		client := NewCheckoutClient(&config.Config{StripePricePlus: "price_plus"})
		_, err := client.CreateSession(context.Background(), userID, "student@example.com", entitlement.TierPlus)
		assert.ErrorIs(t, err, ErrBillingProcessor)
	})

	t.Run("processor failure", func(t *testing.T) {
		client := newTestClient()
		client.createCheckoutSession = func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return nil, fmt.Errorf("stripe: rate limited")
		}
		_, err := client.CreateSession(context.Background(), userID, "student@example.com", entitlement.TierMax)
		assert.ErrorIs(t, err, ErrBillingProcessor)
	})
}

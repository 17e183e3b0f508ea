package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/studyhall/studyhall-backend/internal/config"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
)

// ErrBillingProcessor means the payment processor call failed; no checkout
// session was created.
var ErrBillingProcessor = errors.New("billing processor error")

// CheckoutClient creates Stripe checkout sessions for paid tiers. The
// session constructor is injectable so tests never hit the Stripe API.
type CheckoutClient struct {
	apiKey     string
	successURL string
	cancelURL  string
	prices     map[entitlement.Tier]string

	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewCheckoutClient(cfg *config.Config) *CheckoutClient {
	return &CheckoutClient{
		apiKey:     strings.TrimSpace(cfg.StripeAPIKey),
		successURL: cfg.CheckoutSuccessURL,
		cancelURL:  cfg.CheckoutCancelURL,
		prices: map[entitlement.Tier]string{
			entitlement.TierPlus: cfg.StripePricePlus,
			entitlement.TierMax:  cfg.StripePriceMax,
		},
		createCheckoutSession: stripesession.New,
	}
}

// PriceToTier maps a Stripe price id back to the tier it sells. Unknown
// prices resolve to free so a misconfigured webhook can never grant paid
// access.
func (c *CheckoutClient) PriceToTier(priceID string) entitlement.Tier {
	for tier, price := range c.prices {
		if price != "" && price == priceID {
			return tier
		}
	}
	return entitlement.TierFree
}

// CreateSession creates a subscription-mode checkout session and returns its
// URL. The user id travels in the session and subscription metadata so the
// completion webhook can be reconciled back to the user.
func (c *CheckoutClient) CreateSession(ctx context.Context, userID, email string, tier entitlement.Tier) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: stripe api key not configured", ErrBillingProcessor)
	}
	priceID := c.prices[tier]
	if priceID == "" {
		return "", fmt.Errorf("%w: no price configured for tier %q", ErrBillingProcessor, tier)
	}

	stripe.Key = c.apiKey

	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": userID,
				"tier":    string(tier),
			},
		},
	}
	params.AddMetadata("user_id", userID)
	params.AddMetadata("tier", string(tier))

	session, err := c.createCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("%w: create checkout session: %v", ErrBillingProcessor, err)
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("%w: stripe returned empty checkout URL", ErrBillingProcessor)
	}
	return strings.TrimSpace(session.URL), nil
}

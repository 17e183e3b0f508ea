package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/studyhall/studyhall-backend/internal/entitlement"
)

// checkoutSession is a minimal representation of a Stripe checkout.session
// event payload.
type checkoutSession struct {
	ID                string            `json:"id"`
	Mode              string            `json:"mode"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// subscription is a minimal representation of a Stripe subscription event
// payload. Period bounds appear top-level on older API versions and on the
// first item on newer ones; both are read.
type subscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
			Price              struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

func (s *subscription) firstPriceID() string {
	for _, item := range s.Items.Data {
		if priceID := strings.TrimSpace(item.Price.ID); priceID != "" {
			return priceID
		}
	}
	return ""
}

func (s *subscription) periodBounds() (time.Time, time.Time) {
	start, end := s.CurrentPeriodStart, s.CurrentPeriodEnd
	if start == 0 && end == 0 && len(s.Items.Data) > 0 {
		start, end = s.Items.Data[0].CurrentPeriodStart, s.Items.Data[0].CurrentPeriodEnd
	}
	return unixOrZero(start), unixOrZero(end)
}

func unixOrZero(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// MapStripeStatus converts a Stripe subscription status to the internal
// status set. Unknown statuses fail closed (inactive).
func MapStripeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return entitlement.StatusActive
	case "past_due", "unpaid":
		return entitlement.StatusPastDue
	case "canceled", "cancelled":
		return entitlement.StatusCancelled
	default:
		return entitlement.StatusInactive
	}
}

// TranslateEvent normalizes a verified Stripe event into a BillingEvent.
// Returns (nil, nil) for event types this system does not consume.
func (c *CheckoutClient) TranslateEvent(event *stripe.Event) (*entitlement.BillingEvent, error) {
	switch string(event.Type) {
	case "checkout.session.completed":
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout.session: %w", err)
		}
		if session.Mode != "" && session.Mode != "subscription" {
			return nil, nil
		}
		userID, err := sessionUserID(&session)
		if err != nil {
			return nil, err
		}
		tier, err := entitlement.ParseTier(session.Metadata["tier"])
		if err != nil {
			return nil, fmt.Errorf("checkout session %s: %w", session.ID, err)
		}
		return &entitlement.BillingEvent{
			ID:             event.ID,
			Type:           entitlement.EventCheckoutCompleted,
			UserID:         userID,
			CustomerID:     session.Customer,
			SubscriptionID: session.Subscription,
			Tier:           tier,
			Status:         entitlement.StatusActive,
		}, nil

	case "customer.subscription.created", "customer.subscription.updated":
		sub, err := decodeSubscription(event)
		if err != nil {
			return nil, err
		}
		start, end := sub.periodBounds()
		return &entitlement.BillingEvent{
			ID:                event.ID,
			Type:              entitlement.EventSubscriptionUpdated,
			UserID:            metadataUserID(sub.Metadata),
			CustomerID:        sub.Customer,
			SubscriptionID:    sub.ID,
			Tier:              c.PriceToTier(sub.firstPriceID()),
			Status:            MapStripeStatus(sub.Status),
			PeriodStart:       start,
			PeriodEnd:         end,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}, nil

	case "customer.subscription.deleted":
		sub, err := decodeSubscription(event)
		if err != nil {
			return nil, err
		}
		_, end := sub.periodBounds()
		return &entitlement.BillingEvent{
			ID:                event.ID,
			Type:              entitlement.EventSubscriptionCanceled,
			UserID:            metadataUserID(sub.Metadata),
			CustomerID:        sub.Customer,
			SubscriptionID:    sub.ID,
			PeriodEnd:         end,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}, nil

	default:
		return nil, nil
	}
}

func decodeSubscription(event *stripe.Event) (*subscription, error) {
	var sub subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &sub, nil
}

func sessionUserID(session *checkoutSession) (uuid.UUID, error) {
	raw := session.Metadata["user_id"]
	if raw == "" {
		raw = session.ClientReferenceID
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("checkout session %s has no usable user id: %w", session.ID, err)
	}
	return userID, nil
}

func metadataUserID(metadata map[string]string) uuid.UUID {
	if raw, ok := metadata["user_id"]; ok {
		if userID, err := uuid.Parse(raw); err == nil {
			return userID
		}
	}
	return uuid.Nil
}

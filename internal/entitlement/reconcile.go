package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Billing event classes accepted by the reconciler.
const (
	EventCheckoutCompleted    = "checkout.completed"
	EventSubscriptionUpdated  = "subscription.updated"
	EventSubscriptionCanceled = "subscription.cancelled"
)

// BillingEvent is the normalized form of an external billing notification.
// UserID may be zero for subscription events; the reconciler then resolves
// the user through the billing customer id.
type BillingEvent struct {
	ID                string
	Type              string
	UserID            uuid.UUID
	CustomerID        string
	SubscriptionID    string
	Tier              Tier
	Status            string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CancelAtPeriodEnd bool
}

// Reconciler is the single path by which external truth (billing events,
// admin overrides) enters the entitlement store. Every successful write is
// followed by a coordinated invalidation of the tier, subscription and
// feature-usage caches for that user.
type Reconciler struct {
	store  Store
	ledger EventLedger
	caches *Coordinator
}

func NewReconciler(store Store, ledger EventLedger, caches *Coordinator) *Reconciler {
	return &Reconciler{store: store, ledger: ledger, caches: caches}
}

// ApplyBillingEvent applies one webhook event idempotently. A store failure
// aborts before any cache is touched; a cache-clear failure after a
// successful write is returned as *CacheClearError so callers can report the
// degraded (correct but possibly stale) state distinctly.
func (r *Reconciler) ApplyBillingEvent(ctx context.Context, ev *BillingEvent) error {
	if ev.ID != "" {
		processed, err := r.ledger.AlreadyProcessed(ctx, ev.ID)
		if err != nil {
			return err
		}
		if processed {
			slog.Info("billing event already processed, skipping", "event_id", ev.ID, "type", ev.Type)
			return nil
		}
	}

	userID, err := r.resolveUser(ctx, ev)
	if err != nil {
		return err
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		err = r.applyCheckoutCompleted(ctx, userID, ev)
	case EventSubscriptionUpdated:
		err = r.applySubscriptionUpdated(ctx, userID, ev)
	case EventSubscriptionCanceled:
		_, err = r.store.MarkCancelled(ctx, userID, ev.CancelAtPeriodEnd, ev.PeriodEnd)
	default:
		slog.Info("billing event ignored", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
	if err != nil {
		return err
	}

	if ev.ID != "" {
		if err := r.ledger.MarkProcessed(ctx, ev.ID, ev.Type); err != nil {
			// The write landed; a redelivery will re-apply idempotently.
			slog.Error("failed to record webhook event", "event_id", ev.ID, "error", err)
		}
	}

	return r.invalidate(userID)
}

// ApplyAdminOverride sets a tier directly, bypassing billing linkage.
// Downgrading to free clears any existing billing refs.
func (r *Reconciler) ApplyAdminOverride(ctx context.Context, userID uuid.UUID, tier Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	if _, err := r.store.UpsertTier(ctx, userID, tier, nil); err != nil {
		return err
	}
	slog.Info("admin tier override applied", "user_id", userID.String(), "tier", string(tier))
	return r.invalidate(userID)
}

func (r *Reconciler) resolveUser(ctx context.Context, ev *BillingEvent) (uuid.UUID, error) {
	if ev.UserID != uuid.Nil {
		return ev.UserID, nil
	}
	if ev.CustomerID == "" {
		return uuid.Nil, fmt.Errorf("%w: event %s has no user or customer id", ErrUnknownCustomer, ev.ID)
	}
	sub, err := r.store.FindByCustomerID(ctx, ev.CustomerID)
	if err != nil {
		return uuid.Nil, err
	}
	if sub == nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownCustomer, ev.CustomerID)
	}
	return sub.UserID, nil
}

func (r *Reconciler) applyCheckoutCompleted(ctx context.Context, userID uuid.UUID, ev *BillingEvent) error {
	// First-writer-wins on the customer id so a concurrent second checkout
	// cannot reassign an already linked record.
	if err := r.store.LinkBillingCustomer(ctx, userID, ev.CustomerID); err != nil {
		return err
	}

	refs := &BillingRefs{
		SubscriptionID: ev.SubscriptionID,
		Status:         StatusActive,
		PeriodStart:    ev.PeriodStart,
		PeriodEnd:      ev.PeriodEnd,
	}
	// Checkout events carry no period bounds; provision one cycle and let
	// the follow-up subscription.updated event set the real ones.
	if refs.PeriodStart.IsZero() {
		refs.PeriodStart = time.Now()
	}
	if refs.PeriodEnd.IsZero() {
		refs.PeriodEnd = refs.PeriodStart.AddDate(0, 1, 0)
	}
	_, err := r.store.UpsertTier(ctx, userID, ev.Tier, refs)
	return err
}

func (r *Reconciler) applySubscriptionUpdated(ctx context.Context, userID uuid.UUID, ev *BillingEvent) error {
	status := ev.Status
	if status == "" {
		status = StatusActive
	}
	_, err := r.store.UpsertTier(ctx, userID, ev.Tier, &BillingRefs{
		CustomerID:        ev.CustomerID,
		SubscriptionID:    ev.SubscriptionID,
		Status:            status,
		PeriodStart:       ev.PeriodStart,
		PeriodEnd:         ev.PeriodEnd,
		CancelAtPeriodEnd: ev.CancelAtPeriodEnd,
	})
	return err
}

func (r *Reconciler) invalidate(userID uuid.UUID) error {
	results := r.caches.Invalidate(userID, []Category{CategoryTier, CategorySubscription, CategoryFeatureUsage})
	var failed []Category
	for cat, ok := range results {
		if !ok {
			failed = append(failed, cat)
		}
	}
	if len(failed) > 0 {
		return &CacheClearError{UserID: userID, Failed: failed}
	}
	return nil
}

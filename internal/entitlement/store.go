package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyhall/studyhall-backend/internal/models"
)

// BillingRefs carries the billing-system linkage written alongside a tier
// change. Zero-valued fields are left untouched by UpsertTier.
type BillingRefs struct {
	CustomerID        string
	SubscriptionID    string
	Status            string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CancelAtPeriodEnd bool
}

// Store is the durable record of subscription truth. It is the only writer
// of subscription rows; every cache in this package is advisory on top of it.
type Store interface {
	// Get returns the persisted record, synthesizing (and persisting) a
	// default free/active record on first access. Storage errors wrap
	// ErrStoreUnavailable and must never be treated as "free".
	Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)

	// UpsertTier is idempotent: repeated calls with the same arguments
	// converge to the same state. Setting tier to free clears billing
	// linkage fields.
	UpsertTier(ctx context.Context, userID uuid.UUID, tier Tier, refs *BillingRefs) (*models.Subscription, error)

	// LinkBillingCustomer associates a billing customer id only if none is
	// set yet (first-writer-wins), so a concurrent second checkout cannot
	// orphan an existing paying customer's record.
	LinkBillingCustomer(ctx context.Context, userID uuid.UUID, customerID string) error

	// FindByCustomerID resolves a record from its billing customer id.
	// Returns (nil, nil) when no record is linked to the id.
	FindByCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)

	// MarkCancelled sets status cancelled without touching the tier, so
	// access survives until the current period ends.
	MarkCancelled(ctx context.Context, userID uuid.UUID, cancelAtPeriodEnd bool, periodEnd time.Time) (*models.Subscription, error)
}

// UsageStore persists per-period feature consumption counters.
type UsageStore interface {
	Usage(ctx context.Context, userID uuid.UUID, feature, periodID string) (int64, error)

	// TryIncrement atomically increments the counter only while it is
	// below limit, returning whether the increment happened and the
	// resulting count.
	TryIncrement(ctx context.Context, userID uuid.UUID, feature, periodID string, limit int64) (bool, int64, error)
}

// EventLedger deduplicates at-least-once webhook deliveries by provider
// event id.
type EventLedger interface {
	AlreadyProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

// GormStore implements Store, UsageStore and EventLedger on the relational
// database.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormStore(db *gorm.DB, timeout time.Duration) *GormStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GormStore{db: db, timeout: timeout}
}

func (s *GormStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func (s *GormStore) Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr("get subscription", err)
	}

	sub = defaultRecord(userID)
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		// A concurrent first read may have created the row already.
		var existing models.Subscription
		if ferr := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, storeErr("create default subscription", err)
	}
	return &sub, nil
}

func (s *GormStore) UpsertTier(ctx context.Context, userID uuid.UUID, tier Tier, refs *BillingRefs) (*models.Subscription, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	updates := upsertUpdates(tier, refs)
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Updates(updates).Error; err != nil {
		return nil, storeErr("upsert tier", err)
	}

	var updated models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&updated).Error; err != nil {
		return nil, storeErr("reload subscription", err)
	}
	return &updated, nil
}

// upsertUpdates builds the column set for UpsertTier. Free always clears
// billing linkage; paid tiers only touch ref fields that were supplied.
func upsertUpdates(tier Tier, refs *BillingRefs) map[string]interface{} {
	updates := map[string]interface{}{
		"tier":   string(tier),
		"status": StatusActive,
	}

	if tier == TierFree {
		updates["stripe_customer_id"] = nil
		updates["stripe_subscription_id"] = nil
		updates["cancel_at_period_end"] = false
		if refs != nil && refs.Status != "" {
			updates["status"] = refs.Status
		}
		return updates
	}

	if refs == nil {
		return updates
	}
	if refs.Status != "" {
		updates["status"] = refs.Status
	}
	if refs.CustomerID != "" {
		updates["stripe_customer_id"] = refs.CustomerID
	}
	if refs.SubscriptionID != "" {
		updates["stripe_subscription_id"] = refs.SubscriptionID
	}
	if !refs.PeriodStart.IsZero() {
		updates["current_period_start"] = refs.PeriodStart
	}
	if !refs.PeriodEnd.IsZero() {
		updates["current_period_end"] = refs.PeriodEnd
	}
	updates["cancel_at_period_end"] = refs.CancelAtPeriodEnd
	return updates
}

func (s *GormStore) LinkBillingCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	if customerID == "" {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	// Conditional update: only the first writer lands the customer id.
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND (stripe_customer_id IS NULL OR stripe_customer_id = '')", userID).
		Update("stripe_customer_id", customerID)
	if res.Error != nil {
		return storeErr("link billing customer", res.Error)
	}
	return nil
}

func (s *GormStore) FindByCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find by customer id", err)
	}
	return &sub, nil
}

func (s *GormStore) MarkCancelled(ctx context.Context, userID uuid.UUID, cancelAtPeriodEnd bool, periodEnd time.Time) (*models.Subscription, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":               StatusCancelled,
		"cancel_at_period_end": cancelAtPeriodEnd,
	}
	if !periodEnd.IsZero() {
		updates["current_period_end"] = periodEnd
	}
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Updates(updates).Error; err != nil {
		return nil, storeErr("mark cancelled", err)
	}

	var updated models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&updated).Error; err != nil {
		return nil, storeErr("reload subscription", err)
	}
	return &updated, nil
}

func defaultRecord(userID uuid.UUID) models.Subscription {
	return models.Subscription{
		ID:     uuid.New(),
		UserID: userID,
		Tier:   string(TierFree),
		Status: StatusActive,
	}
}

func (s *GormStore) Usage(ctx context.Context, userID uuid.UUID, feature, periodID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var usage models.FeatureUsage
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND feature = ? AND period_id = ?", userID, feature, periodID).
		First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("read usage", err)
	}
	return usage.Used, nil
}

func (s *GormStore) TryIncrement(ctx context.Context, userID uuid.UUID, feature, periodID string, limit int64) (bool, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := models.FeatureUsage{
		ID:       uuid.New(),
		UserID:   userID,
		Feature:  feature,
		PeriodID: periodID,
	}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND feature = ? AND period_id = ?", userID, feature, periodID).
		FirstOrCreate(&row).Error; err != nil {
		return false, 0, storeErr("ensure usage row", err)
	}

	// The guard condition makes the increment safe under concurrent admits:
	// no interleaving can push the counter past the limit.
	res := s.db.WithContext(ctx).Model(&models.FeatureUsage{}).
		Where("user_id = ? AND feature = ? AND period_id = ? AND used < ?", userID, feature, periodID, limit).
		UpdateColumn("used", gorm.Expr("used + 1"))
	if res.Error != nil {
		return false, 0, storeErr("increment usage", res.Error)
	}

	used, err := s.Usage(ctx, userID, feature, periodID)
	if err != nil {
		return false, 0, err
	}
	return res.RowsAffected > 0, used, nil
}

func (s *GormStore) AlreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var event models.WebhookEvent
	err := s.db.WithContext(ctx).Where("provider_event_id = ?", eventID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("read webhook ledger", err)
	}
	return event.ProcessedAt != nil, nil
}

func (s *GormStore) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	event := models.WebhookEvent{
		ID:              uuid.New(),
		ProviderEventID: eventID,
		EventType:       eventType,
		ProcessedAt:     &now,
	}
	if err := s.db.WithContext(ctx).
		Where("provider_event_id = ?", eventID).
		Assign(map[string]interface{}{"processed_at": now, "event_type": eventType}).
		FirstOrCreate(&event).Error; err != nil {
		return storeErr("mark webhook processed", err)
	}
	return nil
}

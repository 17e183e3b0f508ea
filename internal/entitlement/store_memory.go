package entitlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyhall/studyhall-backend/internal/models"
)

// MemoryStore is an in-memory Store/UsageStore used by tests and local
// tooling. Setting Err makes every operation fail with it, which is how
// store-outage behavior is exercised.
type MemoryStore struct {
	mu    sync.Mutex
	subs  map[uuid.UUID]models.Subscription
	usage map[string]int64

	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:  make(map[uuid.UUID]models.Subscription),
		usage: make(map[string]int64),
	}
}

func (m *MemoryStore) Get(_ context.Context, userID uuid.UUID) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, m.Err)
	}
	sub, ok := m.subs[userID]
	if !ok {
		sub = defaultRecord(userID)
		sub.CreatedAt = time.Now()
		m.subs[userID] = sub
	}
	cp := sub
	return &cp, nil
}

func (m *MemoryStore) UpsertTier(_ context.Context, userID uuid.UUID, tier Tier, refs *BillingRefs) (*models.Subscription, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, m.Err)
	}

	sub, ok := m.subs[userID]
	if !ok {
		sub = defaultRecord(userID)
	}
	sub.Tier = string(tier)
	sub.Status = StatusActive
	if tier == TierFree {
		sub.StripeCustomerID = nil
		sub.StripeSubscriptionID = nil
		sub.CancelAtPeriodEnd = false
		if refs != nil && refs.Status != "" {
			sub.Status = refs.Status
		}
	} else if refs != nil {
		if refs.Status != "" {
			sub.Status = refs.Status
		}
		if refs.CustomerID != "" {
			cid := refs.CustomerID
			sub.StripeCustomerID = &cid
		}
		if refs.SubscriptionID != "" {
			sid := refs.SubscriptionID
			sub.StripeSubscriptionID = &sid
		}
		if !refs.PeriodStart.IsZero() {
			sub.CurrentPeriodStart = refs.PeriodStart
		}
		if !refs.PeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = refs.PeriodEnd
		}
		sub.CancelAtPeriodEnd = refs.CancelAtPeriodEnd
	}
	sub.UpdatedAt = time.Now()
	m.subs[userID] = sub
	cp := sub
	return &cp, nil
}

func (m *MemoryStore) LinkBillingCustomer(_ context.Context, userID uuid.UUID, customerID string) error {
	if customerID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, m.Err)
	}
	sub, ok := m.subs[userID]
	if !ok {
		sub = defaultRecord(userID)
	}
	if sub.StripeCustomerID == nil || *sub.StripeCustomerID == "" {
		cid := customerID
		sub.StripeCustomerID = &cid
	}
	m.subs[userID] = sub
	return nil
}

func (m *MemoryStore) FindByCustomerID(_ context.Context, customerID string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, m.Err)
	}
	for _, sub := range m.subs {
		if sub.StripeCustomerID != nil && *sub.StripeCustomerID == customerID {
			cp := sub
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) MarkCancelled(_ context.Context, userID uuid.UUID, cancelAtPeriodEnd bool, periodEnd time.Time) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, m.Err)
	}
	sub, ok := m.subs[userID]
	if !ok {
		sub = defaultRecord(userID)
	}
	sub.Status = StatusCancelled
	sub.CancelAtPeriodEnd = cancelAtPeriodEnd
	if !periodEnd.IsZero() {
		sub.CurrentPeriodEnd = periodEnd
	}
	m.subs[userID] = sub
	cp := sub
	return &cp, nil
}

func (m *MemoryStore) usageKey(userID uuid.UUID, feature, periodID string) string {
	return userID.String() + ":" + feature + ":" + periodID
}

func (m *MemoryStore) Usage(_ context.Context, userID uuid.UUID, feature, periodID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, m.Err)
	}
	return m.usage[m.usageKey(userID, feature, periodID)], nil
}

func (m *MemoryStore) TryIncrement(_ context.Context, userID uuid.UUID, feature, periodID string, limit int64) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, m.Err)
	}
	key := m.usageKey(userID, feature, periodID)
	used := m.usage[key]
	if used >= limit {
		return false, used, nil
	}
	used++
	m.usage[key] = used
	return true, used, nil
}

// MemoryLedger is an in-memory EventLedger.
type MemoryLedger struct {
	mu        sync.Mutex
	processed map[string]string

	Err error
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{processed: make(map[string]string)}
}

func (l *MemoryLedger) AlreadyProcessed(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, l.Err)
	}
	_, ok := l.processed[eventID]
	return ok, nil
}

func (l *MemoryLedger) MarkProcessed(_ context.Context, eventID, eventType string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, l.Err)
	}
	l.processed[eventID] = eventType
	return nil
}

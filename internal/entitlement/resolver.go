package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyhall/studyhall-backend/internal/models"
)

const (
	tierCacheSize         = 8192
	subscriptionCacheSize = 4096
	usageCacheSize        = 16384
)

// tierEntry is what the tier cache holds: the resolved effective tier plus
// the billing-period identifier derived from the same record, so quota
// checks key their counters without a second store round-trip.
type tierEntry struct {
	Tier     Tier
	PeriodID string
}

// Resolver owns the three server-side entitlement caches and the repopulate
// path from the durable store. Caches are advisory: they may be cleared at
// any time and rebuilt lazily on the next read.
type Resolver struct {
	store Store
	tiers *TTLCache[tierEntry]
	subs  *TTLCache[models.Subscription]
	usage *TTLCache[int64]
	now   func() time.Time
}

func NewResolver(store Store, tierTTL, subscriptionTTL time.Duration) (*Resolver, error) {
	tiers, err := NewTTLCache[tierEntry](tierCacheSize, tierTTL)
	if err != nil {
		return nil, err
	}
	subs, err := NewTTLCache[models.Subscription](subscriptionCacheSize, subscriptionTTL)
	if err != nil {
		return nil, err
	}
	// Usage entries are period-keyed; the wall-clock TTL only bounds how
	// long a counter can outlive its billing period in memory.
	usage, err := NewTTLCache[int64](usageCacheSize, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		store: store,
		tiers: tiers,
		subs:  subs,
		usage: usage,
		now:   time.Now,
	}, nil
}

// Entitlement resolves the user's effective tier and billing-period id,
// repopulating the tier cache from the store on a miss. A store failure is
// returned as-is; the caller decides how to fail closed.
func (r *Resolver) Entitlement(ctx context.Context, userID uuid.UUID) (Tier, string, error) {
	key := userID.String()
	if entry, ok := r.tiers.Lookup(key); ok {
		return entry.Tier, entry.PeriodID, nil
	}

	sub, err := r.Subscription(ctx, userID)
	if err != nil {
		return "", "", err
	}
	now := r.now()
	entry := tierEntry{Tier: EffectiveTier(sub, now), PeriodID: PeriodID(sub, now)}
	r.tiers.Store(key, entry)
	return entry.Tier, entry.PeriodID, nil
}

// Subscription returns the full record via the subscription cache,
// repopulating from the store on a miss. The cache holds copies, never
// pointers into another caller's record.
func (r *Resolver) Subscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	key := userID.String()
	if cached, ok := r.subs.Lookup(key); ok {
		cp := cached
		return &cp, nil
	}

	sub, err := r.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.subs.Store(key, *sub)
	return sub, nil
}

// Coordinator wires the resolver's caches into the invalidation boundary.
func (r *Resolver) Coordinator() *Coordinator {
	return NewCoordinator(
		func(userID uuid.UUID) error {
			r.tiers.Clear(userID.String())
			return nil
		},
		func(userID uuid.UUID) error {
			r.subs.Clear(userID.String())
			return nil
		},
		func(userID uuid.UUID) error {
			r.usage.ClearPrefix(userID.String() + ":")
			return nil
		},
	)
}

func usageKey(userID uuid.UUID, feature, periodID string) string {
	return userID.String() + ":" + feature + ":" + periodID
}

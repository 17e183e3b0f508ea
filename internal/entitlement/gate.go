package entitlement

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/studyhall/studyhall-backend/internal/features"
)

type DenyReason string

const (
	DenyQuotaExceeded    DenyReason = "quota_exceeded"
	DenyNotInTier        DenyReason = "not_in_tier"
	DenyStoreUnavailable DenyReason = "store_unavailable"
)

// Decision is the outcome of a quota gate check.
type Decision struct {
	Allowed   bool       `json:"allowed"`
	Reason    DenyReason `json:"reason,omitempty"`
	Tier      Tier       `json:"tier,omitempty"`
	Limit     int64      `json:"limit"`
	Remaining int64      `json:"remaining"`
}

func allow(tier Tier, limit, remaining int64) Decision {
	return Decision{Allowed: true, Tier: tier, Limit: limit, Remaining: remaining}
}

func deny(reason DenyReason, tier Tier, limit int64) Decision {
	return Decision{Allowed: false, Reason: reason, Tier: tier, Limit: limit}
}

// Gate admits or rejects feature invocations based on the caller's current
// tier and per-period usage. Tier resolution goes through the tier cache, so
// an upgrade is honored within one cache TTL at worst.
type Gate struct {
	resolver *Resolver
	usage    UsageStore
	limits   *features.Registry
}

func NewGate(resolver *Resolver, usage UsageStore, limits *features.Registry) *Gate {
	return &Gate{resolver: resolver, usage: usage, limits: limits}
}

// Admit checks and consumes one unit of the feature's quota. When the store
// cannot be reached it fails closed for anything gated by tier or count;
// only features the free tier gets unlimited anyway fail open.
func (g *Gate) Admit(ctx context.Context, userID uuid.UUID, feature string) Decision {
	tier, periodID, err := g.resolver.Entitlement(ctx, userID)
	if err != nil {
		freeLimit := g.limits.Limit(feature, string(TierFree))
		if freeLimit == features.Unlimited {
			return allow(TierFree, features.Unlimited, features.Unlimited)
		}
		slog.Error("entitlement resolution failed, denying", "user_id", userID.String(), "feature", feature, "error", err)
		return deny(DenyStoreUnavailable, "", 0)
	}

	limit := g.limits.Limit(feature, string(tier))
	switch {
	case limit == features.Unlimited:
		return allow(tier, features.Unlimited, features.Unlimited)
	case limit <= 0:
		return deny(DenyNotInTier, tier, 0)
	}

	key := usageKey(userID, feature, periodID)
	if used, ok := g.resolver.usage.Lookup(key); ok && used >= limit {
		return deny(DenyQuotaExceeded, tier, limit)
	}

	ok, used, err := g.usage.TryIncrement(ctx, userID, feature, periodID, limit)
	if err != nil {
		slog.Error("usage increment failed, denying", "user_id", userID.String(), "feature", feature, "error", err)
		return deny(DenyStoreUnavailable, tier, limit)
	}
	g.resolver.usage.Store(key, used)
	if !ok {
		return deny(DenyQuotaExceeded, tier, limit)
	}
	return allow(tier, limit, limit-used)
}

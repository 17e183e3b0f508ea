package entitlement

import (
	"fmt"
	"time"

	"github.com/studyhall/studyhall-backend/internal/models"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPlus Tier = "plus"
	TierMax  Tier = "max"
)

// Subscription status values. past_due keeps access (billing grace window);
// inactive never grants paid access.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusPastDue   = "past_due"
	StatusInactive  = "inactive"
)

func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFree, TierPlus, TierMax:
		return Tier(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
}

func (t Tier) Valid() bool {
	_, err := ParseTier(string(t))
	return err == nil
}

// EffectiveTier resolves the tier a record grants right now. Cancellation is
// enforced lazily at read time: a cancelled subscription keeps its paid tier
// until the current period ends, then resolves to free. No scheduled sweep.
func EffectiveTier(sub *models.Subscription, now time.Time) Tier {
	if sub == nil {
		return TierFree
	}
	tier, err := ParseTier(sub.Tier)
	if err != nil {
		return TierFree
	}
	switch sub.Status {
	case StatusActive, StatusPastDue:
		return tier
	case StatusCancelled:
		if !sub.CurrentPeriodEnd.IsZero() && now.Before(sub.CurrentPeriodEnd) {
			return tier
		}
		return TierFree
	default:
		return TierFree
	}
}

// PeriodID identifies the usage-counter window. Paid subscriptions key off
// the billing period start so counters reset on renewal; free-tier users key
// off the calendar month.
func PeriodID(sub *models.Subscription, now time.Time) string {
	if sub == nil || sub.CurrentPeriodStart.IsZero() || EffectiveTier(sub, now) == TierFree {
		return "cal-" + now.UTC().Format("2006-01")
	}
	return sub.CurrentPeriodStart.UTC().Format("2006-01-02")
}

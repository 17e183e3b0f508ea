package entitlement

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Category names a cache partition that can be invalidated independently.
type Category string

const (
	CategorySubscription Category = "subscription"
	CategoryTier         Category = "tier"
	CategoryProfile      Category = "profile"
	CategoryFeatureUsage Category = "featureUsage"
)

// AllCategories lists every invalidatable category.
var AllCategories = []Category{CategorySubscription, CategoryTier, CategoryProfile, CategoryFeatureUsage}

// ParseCategories validates a caller-supplied category list.
func ParseCategories(raw []string) ([]Category, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty category list")
	}
	cats := make([]Category, 0, len(raw))
	for _, s := range raw {
		switch Category(s) {
		case CategorySubscription, CategoryTier, CategoryProfile, CategoryFeatureUsage:
			cats = append(cats, Category(s))
		default:
			return nil, fmt.Errorf("unknown cache category %q", s)
		}
	}
	return cats, nil
}

// ClearFunc removes one user's entries from a single cache partition.
type ClearFunc func(userID uuid.UUID) error

// Coordinator clears exactly the requested cache categories for a user and
// reports per-category success. One category failing never blocks the
// others, and repeated calls are side-effect free beyond the clears
// themselves.
type Coordinator struct {
	clearers map[Category]ClearFunc
}

func NewCoordinator(tier, subscription, featureUsage ClearFunc) *Coordinator {
	return &Coordinator{
		clearers: map[Category]ClearFunc{
			CategoryTier:         tier,
			CategorySubscription: subscription,
			CategoryFeatureUsage: featureUsage,
		},
	}
}

// Invalidate clears the given categories for one user. The profile category
// lives in client storage and cannot be reached from the server, so it is
// acknowledged as a trivial success.
func (c *Coordinator) Invalidate(userID uuid.UUID, categories []Category) map[Category]bool {
	results := make(map[Category]bool, len(categories))
	for _, cat := range categories {
		if _, done := results[cat]; done {
			continue
		}
		if cat == CategoryProfile {
			results[cat] = true
			continue
		}
		clear, ok := c.clearers[cat]
		if !ok || clear == nil {
			results[cat] = false
			continue
		}
		if err := clear(userID); err != nil {
			slog.Error("cache clear failed", "category", string(cat), "user_id", userID.String(), "error", err)
			results[cat] = false
			continue
		}
		results[cat] = true
	}
	return results
}

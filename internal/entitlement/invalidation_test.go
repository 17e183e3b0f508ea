package entitlement

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategories(t *testing.T) {
	t.Run("accepts every known category", func(t *testing.T) {
		cats, err := ParseCategories([]string{"subscription", "tier", "profile", "featureUsage"})
		require.NoError(t, err)
		assert.Equal(t, AllCategories, cats)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := ParseCategories([]string{"tier", "sessions"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sessions")
	})

	t.Run("rejects empty list", func(t *testing.T) {
		_, err := ParseCategories(nil)
		assert.Error(t, err)
	})
}

func TestCoordinatorInvalidate(t *testing.T) {
	userID := uuid.New()

	t.Run("clears only requested categories", func(t *testing.T) {
		var tierCleared, subCleared, usageCleared bool
		coord := NewCoordinator(
			func(uuid.UUID) error { tierCleared = true; return nil },
			func(uuid.UUID) error { subCleared = true; return nil },
			func(uuid.UUID) error { usageCleared = true; return nil },
		)

		results := coord.Invalidate(userID, []Category{CategoryTier})
		assert.Equal(t, map[Category]bool{CategoryTier: true}, results)
		assert.True(t, tierCleared)
		assert.False(t, subCleared)
		assert.False(t, usageCleared)
	})

	t.Run("one failure never blocks the others", func(t *testing.T) {
		coord := NewCoordinator(
			func(uuid.UUID) error { return errors.New("boom") },
			func(uuid.UUID) error { return nil },
			func(uuid.UUID) error { return nil },
		)

		results := coord.Invalidate(userID, []Category{CategoryTier, CategorySubscription, CategoryFeatureUsage})
		assert.False(t, results[CategoryTier])
		assert.True(t, results[CategorySubscription])
		assert.True(t, results[CategoryFeatureUsage])
	})

	t.Run("profile is acknowledged without a clearer", func(t *testing.T) {
		coord := NewCoordinator(
			func(uuid.UUID) error { return nil },
			func(uuid.UUID) error { return nil },
			func(uuid.UUID) error { return nil },
		)

		results := coord.Invalidate(userID, []Category{CategoryProfile})
		assert.True(t, results[CategoryProfile])
	})

	t.Run("duplicate categories are cleared once", func(t *testing.T) {
		calls := 0
		coord := NewCoordinator(
			func(uuid.UUID) error { calls++; return nil },
			func(uuid.UUID) error { return nil },
			func(uuid.UUID) error { return nil },
		)

		results := coord.Invalidate(userID, []Category{CategoryTier, CategoryTier, CategoryTier})
		assert.Equal(t, 1, calls)
		assert.True(t, results[CategoryTier])
	})
}

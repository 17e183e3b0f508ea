package entitlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studyhall/studyhall-backend/internal/models"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A pooled :memory: DSN would hand each connection its own database;
	// pin the pool to one connection so every query sees the same store.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.FeatureUsage{}, &models.WebhookEvent{}))
	return NewGormStore(db, 5*time.Second)
}

func TestGormStoreGetSynthesizesDefault(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()

	sub, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, sub.UserID)
	assert.Equal(t, "free", sub.Tier)
	assert.Equal(t, StatusActive, sub.Status)

	// Second read returns the same persisted row.
	again, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
}

func TestGormStoreUpsertTier(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()
	periodStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rejects invalid tier", func(t *testing.T) {
		_, err := store.UpsertTier(context.Background(), userID, Tier("gold"), nil)
		assert.ErrorIs(t, err, ErrInvalidTier)
	})

	t.Run("writes paid tier with refs", func(t *testing.T) {
		sub, err := store.UpsertTier(context.Background(), userID, TierPlus, &BillingRefs{
			CustomerID:     "cus_1",
			SubscriptionID: "sub_1",
			Status:         StatusActive,
			PeriodStart:    periodStart,
			PeriodEnd:      periodStart.AddDate(0, 1, 0),
		})
		require.NoError(t, err)
		assert.Equal(t, "plus", sub.Tier)
		require.NotNil(t, sub.StripeCustomerID)
		assert.Equal(t, "cus_1", *sub.StripeCustomerID)
		assert.Equal(t, periodStart.Unix(), sub.CurrentPeriodStart.Unix())
	})

	t.Run("is idempotent", func(t *testing.T) {
		first, err := store.UpsertTier(context.Background(), userID, TierPlus, &BillingRefs{SubscriptionID: "sub_1"})
		require.NoError(t, err)
		second, err := store.UpsertTier(context.Background(), userID, TierPlus, &BillingRefs{SubscriptionID: "sub_1"})
		require.NoError(t, err)
		assert.Equal(t, first.Tier, second.Tier)
		assert.Equal(t, first.StripeSubscriptionID, second.StripeSubscriptionID)
	})

	t.Run("downgrade to free clears billing linkage", func(t *testing.T) {
		sub, err := store.UpsertTier(context.Background(), userID, TierFree, nil)
		require.NoError(t, err)
		assert.Equal(t, "free", sub.Tier)
		assert.Nil(t, sub.StripeCustomerID)
		assert.Nil(t, sub.StripeSubscriptionID)
		assert.False(t, sub.CancelAtPeriodEnd)
	})
}

func TestGormStoreLinkBillingCustomerFirstWriterWins(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()

	require.NoError(t, store.LinkBillingCustomer(context.Background(), userID, "cus_first"))
	require.NoError(t, store.LinkBillingCustomer(context.Background(), userID, "cus_second"))

	sub, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, sub.StripeCustomerID)
	assert.Equal(t, "cus_first", *sub.StripeCustomerID, "a second checkout must not reassign the customer id")
}

func TestGormStoreFindByCustomerID(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()
	require.NoError(t, store.LinkBillingCustomer(context.Background(), userID, "cus_find"))

	sub, err := store.FindByCustomerID(context.Background(), "cus_find")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, userID, sub.UserID)

	missing, err := store.FindByCustomerID(context.Background(), "cus_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGormStoreMarkCancelled(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()
	periodEnd := time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Second)

	_, err := store.UpsertTier(context.Background(), userID, TierMax, &BillingRefs{SubscriptionID: "sub_c"})
	require.NoError(t, err)

	sub, err := store.MarkCancelled(context.Background(), userID, true, periodEnd)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, "max", sub.Tier, "cancellation must not strip the tier before the period ends")
	assert.Equal(t, periodEnd.Unix(), sub.CurrentPeriodEnd.Unix())
}

func TestGormStoreTryIncrement(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()

	for i := int64(1); i <= 3; i++ {
		ok, used, err := store.TryIncrement(context.Background(), userID, "practice_attempts", "cal-2026-03", 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, used)
	}

	ok, used, err := store.TryIncrement(context.Background(), userID, "practice_attempts", "cal-2026-03", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(3), used, "counter never passes the limit")

	// A different period starts a fresh counter.
	ok, used, err = store.TryIncrement(context.Background(), userID, "practice_attempts", "cal-2026-04", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), used)
}

func TestGormStoreTryIncrementConcurrent(t *testing.T) {
	store := newTestStore(t)
	userID := uuid.New()
	const limit = 10
	const workers = 25

	var wg sync.WaitGroup
	admitted := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := store.TryIncrement(context.Background(), userID, "video_hd", "2026-03-01", limit)
			if err == nil && ok {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	assert.Equal(t, limit, count, "exactly limit admits under concurrency")

	used, err := store.Usage(context.Background(), userID, "video_hd", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(limit), used)
}

func TestGormStoreEventLedger(t *testing.T) {
	store := newTestStore(t)

	processed, err := store.AlreadyProcessed(context.Background(), "evt_new")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, store.MarkProcessed(context.Background(), "evt_new", "checkout.completed"))

	processed, err = store.AlreadyProcessed(context.Background(), "evt_new")
	require.NoError(t, err)
	assert.True(t, processed)

	// Marking again is safe.
	require.NoError(t, store.MarkProcessed(context.Background(), "evt_new", "checkout.completed"))
}

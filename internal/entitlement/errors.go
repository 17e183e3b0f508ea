package entitlement

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrStoreUnavailable means the durable store could not be reached.
	// Callers must fail closed, never default to a tier.
	ErrStoreUnavailable = errors.New("entitlement store unavailable")

	// ErrInvalidTier rejects tier values outside the closed set.
	ErrInvalidTier = errors.New("invalid tier")

	// ErrUnknownCustomer means a billing event referenced a customer id
	// with no local subscription record.
	ErrUnknownCustomer = errors.New("no subscription for billing customer")
)

// CacheClearError reports invalidation categories that failed after a store
// write already succeeded. The record is correct; stale caches self-heal via
// TTL expiry.
type CacheClearError struct {
	UserID uuid.UUID
	Failed []Category
}

func (e *CacheClearError) Error() string {
	return fmt.Sprintf("cache clear failed for user %s: %v", e.UserID, e.Failed)
}

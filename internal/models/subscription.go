package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the durable entitlement record. One row per user; a
// missing row means free/active. Rows are never hard-deleted — downgrading
// to free clears the Stripe linkage instead.
type Subscription struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Tier                 string    `gorm:"size:20;not null;default:'free'" json:"tier"`
	Status               string    `gorm:"size:20;not null;default:'active'" json:"status"`
	StripeCustomerID     *string   `gorm:"size:255;index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string   `gorm:"size:255;index" json:"stripe_subscription_id,omitempty"`
	CurrentPeriodStart   time.Time `json:"current_period_start"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool      `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

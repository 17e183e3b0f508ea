package models

import (
	"time"

	"github.com/google/uuid"
)

// FeatureUsage is the durable per-period consumption counter backing the
// usage cache. Counters reset implicitly when the period id changes.
type FeatureUsage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_user_feature_period" json:"user_id"`
	Feature   string    `gorm:"size:100;not null;uniqueIndex:idx_usage_user_feature_period" json:"feature"`
	PeriodID  string    `gorm:"size:32;not null;uniqueIndex:idx_usage_user_feature_period" json:"period_id"`
	Used      int64     `gorm:"not null;default:0" json:"used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

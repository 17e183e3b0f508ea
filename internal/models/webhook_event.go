package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records processed billing webhook deliveries so at-least-once
// delivery can be deduplicated by provider event id.
type WebhookEvent struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderEventID string     `gorm:"size:191;not null;uniqueIndex" json:"provider_event_id"`
	EventType       string     `gorm:"size:100;not null;index" json:"event_type"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

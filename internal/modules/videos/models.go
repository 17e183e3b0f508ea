package videos

import (
	"time"

	"github.com/google/uuid"
)

type Video struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Subject         string    `gorm:"index;not null" json:"subject"`
	Title           string    `gorm:"not null" json:"title"`
	DurationSeconds int       `gorm:"default:0" json:"duration_seconds"`
	SDURL           string    `gorm:"not null" json:"-"`
	HDURL           string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Video) TableName() string {
	return "videos"
}

const (
	QualitySD = "sd"
	QualityHD = "hd"
)

// DTOs

type CreateVideoRequest struct {
	Subject         string `json:"subject"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	SDURL           string `json:"sd_url"`
	HDURL           string `json:"hd_url"`
}

type PlaybackRequest struct {
	Quality string `json:"quality"`
}

type PlaybackResponse struct {
	URL       string `json:"url"`
	Quality   string `json:"quality"`
	Remaining int64  `json:"remaining,omitempty"`
}

package practice

import (
	"time"

	"github.com/google/uuid"
)

type PracticePack struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Subject       string    `gorm:"index;not null" json:"subject"`
	Title         string    `gorm:"not null" json:"title"`
	Difficulty    string    `gorm:"default:'medium'" json:"difficulty"`
	QuestionCount int       `gorm:"default:0" json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (PracticePack) TableName() string {
	return "practice_packs"
}

type PracticeAttempt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	PackID    uuid.UUID `gorm:"type:uuid;index;not null" json:"pack_id"`
	Score     int       `gorm:"not null" json:"score"`
	MaxScore  int       `gorm:"not null" json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
}

func (PracticeAttempt) TableName() string {
	return "practice_attempts"
}

// Difficulties accepted for a practice pack.
var Difficulties = []string{"easy", "medium", "hard"}

// DTOs

type CreatePackRequest struct {
	Subject       string `json:"subject"`
	Title         string `json:"title"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"question_count"`
}

type SubmitAttemptRequest struct {
	Score    int `json:"score"`
	MaxScore int `json:"max_score"`
}

type AttemptResponse struct {
	Attempt   *PracticeAttempt `json:"attempt"`
	Remaining int64            `json:"remaining"`
	Limit     int64            `json:"limit"`
}

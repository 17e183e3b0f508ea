package tutor

import (
	"time"

	"github.com/google/uuid"
)

type TutorExchange struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Subject   string    `gorm:"index" json:"subject"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

func (TutorExchange) TableName() string {
	return "tutor_exchanges"
}

// DTOs

type AskRequest struct {
	Subject  string `json:"subject"`
	Question string `json:"question"`
}

type AskResponse struct {
	Exchange  *TutorExchange `json:"exchange"`
	Remaining int64          `json:"remaining"`
}

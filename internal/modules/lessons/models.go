package lessons

import (
	"time"

	"github.com/google/uuid"
)

type Lesson struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Subject   string    `gorm:"index;not null" json:"subject"`
	Title     string    `gorm:"not null" json:"title"`
	Summary   string    `json:"summary"`
	Body      string    `gorm:"type:text" json:"body,omitempty"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// DTOs

type CreateLessonRequest struct {
	Subject  string `json:"subject"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Body     string `json:"body"`
	Position int    `json:"position"`
}

type LessonListItem struct {
	ID       uuid.UUID `json:"id"`
	Subject  string    `json:"subject"`
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Position int       `json:"position"`
}

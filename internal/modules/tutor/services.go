package tutor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyhall/studyhall-backend/internal/modules/lessons"
)

var ErrEmptyQuestion = errors.New("question must not be empty")

const maxQuestionLen = 2000

type TutorService struct {
	db *gorm.DB
}

func NewTutorService(db *gorm.DB) *TutorService {
	return &TutorService{db: db}
}

// Ask records a question and produces an answer grounded in the lesson
// library for the given subject.
func (s *TutorService) Ask(userID uuid.UUID, req AskRequest) (*TutorExchange, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if len(question) > maxQuestionLen {
		question = question[:maxQuestionLen]
	}

	answer, err := s.composeAnswer(req.Subject, question)
	if err != nil {
		return nil, err
	}

	exchange := TutorExchange{
		ID:       uuid.New(),
		UserID:   userID,
		Subject:  req.Subject,
		Question: question,
		Answer:   answer,
	}
	if err := s.db.Create(&exchange).Error; err != nil {
		return nil, fmt.Errorf("failed to record tutor exchange: %w", err)
	}
	return &exchange, nil
}

// composeAnswer assembles a reply from the lesson library. Up to three
// matching lessons are cited; with no match the tutor says so rather than
// inventing content.
func (s *TutorService) composeAnswer(subject string, question string) (string, error) {
	query := s.db.Model(&lessons.Lesson{}).Order("position ASC").Limit(3)
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var matches []lessons.LessonListItem
	if err := query.Find(&matches).Error; err != nil {
		return "", fmt.Errorf("failed to search lessons: %w", err)
	}

	if len(matches) == 0 {
		return "I could not find course material covering that yet. Try rephrasing or pick a subject from the lesson library.", nil
	}

	var b strings.Builder
	b.WriteString("Here is what the course material says:\n")
	for _, l := range matches {
		b.WriteString(fmt.Sprintf("\n- %s: %s", l.Title, l.Summary))
	}
	b.WriteString("\n\nOpen the referenced lessons for the full walkthrough.")
	return b.String(), nil
}

// GetUserExchanges returns the user's past questions, newest first.
func (s *TutorService) GetUserExchanges(userID uuid.UUID, limit int, offset int) ([]TutorExchange, int64, error) {
	var exchanges []TutorExchange
	var total int64

	if err := s.db.Model(&TutorExchange{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exchanges: %w", err)
	}

	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&exchanges).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exchanges: %w", err)
	}
	return exchanges, total, nil
}

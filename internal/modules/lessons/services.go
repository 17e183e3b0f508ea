package lessons

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrLessonNotFound = errors.New("lesson not found")

type LessonService struct {
	db *gorm.DB
}

func NewLessonService(db *gorm.DB) *LessonService {
	return &LessonService{db: db}
}

// ListLessons returns lesson summaries, optionally filtered by subject,
// ordered by position within each subject.
func (s *LessonService) ListLessons(subject string) ([]LessonListItem, error) {
	query := s.db.Model(&Lesson{}).Order("subject ASC, position ASC")
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var items []LessonListItem
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return items, nil
}

// GetLesson returns a full lesson including its body.
func (s *LessonService) GetLesson(id uuid.UUID) (*Lesson, error) {
	var lesson Lesson
	if err := s.db.First(&lesson, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &lesson, nil
}

// CreateLesson inserts a new lesson.
func (s *LessonService) CreateLesson(req CreateLessonRequest) (*Lesson, error) {
	lesson := Lesson{
		ID:       uuid.New(),
		Subject:  req.Subject,
		Title:    req.Title,
		Summary:  req.Summary,
		Body:     req.Body,
		Position: req.Position,
	}
	if err := s.db.Create(&lesson).Error; err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}
	return &lesson, nil
}

// UpdateLesson overwrites the mutable fields of an existing lesson.
func (s *LessonService) UpdateLesson(id uuid.UUID, req CreateLessonRequest) (*Lesson, error) {
	lesson, err := s.GetLesson(id)
	if err != nil {
		return nil, err
	}

	lesson.Subject = req.Subject
	lesson.Title = req.Title
	lesson.Summary = req.Summary
	lesson.Body = req.Body
	lesson.Position = req.Position

	if err := s.db.Save(lesson).Error; err != nil {
		return nil, fmt.Errorf("failed to update lesson: %w", err)
	}
	return lesson, nil
}

// DeleteLesson removes a lesson.
func (s *LessonService) DeleteLesson(id uuid.UUID) error {
	result := s.db.Delete(&Lesson{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete lesson: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLessonNotFound
	}
	return nil
}

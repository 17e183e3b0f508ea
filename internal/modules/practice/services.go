package practice

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPackNotFound      = errors.New("practice pack not found")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidScore      = errors.New("score must be between 0 and max_score")
)

type PracticeService struct {
	db *gorm.DB
}

func NewPracticeService(db *gorm.DB) *PracticeService {
	return &PracticeService{db: db}
}

func (s *PracticeService) ListPacks(subject string) ([]PracticePack, error) {
	query := s.db.Order("subject ASC, title ASC")
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var packs []PracticePack
	if err := query.Find(&packs).Error; err != nil {
		return nil, fmt.Errorf("failed to list practice packs: %w", err)
	}
	return packs, nil
}

func (s *PracticeService) GetPack(id uuid.UUID) (*PracticePack, error) {
	var pack PracticePack
	if err := s.db.First(&pack, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackNotFound
		}
		return nil, fmt.Errorf("failed to get practice pack: %w", err)
	}
	return &pack, nil
}

func (s *PracticeService) CreatePack(req CreatePackRequest) (*PracticePack, error) {
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	valid := false
	for _, d := range Difficulties {
		if d == req.Difficulty {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidDifficulty
	}

	pack := PracticePack{
		ID:            uuid.New(),
		Subject:       req.Subject,
		Title:         req.Title,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
	}
	if err := s.db.Create(&pack).Error; err != nil {
		return nil, fmt.Errorf("failed to create practice pack: %w", err)
	}
	return &pack, nil
}

// RecordAttempt stores a completed attempt. Quota admission happens before
// this is called; a failed insert here does not refund the consumed unit.
func (s *PracticeService) RecordAttempt(userID uuid.UUID, packID uuid.UUID, req SubmitAttemptRequest) (*PracticeAttempt, error) {
	if _, err := s.GetPack(packID); err != nil {
		return nil, err
	}
	if req.MaxScore <= 0 || req.Score < 0 || req.Score > req.MaxScore {
		return nil, ErrInvalidScore
	}

	attempt := PracticeAttempt{
		ID:       uuid.New(),
		UserID:   userID,
		PackID:   packID,
		Score:    req.Score,
		MaxScore: req.MaxScore,
	}
	if err := s.db.Create(&attempt).Error; err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	return &attempt, nil
}

// GetUserAttempts returns the user's attempts, newest first.
func (s *PracticeService) GetUserAttempts(userID uuid.UUID, limit int, offset int) ([]PracticeAttempt, int64, error) {
	var attempts []PracticeAttempt
	var total int64

	if err := s.db.Model(&PracticeAttempt{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

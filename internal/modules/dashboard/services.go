package dashboard

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/studyhall/studyhall-backend/internal/modules/practice"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Summary aggregates practice activity over the trailing window. Scores are
// normalized to a 0-100 scale before averaging so packs with different
// max_score values compare.
func (s *DashboardService) Summary(windowDays int) (*SummaryResponse, error) {
	since := time.Now().AddDate(0, 0, -windowDays)
	attempts := s.db.Model(&practice.PracticeAttempt{}).Where("created_at >= ?", since)

	var total int64
	if err := attempts.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	var activeUsers int64
	if err := s.db.Model(&practice.PracticeAttempt{}).
		Where("created_at >= ?", since).
		Distinct("user_id").
		Count(&activeUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	var subjects []SubjectProgress
	if err := s.db.Model(&practice.PracticeAttempt{}).
		Select("practice_packs.subject AS subject, COUNT(*) AS attempts, AVG(practice_attempts.score * 100.0 / practice_attempts.max_score) AS average_score").
		Joins("JOIN practice_packs ON practice_packs.id = practice_attempts.pack_id").
		Where("practice_attempts.created_at >= ?", since).
		Group("practice_packs.subject").
		Order("attempts DESC").
		Scan(&subjects).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate subjects: %w", err)
	}

	return &SummaryResponse{
		WindowDays:    windowDays,
		TotalAttempts: total,
		ActiveUsers:   activeUsers,
		Subjects:      subjects,
	}, nil
}

package videos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrVideoNotFound = errors.New("video not found")
	ErrNoHDVariant   = errors.New("video has no hd variant")
)

type VideoService struct {
	db *gorm.DB
}

func NewVideoService(db *gorm.DB) *VideoService {
	return &VideoService{db: db}
}

func (s *VideoService) ListVideos(subject string) ([]Video, error) {
	query := s.db.Order("subject ASC, title ASC")
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}

	var vids []Video
	if err := query.Find(&vids).Error; err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return vids, nil
}

func (s *VideoService) GetVideo(id uuid.UUID) (*Video, error) {
	var video Video
	if err := s.db.First(&video, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

// PlaybackURL returns the stream URL for the requested quality.
func (s *VideoService) PlaybackURL(id uuid.UUID, quality string) (string, error) {
	video, err := s.GetVideo(id)
	if err != nil {
		return "", err
	}
	if quality == QualityHD {
		if video.HDURL == "" {
			return "", ErrNoHDVariant
		}
		return video.HDURL, nil
	}
	return video.SDURL, nil
}

func (s *VideoService) CreateVideo(req CreateVideoRequest) (*Video, error) {
	video := Video{
		ID:              uuid.New(),
		Subject:         req.Subject,
		Title:           req.Title,
		DurationSeconds: req.DurationSeconds,
		SDURL:           req.SDURL,
		HDURL:           req.HDURL,
	}
	if err := s.db.Create(&video).Error; err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}
	return &video, nil
}

func (s *VideoService) DeleteVideo(id uuid.UUID) error {
	result := s.db.Delete(&Video{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete video: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVideoNotFound
	}
	return nil
}

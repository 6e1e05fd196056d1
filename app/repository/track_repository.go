package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/soundhaven/soundhaven/app/models"
	"gorm.io/gorm"
)

// trackRepository implements the TrackRepository interface
type trackRepository struct {
	db *gorm.DB
}

// NewTrackRepository creates a new track repository instance
func NewTrackRepository(db *gorm.DB) TrackRepository {
	return &trackRepository{db: db}
}

// Create creates a new track in the database
func (r *trackRepository) Create(track *models.Track) error {
	return r.db.Create(track).Error
}

// GetByID retrieves a track by its ID
func (r *trackRepository) GetByID(id uint) (*models.Track, error) {
	var track models.Track
	err := r.db.First(&track, id).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// GetByUUID retrieves a track by its UUID
func (r *trackRepository) GetByUUID(uuid string) (*models.Track, error) {
	var track models.Track
	err := r.db.Where("uuid = ?", uuid).First(&track).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// GetByShareLink retrieves a track by its share link
func (r *trackRepository) GetByShareLink(shareLink string) (*models.Track, error) {
	var track models.Track
	err := r.db.Where("share_link = ?", shareLink).First(&track).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// GetByUserID retrieves a paginated list of a user's tracks
func (r *trackRepository) GetByUserID(userID uint, offset, limit int) ([]models.Track, error) {
	var tracks []models.Track
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Offset(offset).Limit(limit).Find(&tracks).Error
	return tracks, err
}

// Update updates an existing track in the database
func (r *trackRepository) Update(track *models.Track) error {
	return r.db.Save(track).Error
}

// Delete soft deletes a track by its ID
func (r *trackRepository) Delete(id uint) error {
	return r.db.Delete(&models.Track{}, id).Error
}

// List retrieves a paginated list of tracks
func (r *trackRepository) List(offset, limit int) ([]models.Track, error) {
	var tracks []models.Track
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&tracks).Error
	return tracks, err
}

// Count returns the total number of tracks
func (r *trackRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Track{}).Count(&count).Error
	return count, err
}

// CountByUserID returns the number of tracks owned by a user
func (r *trackRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Track{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Search searches public tracks by title, artist or genre
func (r *trackRepository) Search(query string) ([]models.Track, error) {
	var tracks []models.Track
	searchPattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("is_public = ?", true).
		Where("title LIKE ? OR artist LIKE ? OR genre LIKE ?", searchPattern, searchPattern, searchPattern).
		Order("play_count DESC").
		Find(&tracks).Error
	return tracks, err
}

// GetPublicTracks retrieves a paginated list of public tracks
func (r *trackRepository) GetPublicTracks(offset, limit int) ([]models.Track, error) {
	var tracks []models.Track
	err := r.db.Where("is_public = ?", true).Order("created_at DESC").Offset(offset).Limit(limit).Find(&tracks).Error
	return tracks, err
}

// GetRecentTracks retrieves the most recently added public tracks
func (r *trackRepository) GetRecentTracks(limit int) ([]models.Track, error) {
	var tracks []models.Track
	err := r.db.Where("is_public = ?", true).Order("created_at DESC").Limit(limit).Find(&tracks).Error
	return tracks, err
}

// GetTopPlayed retrieves the most played public tracks
func (r *trackRepository) GetTopPlayed(limit int) ([]models.Track, error) {
	var tracks []models.Track
	err := r.db.Where("is_public = ?", true).Order("play_count DESC").Limit(limit).Find(&tracks).Error
	return tracks, err
}

// RegisterPlay appends a play event and bumps the track play counter in one
// transaction. The counter update is relative so concurrent plays don't lose
// increments.
func (r *trackRepository) RegisterPlay(event *models.PlayEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		return tx.Model(&models.Track{}).Where("id = ?", event.TrackID).
			UpdateColumn("play_count", gorm.Expr("play_count + 1")).Error
	})
}

// GetDailyPlayStats returns per-day play counts for a track within a date range
func (r *trackRepository) GetDailyPlayStats(trackID uint, startDate, endDate time.Time) ([]models.DailyStats, error) {
	var results []struct {
		Date  string `json:"date"`
		Count int64  `json:"count"`
	}

	err := r.db.Model(&models.PlayEvent{}).
		Select("DATE_FORMAT(created_at, '%Y-%m-%d') as date, COUNT(*) as count").
		Where("track_id = ? AND created_at BETWEEN ? AND ?", trackID, startDate, endDate).
		Group("DATE_FORMAT(created_at, '%Y-%m-%d')").
		Order("date").
		Find(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get daily play stats: %w", err)
	}

	dailyStats := make([]models.DailyStats, len(results))
	for i, result := range results {
		dailyStats[i] = models.DailyStats{
			Date:  result.Date,
			Count: int(result.Count),
		}
	}

	return dailyStats, nil
}

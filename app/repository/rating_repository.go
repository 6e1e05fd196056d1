package repository

import (
	"github.com/soundhaven/soundhaven/app/models"
	"gorm.io/gorm"
)

// ratingRepository implements the RatingRepository interface
type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a new rating repository instance
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Upsert creates or overwrites the user's rating for a track
func (r *ratingRepository) Upsert(userID, trackID uint, score int) (*models.Rating, error) {
	return models.UpsertRating(r.db, userID, trackID, score)
}

// GetByUserAndTrack retrieves a single user's rating for a track
func (r *ratingRepository) GetByUserAndTrack(userID, trackID uint) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.Where("user_id = ? AND track_id = ?", userID, trackID).First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// GetTrackSummary aggregates average score and rating count for a track
func (r *ratingRepository) GetTrackSummary(trackID uint) (*RatingSummary, error) {
	summary := &RatingSummary{TrackID: trackID}

	row := r.db.Model(&models.Rating{}).
		Select("COALESCE(AVG(score), 0), COUNT(*)").
		Where("track_id = ?", trackID).
		Row()
	if err := row.Scan(&summary.Average, &summary.Count); err != nil {
		return nil, err
	}
	return summary, nil
}

// ListForTrack retrieves a paginated list of ratings for a track
func (r *ratingRepository) ListForTrack(trackID uint, offset, limit int) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.Where("track_id = ?", trackID).Order("updated_at DESC").Offset(offset).Limit(limit).Find(&ratings).Error
	return ratings, err
}

// Delete removes the user's rating for a track
func (r *ratingRepository) Delete(userID, trackID uint) error {
	return r.db.Where("user_id = ? AND track_id = ?", userID, trackID).Delete(&models.Rating{}).Error
}

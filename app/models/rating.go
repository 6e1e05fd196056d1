package models

import (
	"time"

	"gorm.io/gorm"
)

// Rating stores a single user's score for a track. One rating per user and
// track; re-rating overwrites the previous score.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:ux_ratings_user_track,unique,priority:1" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TrackID   uint      `gorm:"index:ux_ratings_user_track,unique,priority:2;index" json:"track_id"`
	Track     Track     `gorm:"foreignKey:TrackID" json:"track,omitempty"`
	Score     int       `gorm:"not null" json:"score" validate:"required,min=1,max=5"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertRating creates or updates the user's rating for a track.
func UpsertRating(db *gorm.DB, userID, trackID uint, score int) (*Rating, error) {
	var rating Rating
	result := db.Where("user_id = ? AND track_id = ?", userID, trackID).First(&rating)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			rating = Rating{UserID: userID, TrackID: trackID, Score: score}
			if err := db.Create(&rating).Error; err != nil {
				return nil, err
			}
			return &rating, nil
		}
		return nil, result.Error
	}

	rating.Score = score
	if err := db.Model(&rating).Update("score", score).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}

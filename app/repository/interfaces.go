package repository

import (
	"time"

	"github.com/soundhaven/soundhaven/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	GetStatsByUserID(userID uint) (*UserStats, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string, offset, limit int) ([]models.User, error)
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// TrackRepository defines the interface for track-related database operations
type TrackRepository interface {
	Create(track *models.Track) error
	GetByID(id uint) (*models.Track, error)
	GetByUUID(uuid string) (*models.Track, error)
	GetByShareLink(shareLink string) (*models.Track, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Track, error)
	Update(track *models.Track) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Track, error)
	Count() (int64, error)
	CountByUserID(userID uint) (int64, error)
	Search(query string) ([]models.Track, error)
	GetPublicTracks(offset, limit int) ([]models.Track, error)
	GetRecentTracks(limit int) ([]models.Track, error)
	GetTopPlayed(limit int) ([]models.Track, error)
	RegisterPlay(event *models.PlayEvent) error
	GetDailyPlayStats(trackID uint, startDate, endDate time.Time) ([]models.DailyStats, error)
}

// AlbumRepository defines the interface for album-related database operations
type AlbumRepository interface {
	Create(album *models.Album) error
	GetByID(id uint) (*models.Album, error)
	GetByShareLink(shareLink string) (*models.Album, error)
	GetByUserID(userID uint) ([]models.Album, error)
	Update(album *models.Album) error
	Delete(id uint) error
	AddTrack(albumID, trackID uint) error
	RemoveTrack(albumID, trackID uint) error
	GetTracks(albumID uint) ([]models.Track, error)
	GetPublicAlbums(offset, limit int) ([]models.Album, error)
	Count() (int64, error)
	CountByUserID(userID uint) (int64, error)
}

// RatingRepository defines the interface for track rating operations
type RatingRepository interface {
	Upsert(userID, trackID uint, score int) (*models.Rating, error)
	GetByUserAndTrack(userID, trackID uint) (*models.Rating, error)
	GetTrackSummary(trackID uint) (*RatingSummary, error)
	ListForTrack(trackID uint, offset, limit int) ([]models.Rating, error)
	Delete(userID, trackID uint) error
}

// QueueRepository defines the interface for cache/queue operations
type QueueRepository interface {
	GetAllKeys() ([]string, error)
	GetValue(key string) (string, error)
	GetTTL(key string) (time.Duration, error)
	DeleteKey(key string) (int64, error)
	GetListLength(key string) (int64, error)
	FindKeysByPatterns(patterns []string) ([]string, error)
	DeleteKeys(keys []string) (int64, error)
}

// UserStats provides aggregated counts for a single user.
type UserStats struct {
	TrackCount   int64
	AlbumCount   int64
	StorageUsage int64
}

// RatingSummary aggregates all ratings for one track.
type RatingSummary struct {
	TrackID uint    `json:"track_id"`
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// Repositories struct holds all repository instances
type Repositories struct {
	User   UserRepository
	Track  TrackRepository
	Album  AlbumRepository
	Rating RatingRepository
	Queue  QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Track:  NewTrackRepository(db),
		Album:  NewAlbumRepository(db),
		Rating: NewRatingRepository(db),
		Queue:  NewQueueRepository(),
	}
}

package repository

import (
	"github.com/soundhaven/soundhaven/app/models"
	"gorm.io/gorm"
)

// albumRepository implements the AlbumRepository interface
type albumRepository struct {
	db *gorm.DB
}

// NewAlbumRepository creates a new album repository instance
func NewAlbumRepository(db *gorm.DB) AlbumRepository {
	return &albumRepository{db: db}
}

// Create creates a new album in the database
func (r *albumRepository) Create(album *models.Album) error {
	return r.db.Create(album).Error
}

// GetByID retrieves an album by its ID
func (r *albumRepository) GetByID(id uint) (*models.Album, error) {
	var album models.Album
	err := r.db.First(&album, id).Error
	if err != nil {
		return nil, err
	}
	return &album, nil
}

// GetByShareLink retrieves an album by its share link
func (r *albumRepository) GetByShareLink(shareLink string) (*models.Album, error) {
	var album models.Album
	err := r.db.Where("share_link = ?", shareLink).First(&album).Error
	if err != nil {
		return nil, err
	}
	return &album, nil
}

// GetByUserID retrieves all albums owned by a user
func (r *albumRepository) GetByUserID(userID uint) ([]models.Album, error) {
	var albums []models.Album
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&albums).Error
	return albums, err
}

// Update updates an existing album in the database
func (r *albumRepository) Update(album *models.Album) error {
	return r.db.Save(album).Error
}

// Delete soft deletes an album and detaches its tracks
func (r *albumRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Track{}).Where("album_id = ?", id).
			Update("album_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Album{}, id).Error
	})
}

// AddTrack assigns a track to an album
func (r *albumRepository) AddTrack(albumID, trackID uint) error {
	return r.db.Model(&models.Track{}).Where("id = ?", trackID).
		Update("album_id", albumID).Error
}

// RemoveTrack detaches a track from an album
func (r *albumRepository) RemoveTrack(albumID, trackID uint) error {
	return r.db.Model(&models.Track{}).Where("id = ? AND album_id = ?", trackID, albumID).
		Update("album_id", nil).Error
}

// GetTracks retrieves all tracks assigned to an album
func (r *albumRepository) GetTracks(albumID uint) ([]models.Track, error) {
	var tracks []models.Track
	err := r.db.Where("album_id = ?", albumID).Order("created_at ASC").Find(&tracks).Error
	return tracks, err
}

// GetPublicAlbums retrieves a paginated list of public albums
func (r *albumRepository) GetPublicAlbums(offset, limit int) ([]models.Album, error) {
	var albums []models.Album
	err := r.db.Where("is_public = ?", true).Order("created_at DESC").Offset(offset).Limit(limit).Find(&albums).Error
	return albums, err
}

// Count returns the total number of albums
func (r *albumRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Album{}).Count(&count).Error
	return count, err
}

// CountByUserID returns the number of albums owned by a user
func (r *albumRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Album{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

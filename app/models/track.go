package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundhaven/soundhaven/internal/pkg/shortener"
)

type Track struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UUID          string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID        uint           `gorm:"index" json:"user_id"`
	User          User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AlbumID       *uint          `gorm:"index" json:"album_id,omitempty"`
	Title         string         `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=1,max=255"`
	Artist        string         `gorm:"type:varchar(255);not null;index" json:"artist" validate:"required,min=1,max=255"`
	Genre         string         `gorm:"type:varchar(100);default:''" json:"genre"`
	DurationMS    int            `gorm:"default:0" json:"duration_ms"`
	AudioKey      string         `gorm:"type:varchar(255);not null" json:"-"`
	ContentType   string         `gorm:"type:varchar(100);default:'audio/mpeg'" json:"content_type"`
	FileSize      int64          `gorm:"default:0" json:"file_size"`
	ShareLink     string         `gorm:"type:varchar(255) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex" json:"share_link"`
	IsPublic      bool           `gorm:"default:true" json:"is_public"`
	PlayCount     int            `gorm:"default:0" json:"play_count"`
	DownloadCount int            `gorm:"default:0" json:"download_count"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the UUID and a temporary share link before insert.
func (t *Track) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == "" {
		t.UUID = uuid.New().String()
	}
	if t.ShareLink == "" {
		t.ShareLink = "temp-" + t.UUID[:8]
	}
	return nil
}

// AfterCreate replaces the temporary share link with the ID-based short link.
func (t *Track) AfterCreate(tx *gorm.DB) error {
	if len(t.ShareLink) >= 5 && t.ShareLink[:5] == "temp-" {
		t.ShareLink = shortener.EncodeID(t.ID)
		return tx.Model(t).Update("share_link", t.ShareLink).Error
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundhaven/soundhaven/internal/pkg/shortener"
)

type Album struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index" json:"user_id"`
	User         User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title        string         `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=1,max=255"`
	Artist       string         `gorm:"type:varchar(255);not null;index" json:"artist" validate:"required,min=1,max=255"`
	Description  string         `gorm:"type:text" json:"description"`
	CoverURL     string         `gorm:"type:varchar(255);default:''" json:"cover_url"`
	ReleasedAt   *time.Time     `gorm:"type:timestamp;default:null" json:"released_at,omitempty"`
	IsPublic     bool           `gorm:"default:true" json:"is_public"`
	ShareLink    string         `gorm:"type:varchar(255) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex" json:"share_link"`
	ViewCount    int            `gorm:"default:0" json:"view_count"`
	Tracks       []Track        `gorm:"foreignKey:AlbumID" json:"tracks,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a temporary share link until the ID exists.
func (a *Album) BeforeCreate(tx *gorm.DB) error {
	if a.ShareLink == "" {
		a.ShareLink = "temp-" + uuid.New().String()[:8]
	}
	return nil
}

// AfterCreate replaces the temporary share link with the ID-based short link.
func (a *Album) AfterCreate(tx *gorm.DB) error {
	if len(a.ShareLink) >= 5 && a.ShareLink[:5] == "temp-" {
		a.ShareLink = shortener.EncodeID(a.ID)
		return tx.Model(a).Update("share_link", a.ShareLink).Error
	}
	return nil
}

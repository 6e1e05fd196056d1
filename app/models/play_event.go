package models

import "time"

// PlayEvent is an append-only log row for playback analytics. Rows are
// written once per registered play and aggregated by the statistics package.
type PlayEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TrackID   uint      `gorm:"index;not null" json:"track_id"`
	UserID    uint      `gorm:"index;default:0" json:"user_id"`
	PlayedMS  int       `gorm:"default:0" json:"played_ms"`
	ClientIP  string    `gorm:"type:varchar(45);default:''" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// DailyStats represents aggregated counts for a single day.
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

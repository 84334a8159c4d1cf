package models

import "time"

// DailyStat holds per-day request tallies flushed from the redis counters.
// Observability only; nothing in the request path reads this table.
type DailyStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       string    `gorm:"type:char(10);not null;uniqueIndex" json:"day"` // YYYY-MM-DD
	Analyses  int64     `gorm:"not null;default:0" json:"analyses"`
	Previews  int64     `gorm:"not null;default:0" json:"previews"`
	CacheHits int64     `gorm:"not null;default:0" json:"cache_hits"`
	Denials   int64     `gorm:"not null;default:0" json:"denials"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

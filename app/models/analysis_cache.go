package models

import "time"

// Response kinds stored in the analysis cache.
const (
	ResponseTypeFit        = "fit"
	ResponseTypeIcebreaker = "icebreaker"
)

// AnalysisCache stores computed analysis payloads keyed by profile fingerprint.
// Entries are append-only: multiple rows may exist per (hash, type) pair and
// expiry is applied as a read-time TTL filter, never by deletion, so historical
// entries remain for audit.
type AnalysisCache struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProfileHash  string    `gorm:"type:varchar(128);not null;index:idx_analysis_cache_hash_type,priority:1" json:"profile_hash"`
	ResponseType string    `gorm:"type:varchar(32);not null;index:idx_analysis_cache_hash_type,priority:2" json:"response_type"`
	ResponseJSON string    `gorm:"type:longtext;not null" json:"response_json"`
	UserID       *uint     `gorm:"default:null;index" json:"user_id,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

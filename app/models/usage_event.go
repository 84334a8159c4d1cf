package models

import "time"

// EventTypeAnalysis is the only metered event kind today.
const EventTypeAnalysis = "analysis"

// UsageEvent is one row per successfully completed, cost-incurring analysis.
// Rows are append-only: they are written exclusively by the usage recorder
// after the upstream call succeeded, and never updated or deleted.
type UsageEvent struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	EventType string `gorm:"type:varchar(50);not null" json:"event_type"`
	// WeekKey is the legacy weekly period key. Kept nullable for old rows;
	// new rows only fill MonthKey.
	WeekKey   string    `gorm:"type:varchar(16);default:null;index" json:"week_key,omitempty"`
	MonthKey  string    `gorm:"type:varchar(16);not null;index" json:"month_key"`
	CostUSD   float64   `gorm:"type:decimal(10,4);not null;default:0" json:"cost_usd"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

package repository

import (
	"gorm.io/gorm"

	"github.com/StKraemer/LeadRadar/app/models"
)

// usageEventRepository implements the UsageEventRepository interface
type usageEventRepository struct {
	db *gorm.DB
}

// NewUsageEventRepository creates a new usage event repository instance
func NewUsageEventRepository(db *gorm.DB) UsageEventRepository {
	return &usageEventRepository{db: db}
}

// ListRecentByUser returns the newest ledger entries for a user
func (r *usageEventRepository) ListRecentByUser(userID uint, limit int) ([]models.UsageEvent, error) {
	var events []models.UsageEvent
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

// CountByUserAndMonth counts a user's ledger entries for one billing month
func (r *usageEventRepository) CountByUserAndMonth(userID uint, monthKey string) (int64, error) {
	var count int64
	err := r.db.Model(&models.UsageEvent{}).
		Where("user_id = ? AND month_key = ?", userID, monthKey).
		Count(&count).Error
	return count, err
}

// SumCostByMonth totals recorded upstream spend for one billing month
func (r *usageEventRepository) SumCostByMonth(monthKey string) (float64, error) {
	var total float64
	err := r.db.Model(&models.UsageEvent{}).
		Where("month_key = ?", monthKey).
		Select("COALESCE(SUM(cost_usd), 0)").Scan(&total).Error
	return total, err
}

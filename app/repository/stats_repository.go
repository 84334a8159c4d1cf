package repository

import (
	"gorm.io/gorm"

	"github.com/StKraemer/LeadRadar/app/models"
)

// statsRepository implements the StatsRepository interface
type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository instance
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// GetDailyStats returns the request tallies for an inclusive day range
func (r *statsRepository) GetDailyStats(startDay, endDay string) ([]models.DailyStat, error) {
	var stats []models.DailyStat
	err := r.db.Where("day >= ? AND day <= ?", startDay, endDay).
		Order("day ASC").Find(&stats).Error
	return stats, err
}

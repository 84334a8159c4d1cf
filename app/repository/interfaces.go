package repository

import (
	"gorm.io/gorm"

	"github.com/StKraemer/LeadRadar/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	UpdateICPConfig(userID uint, configJSON string) error
	Count() (int64, error)
	CountByPlan(plan string) (int64, error)
	List(offset, limit int) ([]models.User, error)
}

// UsageEventRepository defines read access to the usage ledger for the API
// surface. The request path writes through the usage package, never here.
type UsageEventRepository interface {
	ListRecentByUser(userID uint, limit int) ([]models.UsageEvent, error)
	CountByUserAndMonth(userID uint, monthKey string) (int64, error)
	SumCostByMonth(monthKey string) (float64, error)
}

// StatsRepository defines the interface for daily request tallies
type StatsRepository interface {
	GetDailyStats(startDay, endDay string) ([]models.DailyStat, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User       UserRepository
	UsageEvent UsageEventRepository
	Stats      StatsRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		UsageEvent: NewUsageEventRepository(db),
		Stats:      NewStatsRepository(db),
	}
}

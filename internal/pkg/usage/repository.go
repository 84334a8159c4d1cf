package usage

import (
	"time"

	"github.com/StKraemer/LeadRadar/app/models"
	"gorm.io/gorm"
)

// Repository provides the DB operations used by the usage core.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	// StampLastAnalysis persists the rate-limit cursor on its own, before the
	// upstream call, so the window holds even when that call later fails.
	StampLastAnalysis(userID uint, at time.Time) error
	// AppendEventAndCounters writes the usage event and the mutated account
	// counters in a single transaction.
	AppendEventAndCounters(event *models.UsageEvent, user *models.User) error
	// ConsumeLifetimeSlot burns one free-tier lifetime analysis without writing
	// a usage event. Previews go through here.
	ConsumeLifetimeSlot(userID uint) error

	CountUsersByPlan(plan string) (int64, error)
	SumEventCostSince(since time.Time) (float64, error)
	FirstEventInMonth(userID uint, monthKey, eventType string) (*models.UsageEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a usage repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) StampLastAnalysis(userID uint, at time.Time) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_analysis_at", at).Error
}

func (r *gormRepository) AppendEventAndCounters(event *models.UsageEvent, user *models.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"lifetime_analyses_count": user.LifetimeAnalysesCount,
				"monthly_analyses_count":  user.MonthlyAnalysesCount,
				"last_analysis_at":        user.LastAnalysisAt,
			}).Error
	})
}

func (r *gormRepository) ConsumeLifetimeSlot(userID uint) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("lifetime_analyses_count", gorm.Expr("lifetime_analyses_count + 1")).Error
}

func (r *gormRepository) CountUsersByPlan(plan string) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("plan = ?", plan).Count(&count).Error
	return count, err
}

func (r *gormRepository) SumEventCostSince(since time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&models.UsageEvent{}).
		Where("created_at >= ?", since).
		Select("COALESCE(SUM(cost_usd), 0)").
		Scan(&total).Error
	return total, err
}

func (r *gormRepository) FirstEventInMonth(userID uint, monthKey, eventType string) (*models.UsageEvent, error) {
	var event models.UsageEvent
	err := r.db.
		Where("user_id = ? AND month_key = ? AND event_type = ?", userID, monthKey, eventType).
		Order("created_at ASC").
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

package usage

import (
	"time"

	"gorm.io/gorm"

	"github.com/StKraemer/LeadRadar/app/models"
)

// fakeRepo is an in-memory Repository for the usage core tests.
type fakeRepo struct {
	users      map[uint]*models.User
	planCounts map[string]int64
	spend      float64
	events     []*models.UsageEvent
	firstEvent *models.UsageEvent

	stamped    []time.Time
	spendSince time.Time
	appendErr  error
	stampErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      map[uint]*models.User{},
		planCounts: map[string]int64{},
	}
}

func (f *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeRepo) StampLastAnalysis(userID uint, at time.Time) error {
	if f.stampErr != nil {
		return f.stampErr
	}
	f.stamped = append(f.stamped, at)
	return nil
}

func (f *fakeRepo) AppendEventAndCounters(event *models.UsageEvent, user *models.User) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.events = append(f.events, event)
	f.users[user.ID] = user
	return nil
}

func (f *fakeRepo) ConsumeLifetimeSlot(userID uint) error {
	if u, ok := f.users[userID]; ok {
		u.LifetimeAnalysesCount++
	}
	return nil
}

func (f *fakeRepo) CountUsersByPlan(plan string) (int64, error) {
	return f.planCounts[plan], nil
}

func (f *fakeRepo) SumEventCostSince(since time.Time) (float64, error) {
	f.spendSince = since
	return f.spend, nil
}

func (f *fakeRepo) FirstEventInMonth(userID uint, monthKey, eventType string) (*models.UsageEvent, error) {
	if f.firstEvent == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.firstEvent, nil
}

func testConfig() Config {
	return Config{
		AIEnabled:          true,
		RateLimitWindow:    30 * time.Second,
		LimitFree:          3,
		LimitStarter:       40,
		LimitPro:           150,
		LimitTeam:          500,
		RevenueStarter:     6.0,
		RevenuePro:         12.0,
		RevenueTeam:        36.0,
		CostPerAnalysisUSD: 0.03,
		CacheTTL:           24 * time.Hour,
	}
}

package usage

import (
	"context"
	"log"
	"time"

	"github.com/StKraemer/LeadRadar/app/models"
	"github.com/StKraemer/LeadRadar/internal/pkg/entitlements"
)

// Recorder writes the durable effects of a successful paid analysis.
type Recorder struct {
	repo Repository
	cfg  Config
}

// NewRecorder creates a usage recorder.
func NewRecorder(repo Repository, cfg Config) *Recorder {
	return &Recorder{repo: repo, cfg: cfg}
}

// RecordSuccess appends the usage event, increments the account's
// authoritative counter and refreshes the rate-limit cursor, all in one
// transaction. Call this only after the upstream call returned a valid,
// parsed result: money is spent and quota is consumed if and only if a usable
// result exists. It must never be reachable from an error branch.
func (r *Recorder) RecordSuccess(ctx context.Context, user *models.User, costUSD float64, now time.Time) (*models.UsageEvent, error) {
	_ = ctx

	if costUSD <= 0 {
		costUSD = r.cfg.CostPerAnalysisUSD
	}

	event := &models.UsageEvent{
		UserID:    user.ID,
		EventType: models.EventTypeAnalysis,
		MonthKey:  MonthKey(now),
		CostUSD:   costUSD,
	}

	plan := entitlements.NormalizePlan(user.Plan)
	if entitlements.Mode(plan) == entitlements.CounterPeriod {
		user.MonthlyAnalysesCount++
	} else {
		user.LifetimeAnalysesCount++
	}
	user.LastAnalysisAt = &now

	if err := r.repo.AppendEventAndCounters(event, user); err != nil {
		return nil, err
	}

	log.Printf("usage: recorded analysis user_id=%d plan=%s month=%s cost=%.4f", user.ID, user.Plan, event.MonthKey, costUSD)
	return event, nil
}

// StatsFor summarizes current-period usage for the account: lifetime numbers
// for free accounts, monthly numbers for paid ones.
func StatsFor(user *models.User, cfg Config, now time.Time) Stats {
	plan := entitlements.NormalizePlan(user.Plan)
	limit := cfg.LimitFor(plan)

	if entitlements.Mode(plan) == entitlements.CounterLifetime {
		used := user.LifetimeAnalysesCount
		return Stats{
			Plan:      string(plan),
			Used:      used,
			Limit:     limit,
			Remaining: remaining(limit, used),
		}
	}

	used := user.MonthlyAnalysesCount
	return Stats{
		Plan:      string(plan),
		MonthKey:  MonthKey(now),
		Used:      used,
		Limit:     limit,
		Remaining: remaining(limit, used),
		ResetAt:   user.MonthlyAnalysesResetAt,
	}
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

package usage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/StKraemer/LeadRadar/app/models"
	"github.com/StKraemer/LeadRadar/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// Enforcer applies the per-account checks gating a paid upstream call.
type Enforcer struct {
	repo Repository
	cfg  Config
}

// NewEnforcer creates a usage enforcer.
func NewEnforcer(repo Repository, cfg Config) *Enforcer {
	return &Enforcer{repo: repo, cfg: cfg}
}

// Enforce runs the policy checks for one account, in order: kill switch,
// free-plan guard, rate limit, plan cap. On success it stamps the rate-limit
// cursor BEFORE the caller attempts the upstream call, so a failing upstream
// cannot be hammered in a zero-cost retry loop. Quota counters are not touched
// here: they move only in the recorder, after a confirmed success.
//
// Policy refusals come back as *Denial; anything else is an infrastructure
// error.
func (e *Enforcer) Enforce(ctx context.Context, user *models.User, now time.Time) error {
	_ = ctx

	if e.cfg.DisableAllAnalyses {
		log.Printf("enforce: kill switch active, denying user_id=%d plan=%s", user.ID, user.Plan)
		return &Denial{Kind: DenialServiceDisabled}
	}

	plan := entitlements.NormalizePlan(user.Plan)
	if !entitlements.IsPaid(plan) {
		// Free accounts are routed to previews before ever reaching this
		// function; denying here keeps the invariant if a caller slips.
		return &Denial{Kind: DenialPaymentRequired}
	}

	if user.LastAnalysisAt != nil {
		sinceLast := now.Sub(*user.LastAnalysisAt)
		if sinceLast < e.cfg.RateLimitWindow {
			remaining := e.cfg.RateLimitWindow - sinceLast
			log.Printf("enforce: rate limited user_id=%d plan=%s wait=%ds", user.ID, user.Plan, int(remaining.Seconds()))
			return &Denial{Kind: DenialRateLimited, RetryAfter: remaining}
		}
	}

	used := counterFor(user, plan)
	limit := e.cfg.LimitFor(plan)
	if used >= limit {
		log.Printf("enforce: monthly limit reached user_id=%d plan=%s (%d/%d)", user.ID, user.Plan, used, limit)
		return &Denial{Kind: DenialQuotaExceeded, Used: used, Limit: limit}
	}

	e.logEarlyAbuseSignal(user, used+1, limit, now)

	// Pre-emptively stamp the rate-limit cursor. Committed before the
	// upstream call begins; must survive a subsequent upstream failure.
	if err := e.repo.StampLastAnalysis(user.ID, now); err != nil {
		return err
	}
	user.LastAnalysisAt = &now

	return nil
}

// logEarlyAbuseSignal warns when an account burns through most of its monthly
// cap within the first day of the period. Observability only, never denies.
func (e *Enforcer) logEarlyAbuseSignal(user *models.User, projected, limit int, now time.Time) {
	if limit <= 0 || projected < limit*8/10 {
		return
	}
	first, err := e.repo.FirstEventInMonth(user.ID, MonthKey(now), models.EventTypeAnalysis)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("enforce: abuse-signal lookup failed for user_id=%d: %v", user.ID, err)
		}
		return
	}
	if now.Sub(first.CreatedAt) <= 24*time.Hour {
		log.Printf("enforce: early abuse signal user_id=%d plan=%s usage=%d/%d window<24h", user.ID, user.Plan, projected, limit)
	}
}

// counterFor resolves the authoritative counter value for the account's plan.
func counterFor(user *models.User, plan entitlements.Plan) int {
	if entitlements.Mode(plan) == entitlements.CounterPeriod {
		return user.MonthlyAnalysesCount
	}
	return user.LifetimeAnalysesCount
}

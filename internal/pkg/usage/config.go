package usage

import (
	"time"

	"github.com/StKraemer/LeadRadar/internal/pkg/entitlements"
	"github.com/StKraemer/LeadRadar/internal/pkg/env"
)

// Config carries every knob the usage core reads. Values come from the
// environment once at startup; tests construct it directly.
type Config struct {
	// AIEnabled gates all upstream vendor calls globally.
	AIEnabled bool
	// DisableAllAnalyses is the emergency kill switch for every plan.
	DisableAllAnalyses bool
	// DisableFreePlan disables the free preview path only.
	DisableFreePlan bool

	RateLimitWindow time.Duration

	// Plan caps. Free is a lifetime cap, the paid ones are per calendar month.
	LimitFree    int
	LimitStarter int
	LimitPro     int
	LimitTeam    int

	// Monthly AI budget contribution per active paid subscriber, USD.
	RevenueStarter float64
	RevenuePro     float64
	RevenueTeam    float64

	// Estimated vendor cost per successful analysis, USD.
	CostPerAnalysisUSD float64

	CacheTTL time.Duration
}

// ConfigFromEnv loads the usage configuration with production defaults.
func ConfigFromEnv() Config {
	return Config{
		AIEnabled:          env.GetEnvBool("AI_ENABLED", false),
		DisableAllAnalyses: env.GetEnvBool("DISABLE_ALL_ANALYSES", false),
		DisableFreePlan:    env.GetEnvBool("DISABLE_FREE_PLAN", false),
		RateLimitWindow:    env.GetEnvDuration("RATE_LIMIT_WINDOW", 30*time.Second),
		LimitFree:          env.GetEnvInt("USAGE_LIMIT_FREE", 3),
		LimitStarter:       env.GetEnvInt("USAGE_LIMIT_STARTER", 40),
		LimitPro:           env.GetEnvInt("USAGE_LIMIT_PRO", 150),
		LimitTeam:          env.GetEnvInt("USAGE_LIMIT_TEAM", 500),
		RevenueStarter:     env.GetEnvFloat("REVENUE_PER_STARTER_USER", 6.0),
		RevenuePro:         env.GetEnvFloat("REVENUE_PER_PRO_USER", 12.0),
		RevenueTeam:        env.GetEnvFloat("REVENUE_PER_TEAM_USER", 36.0),
		CostPerAnalysisUSD: env.GetEnvFloat("AI_COST_PER_ANALYSIS_USD", 0.03),
		CacheTTL:           env.GetEnvDuration("ANALYSIS_CACHE_TTL", 24*time.Hour),
	}
}

// LimitFor resolves the configured cap for a plan's authoritative counter.
func (c Config) LimitFor(plan entitlements.Plan) int {
	switch plan {
	case entitlements.PlanTeam:
		return c.LimitTeam
	case entitlements.PlanPro:
		return c.LimitPro
	case entitlements.PlanStarter:
		return c.LimitStarter
	default:
		return c.LimitFree
	}
}

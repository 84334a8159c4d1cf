package entitlements

import "strings"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
	PlanTeam    Plan = "team"
)

// CounterMode selects which usage counter is authoritative for a plan.
type CounterMode int

const (
	// CounterLifetime counts against the never-resetting lifetime counter.
	CounterLifetime CounterMode = iota
	// CounterPeriod counts against the monthly counter reset by billing.
	CounterPeriod
)

// NormalizePlan maps arbitrary plan strings to a known plan, free on anything
// unrecognized.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanStarter):
		return PlanStarter
	case string(PlanPro):
		return PlanPro
	case string(PlanTeam):
		return PlanTeam
	default:
		return PlanFree
	}
}

// PlanRank orders plans free < starter < pro < team.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanTeam:
		return 3
	case PlanPro:
		return 2
	case PlanStarter:
		return 1
	default:
		return 0
	}
}

// IsPaid reports whether the plan permits real (non-preview) analyses.
func IsPaid(plan Plan) bool {
	return PlanRank(plan) > 0
}

// Mode resolves the authoritative counter for a plan once, so call sites never
// branch on nullable legacy columns.
func Mode(plan Plan) CounterMode {
	if IsPaid(plan) {
		return CounterPeriod
	}
	return CounterLifetime
}

package usage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/StKraemer/LeadRadar/internal/pkg/entitlements"
)

// Evaluator computes the global budget gate. The check is independent of any
// single request: it decides whether the upstream vendor may be called at all
// this month, from subscriber counts and month-to-date spend.
//
// Aggregates are re-read on every call with no caching or locking; they change
// slowly (subscriber counts, monthly spend) relative to request rate.
type Evaluator struct {
	repo Repository
	cfg  Config

	// lastPayingCount tracks the previously observed subscriber total so the
	// 0 -> >0 commercial activation transition is logged exactly once per
	// process without a package-level flag.
	mu              sync.Mutex
	lastPayingCount int64
	observedOnce    bool
}

// NewEvaluator creates a budget evaluator.
func NewEvaluator(repo Repository, cfg Config) *Evaluator {
	return &Evaluator{repo: repo, cfg: cfg}
}

// EvaluateBudget computes the BudgetStatus for the window
// [MonthStart(now), now). The result is advisory for routing (preview vs real)
// except for the exhausted reason, which hard-blocks paid traffic.
func (e *Evaluator) EvaluateBudget(ctx context.Context, now time.Time) (BudgetStatus, error) {
	_ = ctx

	if !e.cfg.AIEnabled {
		log.Print("budget: AI disabled by configuration, upstream calls blocked globally")
		return BudgetStatus{Allowed: false, Reason: BudgetReasonAIDisabled}, nil
	}

	starter, err := e.repo.CountUsersByPlan(string(entitlements.PlanStarter))
	if err != nil {
		return BudgetStatus{}, err
	}
	pro, err := e.repo.CountUsersByPlan(string(entitlements.PlanPro))
	if err != nil {
		return BudgetStatus{}, err
	}
	team, err := e.repo.CountUsersByPlan(string(entitlements.PlanTeam))
	if err != nil {
		return BudgetStatus{}, err
	}

	budget := float64(starter)*e.cfg.RevenueStarter +
		float64(pro)*e.cfg.RevenuePro +
		float64(team)*e.cfg.RevenueTeam

	spend, err := e.repo.SumEventCostSince(MonthStart(now))
	if err != nil {
		return BudgetStatus{}, err
	}

	status := BudgetStatus{
		BudgetUSD: budget,
		SpendUSD:  spend,
		Starter:   starter,
		Pro:       pro,
		Team:      team,
	}
	e.noteActivation(status.Subscribers())

	switch {
	case status.Subscribers() == 0:
		// Commercial activation gate: never pay the vendor before revenue exists.
		log.Print("budget: no active subscribers yet, upstream calls not activated")
		status.Reason = BudgetReasonNoSubscribers
	case budget <= 0:
		status.Reason = BudgetReasonNoBudget
	case spend >= budget:
		log.Printf("budget: EXHAUSTED, spend %.4f >= budget %.4f this month", spend, budget)
		status.Reason = BudgetReasonExhausted
	default:
		status.Allowed = true
	}
	return status, nil
}

// noteActivation logs the first paying subscriber as an explicit 0 -> >0
// transition of the observed count.
func (e *Evaluator) noteActivation(paying int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.observedOnce && e.lastPayingCount == 0 && paying > 0 {
		log.Printf("budget: AI commercially activated, %d paying subscribers, upstream spend now covered by revenue", paying)
	}
	if !e.observedOnce && paying > 0 {
		log.Printf("budget: AI active with %d paying subscribers", paying)
	}
	e.observedOnce = true
	e.lastPayingCount = paying
}

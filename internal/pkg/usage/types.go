package usage

import (
	"fmt"
	"time"
)

// DenialKind identifies why the enforcer refused a paid analysis. Callers
// switch on the kind to pick a response status; messages are for humans only.
type DenialKind string

const (
	DenialServiceDisabled DenialKind = "service-disabled"
	DenialPaymentRequired DenialKind = "payment-required"
	DenialRateLimited     DenialKind = "rate-limited"
	DenialQuotaExceeded   DenialKind = "quota-exceeded"
)

// Denial is a policy refusal. It is deterministic and free of charge: no usage
// event is recorded and no counter moves when one is returned.
type Denial struct {
	Kind DenialKind
	// RetryAfter is set for rate-limit denials.
	RetryAfter time.Duration
	// Used and Limit are set for quota denials.
	Used  int
	Limit int
}

func (d *Denial) Error() string {
	switch d.Kind {
	case DenialRateLimited:
		return fmt.Sprintf("rate limit: wait %d seconds before the next analysis", int(d.RetryAfter.Seconds()))
	case DenialQuotaExceeded:
		return fmt.Sprintf("monthly limit reached (%d/%d); resets on the 1st of next month", d.Used, d.Limit)
	case DenialPaymentRequired:
		return "upgrade required: free accounts receive preview analyses only"
	case DenialServiceDisabled:
		return "analysis service temporarily disabled"
	default:
		return string(d.Kind)
	}
}

// BudgetReason explains why the global budget gate refused to allow upstream
// spend this month.
type BudgetReason string

const (
	BudgetReasonNone          BudgetReason = ""
	BudgetReasonAIDisabled    BudgetReason = "ai-disabled"
	BudgetReasonNoSubscribers BudgetReason = "no-subscribers"
	BudgetReasonNoBudget      BudgetReason = "no-budget"
	BudgetReasonExhausted     BudgetReason = "exhausted"
)

// BudgetStatus is the computed global spend gate. It is recomputed from
// aggregates on every evaluation and never persisted.
type BudgetStatus struct {
	BudgetUSD float64      `json:"budget_usd"`
	SpendUSD  float64      `json:"spend_usd"`
	Starter   int64        `json:"active_starter_users"`
	Pro       int64        `json:"active_pro_users"`
	Team      int64        `json:"active_team_users"`
	Allowed   bool         `json:"allowed"`
	Reason    BudgetReason `json:"reason,omitempty"`
}

// Subscribers returns the total paying-account count.
func (b BudgetStatus) Subscribers() int64 {
	return b.Starter + b.Pro + b.Team
}

// Stats is the per-account usage summary returned by the usage endpoint.
type Stats struct {
	Plan      string     `json:"plan"`
	MonthKey  string     `json:"month_key,omitempty"`
	Used      int        `json:"used"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

package billing

import (
	"strings"

	"github.com/StKraemer/LeadRadar/internal/pkg/entitlements"
	"github.com/StKraemer/LeadRadar/internal/pkg/env"
)

// PriceWhitelist maps Stripe price ids to internal plans. Only listed prices
// can ever grant a paid plan; anything else resolves to free.
type PriceWhitelist map[string]entitlements.Plan

// NewPriceWhitelistFromEnv builds the whitelist from STRIPE_PRICE_STARTER,
// STRIPE_PRICE_PRO and STRIPE_PRICE_TEAM. Unset entries are simply absent.
func NewPriceWhitelistFromEnv() PriceWhitelist {
	wl := PriceWhitelist{}
	add := func(key string, plan entitlements.Plan) {
		if price := strings.TrimSpace(env.GetEnv(key, "")); price != "" {
			wl[price] = plan
		}
	}
	add("STRIPE_PRICE_STARTER", entitlements.PlanStarter)
	add("STRIPE_PRICE_PRO", entitlements.PlanPro)
	add("STRIPE_PRICE_TEAM", entitlements.PlanTeam)
	return wl
}

// ResolvePlan maps a price id to its plan. Unknown prices fail closed to free
// with ok=false so callers can log the rejection.
func (wl PriceWhitelist) ResolvePlan(priceID string) (entitlements.Plan, bool) {
	plan, ok := wl[strings.TrimSpace(priceID)]
	if !ok {
		return entitlements.PlanFree, false
	}
	return plan, true
}

// isEntitlingStatus reports whether a Stripe subscription status keeps the
// paid plan active. past_due stays entitled until Stripe gives up retrying.
func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}

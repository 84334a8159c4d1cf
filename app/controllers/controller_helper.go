package controllers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/StKraemer/LeadRadar/app/repository"
	"github.com/StKraemer/LeadRadar/internal/pkg/metrics/counter"
	"github.com/StKraemer/LeadRadar/internal/pkg/usage"
)

func getUserRepo() repository.UserRepository {
	return repository.GetGlobalFactory().GetUserRepository()
}

// User-facing copy for the analysis surface. The preview banner doubles as the
// upgrade nudge, so keep these in sync with the pricing page.
const (
	FreeCopy     = "See example lead analysis. Upgrade to unlock real checks."
	PaidCopy     = "Unlimited lead checks (fair use). Real AI-powered analysis."
	NoBudgetCopy = "Real-time analysis temporarily unavailable. Upgrade to unlock."
)

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// denialResponse maps a usage denial to its HTTP surface and tallies it.
func denialResponse(c *fiber.Ctx, d *usage.Denial) error {
	tallyDenial()
	switch d.Kind {
	case usage.DenialServiceDisabled:
		return jsonError(c, fiber.StatusServiceUnavailable, "service_disabled", d.Error())
	case usage.DenialPaymentRequired:
		return jsonError(c, fiber.StatusPaymentRequired, "payment_required", d.Error())
	case usage.DenialRateLimited:
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.RetryAfter/time.Second)))
		return jsonError(c, fiber.StatusTooManyRequests, "rate_limited", d.Error())
	case usage.DenialQuotaExceeded:
		return jsonError(c, fiber.StatusTooManyRequests, "quota_exceeded", d.Error())
	default:
		return jsonError(c, fiber.StatusForbidden, "denied", d.Error())
	}
}

func tallyDenial() {
	if err := counter.AddDenial(time.Now()); err != nil {
		log.Printf("denial tally failed: %v", err)
	}
}

func tallyPreview() {
	if err := counter.AddPreview(time.Now()); err != nil {
		log.Printf("preview tally failed: %v", err)
	}
}

func tallyCacheHit() {
	if err := counter.AddCacheHit(time.Now()); err != nil {
		log.Printf("cache hit tally failed: %v", err)
	}
}

func tallyAnalysis() {
	if err := counter.AddAnalysis(time.Now()); err != nil {
		log.Printf("analysis tally failed: %v", err)
	}
}

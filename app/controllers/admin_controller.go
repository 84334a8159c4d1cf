package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/StKraemer/LeadRadar/app/repository"
	"github.com/StKraemer/LeadRadar/internal/pkg/usage"
)

const dayLayout = "2006-01-02"

// HandleAdminStats returns the flushed per-day request tallies for a day range
// plus the recorded upstream spend for the current month. Defaults to the last
// 30 days.
func HandleAdminStats(c *fiber.Ctx) error {
	now := time.Now().UTC()
	endDay := now.Format(dayLayout)
	startDay := now.AddDate(0, 0, -29).Format(dayLayout)

	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(dayLayout, from)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "from must be YYYY-MM-DD")
		}
		startDay = parsed.Format(dayLayout)
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(dayLayout, to)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "to must be YYYY-MM-DD")
		}
		endDay = parsed.Format(dayLayout)
	}
	if startDay > endDay {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "from exceeds to")
	}

	repos := repository.GetGlobalRepositories()
	days, err := repos.Stats.GetDailyStats(startDay, endDay)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Stats lookup failed")
	}

	monthKey := usage.MonthKey(now)
	monthSpend, err := repos.UsageEvent.SumCostByMonth(monthKey)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Spend lookup failed")
	}

	plans := fiber.Map{}
	for _, plan := range []string{"free", "starter", "pro", "team"} {
		count, err := repos.User.CountByPlan(plan)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account count failed")
		}
		plans[plan] = count
	}

	return c.JSON(fiber.Map{
		"from":            startDay,
		"to":              endDay,
		"days":            days,
		"month_key":       monthKey,
		"month_spend_usd": monthSpend,
		"accounts_by_plan": plans,
	})
}

// HandleAdminUsers pages through registered accounts for operator inspection.
func HandleAdminUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 50)
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 200 {
		perPage = 200
	}

	repos := repository.GetGlobalRepositories()
	total, err := repos.User.Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account count failed")
	}
	users, err := repos.User.List((page-1)*perPage, perPage)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account listing failed")
	}

	return c.JSON(fiber.Map{
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"users":    users,
	})
}

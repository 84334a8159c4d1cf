package controllers

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/StKraemer/LeadRadar/app/models"
	"github.com/StKraemer/LeadRadar/app/repository"
	"github.com/StKraemer/LeadRadar/internal/pkg/cache"
	"github.com/StKraemer/LeadRadar/internal/pkg/database"
	"github.com/StKraemer/LeadRadar/internal/pkg/usage"
	"github.com/StKraemer/LeadRadar/internal/pkg/usercontext"
)

var validate = validator.New()

// ICPConfig is the per-account ideal-customer-profile used to steer scoring.
// Stored as an opaque JSON blob on the user; validated on write only.
type ICPConfig struct {
	TargetIndustries   []string `json:"target_industries,omitempty" validate:"omitempty,max=20,dive,min=1,max=100"`
	TargetSeniority    []string `json:"target_seniority,omitempty" validate:"omitempty,max=20,dive,min=1,max=100"`
	CompanySizeMin     *int     `json:"company_size_min,omitempty" validate:"omitempty,min=0"`
	CompanySizeMax     *int     `json:"company_size_max,omitempty" validate:"omitempty,min=0"`
	RequiredSkills     []string `json:"required_skills,omitempty" validate:"omitempty,max=50,dive,min=1,max=100"`
	MinYearsExperience *int     `json:"min_years_experience,omitempty" validate:"omitempty,min=0,max=60"`
	TargetLocations    []string `json:"target_locations,omitempty" validate:"omitempty,max=20,dive,min=1,max=100"`
	ExcludeKeywords    []string `json:"exclude_keywords,omitempty" validate:"omitempty,max=50,dive,min=1,max=100"`
}

// RegisterRequest is the payload for POST /api/v1/register.
type RegisterRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleRegister creates a free account and returns its API key. The raw key
// is shown exactly once; only the hash is stored.
func HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "email is required")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "a valid email is required")
	}

	repo := getUserRepo()
	if _, err := repo.GetByEmail(req.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "An account with this email already exists")
	}

	user, err := models.CreateUser(req.Email)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", err.Error())
	}
	apiKey, err := user.IssueAPIKey()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Key generation failed")
	}
	if err := repo.Create(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account creation failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user_id": user.ID,
		"email":   user.Email,
		"plan":    user.Plan,
		"api_key": apiKey,
	})
}

// HandleRotateAPIKey invalidates the caller's current API key and issues a
// fresh one. The old key stops working immediately.
func HandleRotateAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repo := getUserRepo()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account lookup failed")
	}

	apiKey, err := user.IssueAPIKey()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Key generation failed")
	}
	if err := repo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Key rotation failed")
	}

	return c.JSON(fiber.Map{
		"api_key":        apiKey,
		"api_key_prefix": user.APIKeyPrefix,
	})
}

// HandleUsageStats returns the caller's plan, counter and remaining quota.
func HandleUsageStats(c *fiber.Ctx) error {
	deps := getAnalyzeDeps()
	userCtx := usercontext.GetUserContext(c)

	user, err := deps.repo.GetUserByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account lookup failed")
	}
	return c.JSON(usage.StatsFor(user, deps.cfg, time.Now().UTC()))
}

// HandleUsageEvents lists the caller's most recent ledger entries plus the
// current-month total, straight from the append-only usage ledger.
func HandleUsageEvents(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	limit := c.QueryInt("limit", 20)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	repos := repository.GetGlobalRepositories()
	events, err := repos.UsageEvent.ListRecentByUser(userCtx.UserID, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Ledger lookup failed")
	}

	monthKey := usage.MonthKey(time.Now())
	monthCount, err := repos.UsageEvent.CountByUserAndMonth(userCtx.UserID, monthKey)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Ledger lookup failed")
	}

	return c.JSON(fiber.Map{
		"month_key":   monthKey,
		"month_count": monthCount,
		"events":      events,
	})
}

// HandleGetICPConfig returns the stored ICP configuration, or an empty object.
func HandleGetICPConfig(c *fiber.Ctx) error {
	deps := getAnalyzeDeps()
	userCtx := usercontext.GetUserContext(c)

	user, err := deps.repo.GetUserByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account lookup failed")
	}
	if user.ICPConfigJSON == "" {
		return c.JSON(fiber.Map{})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(user.ICPConfigJSON)
}

// HandlePutICPConfig validates and replaces the stored ICP configuration.
func HandlePutICPConfig(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var cfg ICPConfig
	if err := c.BodyParser(&cfg); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Body must be a JSON ICP configuration")
	}
	if err := validate.Struct(cfg); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", err.Error())
	}
	if cfg.CompanySizeMin != nil && cfg.CompanySizeMax != nil && *cfg.CompanySizeMin > *cfg.CompanySizeMax {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "company_size_min exceeds company_size_max")
	}

	normalized, err := json.Marshal(cfg)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Config encoding failed")
	}

	repo := getUserRepo()
	if err := repo.UpdateICPConfig(userCtx.UserID, string(normalized)); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Config update failed")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(normalized)
}

// HandleHealthz reports liveness of the two backing stores.
func HandleHealthz(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbOK, cacheOK := true, true

	if sqlDB, err := database.GetDB().DB(); err != nil || sqlDB.Ping() != nil {
		dbOK = false
		status = fiber.StatusServiceUnavailable
	}
	if err := cache.GetClient().Ping(c.Context()).Err(); err != nil {
		cacheOK = false
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"database": dbOK,
		"cache":    cacheOK,
	})
}

// HandleAdminBudget surfaces the current global budget status for operators.
func HandleAdminBudget(c *fiber.Ctx) error {
	deps := getAnalyzeDeps()
	budget, err := deps.evaluator.EvaluateBudget(c.Context(), time.Now().UTC())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Budget evaluation failed")
	}
	return c.JSON(budget)
}

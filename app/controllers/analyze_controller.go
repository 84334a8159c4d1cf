package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/StKraemer/LeadRadar/app/models"
	"github.com/StKraemer/LeadRadar/internal/pkg/ai"
	"github.com/StKraemer/LeadRadar/internal/pkg/analysiscache"
	"github.com/StKraemer/LeadRadar/internal/pkg/database"
	"github.com/StKraemer/LeadRadar/internal/pkg/entitlements"
	"github.com/StKraemer/LeadRadar/internal/pkg/usage"
	"github.com/StKraemer/LeadRadar/internal/pkg/usercontext"
)

// analyzeDeps wires the analysis pipeline once. The budget evaluator keeps
// activation state across requests, so it must not be rebuilt per call.
type analyzeDeps struct {
	cfg       usage.Config
	repo      usage.Repository
	evaluator *usage.Evaluator
	enforcer  *usage.Enforcer
	recorder  *usage.Recorder
	cache     *analysiscache.Store
	client    *ai.Client
}

var (
	analyzeOnce sync.Once
	analyze     *analyzeDeps
)

func getAnalyzeDeps() *analyzeDeps {
	analyzeOnce.Do(func() {
		cfg := usage.ConfigFromEnv()
		db := database.GetDB()
		repo := usage.NewRepository(db)
		analyze = &analyzeDeps{
			cfg:       cfg,
			repo:      repo,
			evaluator: usage.NewEvaluator(repo, cfg),
			enforcer:  usage.NewEnforcer(repo, cfg),
			recorder:  usage.NewRecorder(repo, cfg),
			cache:     analysiscache.NewStoreFromDB(db, cfg.CacheTTL),
			client:    ai.NewClientFromEnv(),
		}
	})
	return analyze
}

// AnalyzeRequest is the payload for POST /api/v1/analyze.
type AnalyzeRequest struct {
	ProfileData map[string]interface{} `json:"profile_data"`
}

// AnalyzeResponse is the full analysis surface. Cached serves return the
// stored body verbatim.
type AnalyzeResponse struct {
	Qualification json.RawMessage `json:"qualification,omitempty"`
	Decision      json.RawMessage `json:"decision"`
	Plan          string          `json:"plan"`
	Preview       bool            `json:"preview"`
	Message       string          `json:"message"`
	Usage         usage.Stats     `json:"usage"`
}

// HandleAnalyze runs the full metered analysis pipeline: cache, budget gate,
// preview routing, enforcement, upstream call, recording.
func HandleAnalyze(c *fiber.Ctx) error {
	deps := getAnalyzeDeps()
	now := time.Now().UTC()

	userCtx := usercontext.GetUserContext(c)
	user, err := deps.repo.GetUserByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Account lookup failed")
	}

	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil || len(req.ProfileData) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "profile_data is required")
	}

	// Kill switch beats everything, including cached serves.
	if deps.cfg.DisableAllAnalyses {
		log.Printf("KILL SWITCH: all analyses disabled (user_id=%d)", user.ID)
		tallyDenial()
		return jsonError(c, fiber.StatusServiceUnavailable, "service_disabled",
			"Analysis service temporarily disabled. Please try again later.")
	}

	hash := analysiscache.Fingerprint(req.ProfileData)

	// Cached results already paid for their usage event; serve them without
	// touching budget, enforcement or the ledger.
	if body, ok, err := deps.cache.Get(c.Context(), hash, models.ResponseTypeFit, now); err == nil && ok {
		tallyCacheHit()
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	} else if err != nil {
		log.Printf("cache lookup failed for hash=%s: %v", hash[:12], err)
	}

	budget, err := deps.evaluator.EvaluateBudget(c.Context(), now)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Budget evaluation failed")
	}
	if budget.Reason == usage.BudgetReasonExhausted {
		// No silent downgrade to preview: paying users get an honest 503.
		tallyDenial()
		return jsonError(c, fiber.StatusServiceUnavailable, "budget_exhausted", NoBudgetCopy)
	}

	plan := entitlements.NormalizePlan(user.Plan)
	if !budget.Allowed || !entitlements.IsPaid(plan) {
		return servePreview(c, deps, user, plan, hash, now)
	}

	if err := deps.enforcer.Enforce(c.Context(), user, now); err != nil {
		var denial *usage.Denial
		if errors.As(err, &denial) {
			log.Printf("analysis denied: user_id=%d plan=%s kind=%s", user.ID, user.Plan, denial.Kind)
			return denialResponse(c, denial)
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Usage check failed")
	}

	qualification, decision, err := runAnalysis(c.Context(), deps.client, user, req.ProfileData)
	if err != nil {
		return upstreamErrorResponse(c, user, err)
	}

	if _, err := deps.recorder.RecordSuccess(c.Context(), user, deps.cfg.CostPerAnalysisUSD, now); err != nil {
		// The money is spent either way; surface the result but log loudly.
		log.Printf("CRITICAL: usage recording failed after successful analysis (user_id=%d): %v", user.ID, err)
	}
	tallyAnalysis()

	resp := AnalyzeResponse{
		Qualification: qualification,
		Decision:      decision,
		Plan:          string(plan),
		Preview:       false,
		Message:       PaidCopy,
		Usage:         usage.StatsFor(user, deps.cfg, now),
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Response encoding failed")
	}

	if err := deps.cache.Put(c.Context(), hash, models.ResponseTypeFit, body, &user.ID); err != nil {
		log.Printf("cache store failed for hash=%s: %v", hash[:12], err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// servePreview handles the non-spending path: free accounts and paid accounts
// blocked by the commercial-activation gate. Previews never write usage
// events; free previews burn the lifetime counter.
func servePreview(c *fiber.Ctx, deps *analyzeDeps, user *models.User, plan entitlements.Plan, hash string, now time.Time) error {
	message := NoBudgetCopy
	if !entitlements.IsPaid(plan) {
		message = FreeCopy

		if deps.cfg.DisableFreePlan {
			log.Printf("free plan disabled via kill switch (user_id=%d)", user.ID)
			tallyDenial()
			return jsonError(c, fiber.StatusPaymentRequired, "payment_required", FreeCopy)
		}
		if user.LifetimeAnalysesCount >= deps.cfg.LimitFree {
			tallyDenial()
			return jsonError(c, fiber.StatusPaymentRequired, "quota_exceeded",
				"Free analyses used up. Upgrade to keep qualifying leads.")
		}
		if err := deps.repo.ConsumeLifetimeSlot(user.ID); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Usage update failed")
		}
		user.LifetimeAnalysesCount++
	}

	decision, err := ai.Preview(hash)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Preview generation failed")
	}
	tallyPreview()

	log.Printf("preview served: user_id=%d plan=%s", user.ID, user.Plan)
	return c.JSON(AnalyzeResponse{
		Decision: decision,
		Plan:     string(plan),
		Preview:  true,
		Message:  message,
		Usage:    usage.StatsFor(user, deps.cfg, now),
	})
}

// runAnalysis performs the two upstream steps: fit scoring against the ICP,
// then the outreach decision derived from it.
func runAnalysis(ctx context.Context, client *ai.Client, user *models.User, profile map[string]interface{}) (json.RawMessage, json.RawMessage, error) {
	var icp json.RawMessage
	if user.ICPConfigJSON != "" {
		icp = json.RawMessage(user.ICPConfigJSON)
	}

	scoreInput, err := json.Marshal(fiber.Map{"profile": profile, "icp": icp})
	if err != nil {
		return nil, nil, err
	}
	qualification, err := client.CompleteJSON(ctx, ai.SystemPrompt, ai.FitScorerPrompt, scoreInput)
	if err != nil {
		return nil, nil, err
	}

	decisionInput, err := json.Marshal(fiber.Map{"qualification": qualification, "profile": profile})
	if err != nil {
		return nil, nil, err
	}
	decision, err := client.CompleteJSON(ctx, ai.SystemPrompt, ai.DecisionWriterPrompt, decisionInput)
	if err != nil {
		return nil, nil, err
	}
	return qualification, decision, nil
}

// upstreamErrorResponse distinguishes exhausted transient failures (503,
// worth retrying later) from permanent ones (502, a bug or contract break).
func upstreamErrorResponse(c *fiber.Ctx, user *models.User, err error) error {
	if ai.IsMalformedOutput(err) || !ai.IsRetryable(err) {
		log.Printf("invalid AI response for user_id=%d: %v", user.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "invalid_ai_response",
			"AI service returned an invalid response. Please try again.")
	}
	log.Printf("AI service unavailable for user_id=%d: %v", user.ID, err)
	return jsonError(c, fiber.StatusServiceUnavailable, "ai_unavailable",
		"AI service temporarily unavailable. Please try again in a few moments.")
}

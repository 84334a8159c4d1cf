package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/StKraemer/LeadRadar/app/models"
	"github.com/StKraemer/LeadRadar/internal/pkg/ai"
	"github.com/StKraemer/LeadRadar/internal/pkg/analysiscache"
	"github.com/StKraemer/LeadRadar/internal/pkg/cache"
	"github.com/StKraemer/LeadRadar/internal/pkg/usage"
	"github.com/StKraemer/LeadRadar/internal/pkg/usercontext"
)

// ctrlUsageRepo is an in-memory usage.Repository for handler tests.
type ctrlUsageRepo struct {
	users      map[uint]*models.User
	planCounts map[string]int64
	spend      float64
	events     []*models.UsageEvent
	stamped    []time.Time
}

func newCtrlUsageRepo() *ctrlUsageRepo {
	return &ctrlUsageRepo{
		users:      map[uint]*models.User{},
		planCounts: map[string]int64{},
	}
}

func (f *ctrlUsageRepo) GetUserByID(id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *ctrlUsageRepo) StampLastAnalysis(userID uint, at time.Time) error {
	f.stamped = append(f.stamped, at)
	return nil
}

func (f *ctrlUsageRepo) AppendEventAndCounters(event *models.UsageEvent, user *models.User) error {
	f.events = append(f.events, event)
	f.users[user.ID] = user
	return nil
}

func (f *ctrlUsageRepo) ConsumeLifetimeSlot(userID uint) error {
	if u, ok := f.users[userID]; ok {
		u.LifetimeAnalysesCount++
	}
	return nil
}

func (f *ctrlUsageRepo) CountUsersByPlan(plan string) (int64, error) {
	return f.planCounts[plan], nil
}

func (f *ctrlUsageRepo) SumEventCostSince(since time.Time) (float64, error) {
	return f.spend, nil
}

func (f *ctrlUsageRepo) FirstEventInMonth(userID uint, monthKey, eventType string) (*models.UsageEvent, error) {
	return nil, gorm.ErrRecordNotFound
}

// ctrlCacheRepo is an in-memory analysiscache.Repository.
type ctrlCacheRepo struct {
	entries []*models.AnalysisCache
}

func (f *ctrlCacheRepo) LatestSince(profileHash, responseType string, cutoff time.Time) (*models.AnalysisCache, error) {
	var best *models.AnalysisCache
	for _, e := range f.entries {
		if e.ProfileHash != profileHash || e.ResponseType != responseType || e.CreatedAt.Before(cutoff) {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (f *ctrlCacheRepo) Append(entry *models.AnalysisCache) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	f.entries = append(f.entries, entry)
	return nil
}

func ctrlTestConfig() usage.Config {
	return usage.Config{
		AIEnabled:          true,
		RateLimitWindow:    30 * time.Second,
		LimitFree:          3,
		LimitStarter:       40,
		LimitPro:           150,
		LimitTeam:          500,
		RevenueStarter:     6.0,
		RevenuePro:         12.0,
		RevenueTeam:        36.0,
		CostPerAnalysisUSD: 0.03,
		CacheTTL:           24 * time.Hour,
	}
}

// installAnalyzeDeps swaps the handler's lazily-built dependency bundle for
// the duration of one test.
func installAnalyzeDeps(t *testing.T, repo usage.Repository, cacheRepo analysiscache.Repository, cfg usage.Config, client *ai.Client) {
	t.Helper()
	analyzeOnce.Do(func() {})
	prev := analyze
	analyze = &analyzeDeps{
		cfg:       cfg,
		repo:      repo,
		evaluator: usage.NewEvaluator(repo, cfg),
		enforcer:  usage.NewEnforcer(repo, cfg),
		recorder:  usage.NewRecorder(repo, cfg),
		cache:     analysiscache.NewStore(cacheRepo, cfg.CacheTTL),
		client:    client,
	}
	t.Cleanup(func() { analyze = prev })
}

func installTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
	return mr
}

func newAnalyzeApp(user *models.User) *fiber.App {
	app := fiber.New()
	app.Post("/analyze", func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			Plan:       user.Plan,
			IsLoggedIn: true,
		})
		return c.Next()
	}, HandleAnalyze)
	return app
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func analyzeRequest(t *testing.T, profile map[string]interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(AnalyzeRequest{ProfileData: profile})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newUpstreamStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"score": 91, "should_contact": true}`}},
			},
		}
		_ = json.NewEncoder(w).Encode(env)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func stubAIClient(srv *httptest.Server) *ai.Client {
	return &ai.Client{
		APIKey:     "sk-test",
		APIBaseURL: srv.URL,
		Model:      "gpt-4o-mini",
		HTTPClient: srv.Client(),
		Retry: ai.RetryConfig{
			MaxRetries:     0,
			InitialBackoff: time.Millisecond,
			BackoffFactor:  2.0,
			RetryIf:        ai.IsRetryable,
		},
	}
}

func TestHandleAnalyzeFreeLifetimeLimitExhausted(t *testing.T) {
	mr := installTestRedis(t)
	repo := newCtrlUsageRepo()
	user := &models.User{ID: 1, Email: "free@example.com", Plan: "free", Status: models.STATUS_ACTIVE, LifetimeAnalysesCount: 3}
	repo.users[1] = user
	repo.planCounts["starter"] = 1 // budget active so only the lifetime cap blocks
	installAnalyzeDeps(t, repo, &ctrlCacheRepo{}, ctrlTestConfig(), nil)

	app := newAnalyzeApp(user)
	resp, err := app.Test(analyzeRequest(t, map[string]interface{}{"profile_url": "https://linkedin.com/in/x", "headline": "CTO"}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "quota_exceeded", body["error"])

	// Nothing moved: no slot burned, no ledger write, no rate-limit stamp.
	assert.Equal(t, 3, user.LifetimeAnalysesCount)
	assert.Empty(t, repo.events)
	assert.Empty(t, repo.stamped)

	day := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, "1", mr.HGet("request:counters:denials", day))
}

func TestHandleAnalyzeCacheHitIsByteIdentical(t *testing.T) {
	installTestRedis(t)
	repo := newCtrlUsageRepo()
	user := &models.User{ID: 2, Email: "pro@example.com", Plan: "pro", Status: models.STATUS_ACTIVE}
	repo.users[2] = user
	repo.planCounts["pro"] = 1
	cacheRepo := &ctrlCacheRepo{}
	installAnalyzeDeps(t, repo, cacheRepo, ctrlTestConfig(), stubAIClient(newUpstreamStub(t)))

	app := newAnalyzeApp(user)
	profile := map[string]interface{}{"profile_url": "https://linkedin.com/in/jane", "headline": "VP Engineering"}

	first, err := app.Test(analyzeRequest(t, profile), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, first.StatusCode)
	firstBody := readAll(t, first)
	require.Len(t, repo.events, 1)

	second, err := app.Test(analyzeRequest(t, profile), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, second.StatusCode)
	secondBody := readAll(t, second)

	assert.Equal(t, firstBody, secondBody, "cache hit must replay the stored body verbatim")
	assert.Len(t, repo.events, 1, "a cache hit must not append a usage event")
	assert.Len(t, repo.stamped, 1, "a cache hit must not touch the rate-limit cursor")
	require.Len(t, cacheRepo.entries, 1)
	assert.Equal(t, string(firstBody), cacheRepo.entries[0].ResponseJSON)
}

func TestHandleAnalyzeBudgetExhaustedNoSilentDowngrade(t *testing.T) {
	installTestRedis(t)
	repo := newCtrlUsageRepo()
	user := &models.User{ID: 3, Email: "pro@example.com", Plan: "pro", Status: models.STATUS_ACTIVE}
	repo.users[3] = user
	repo.planCounts["starter"] = 1
	repo.spend = 6.0 // spend == budget
	installAnalyzeDeps(t, repo, &ctrlCacheRepo{}, ctrlTestConfig(), nil)

	app := newAnalyzeApp(user)
	resp, err := app.Test(analyzeRequest(t, map[string]interface{}{"profile_url": "https://linkedin.com/in/x", "headline": "CTO"}), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "budget_exhausted", body["error"])
	assert.Equal(t, NoBudgetCopy, body["message"])
	assert.Empty(t, repo.events)
}

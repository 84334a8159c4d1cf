package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StKraemer/LeadRadar/app/models"
)

func proUser(id uint) *models.User {
	return &models.User{
		ID:     id,
		Email:  "pro@example.com",
		Plan:   "pro",
		Status: models.STATUS_ACTIVE,
	}
}

func asDenial(t *testing.T, err error) *Denial {
	t.Helper()
	var d *Denial
	require.True(t, errors.As(err, &d), "expected *Denial, got %v", err)
	return d
}

func TestEnforceKillSwitch(t *testing.T) {
	cfg := testConfig()
	cfg.DisableAllAnalyses = true
	repo := newFakeRepo()

	err := NewEnforcer(repo, cfg).Enforce(context.Background(), proUser(1), time.Now())
	d := asDenial(t, err)
	assert.Equal(t, DenialServiceDisabled, d.Kind)
	assert.Empty(t, repo.stamped)
}

func TestEnforceFreePlanGuard(t *testing.T) {
	repo := newFakeRepo()
	user := &models.User{ID: 2, Plan: "free"}

	err := NewEnforcer(repo, testConfig()).Enforce(context.Background(), user, time.Now())
	d := asDenial(t, err)
	assert.Equal(t, DenialPaymentRequired, d.Kind)
}

func TestEnforceRateLimitWindow(t *testing.T) {
	repo := newFakeRepo()
	enforcer := NewEnforcer(repo, testConfig())
	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

	user := proUser(3)
	last := now.Add(-10 * time.Second)
	user.LastAnalysisAt = &last

	// 10s into a 30s window: denied with ~20s remaining.
	err := enforcer.Enforce(context.Background(), user, now)
	d := asDenial(t, err)
	assert.Equal(t, DenialRateLimited, d.Kind)
	assert.Equal(t, 20*time.Second, d.RetryAfter)

	// 31s after the last analysis the window has passed.
	later := last.Add(31 * time.Second)
	require.NoError(t, enforcer.Enforce(context.Background(), user, later))
	require.Len(t, repo.stamped, 1)
	assert.Equal(t, later, repo.stamped[0])
	require.NotNil(t, user.LastAnalysisAt)
	assert.Equal(t, later, *user.LastAnalysisAt)
}

func TestEnforceQuotaBoundary(t *testing.T) {
	repo := newFakeRepo()
	enforcer := NewEnforcer(repo, testConfig())
	now := time.Now()

	user := proUser(4)
	user.MonthlyAnalysesCount = 149 // limit-1 passes
	require.NoError(t, enforcer.Enforce(context.Background(), user, now))

	user2 := proUser(5)
	user2.MonthlyAnalysesCount = 150 // at the limit denies
	err := enforcer.Enforce(context.Background(), user2, now)
	d := asDenial(t, err)
	assert.Equal(t, DenialQuotaExceeded, d.Kind)
	assert.Equal(t, 150, d.Used)
	assert.Equal(t, 150, d.Limit)
}

func TestEnforceStampsBeforeUpstream(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()

	user := proUser(6)
	require.NoError(t, NewEnforcer(repo, testConfig()).Enforce(context.Background(), user, now))

	// The cursor is persisted by Enforce itself, not by the recorder, so the
	// window holds even when the upstream call never succeeds.
	require.Len(t, repo.stamped, 1)
	assert.Empty(t, repo.events)
}

func TestEnforceStampFailureSurfaces(t *testing.T) {
	repo := newFakeRepo()
	repo.stampErr = errors.New("db down")

	err := NewEnforcer(repo, testConfig()).Enforce(context.Background(), proUser(7), time.Now())
	require.Error(t, err)
	var d *Denial
	assert.False(t, errors.As(err, &d), "infrastructure errors must not look like denials")
}

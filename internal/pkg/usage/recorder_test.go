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

func TestRecordSuccessPaidIncrementsMonthly(t *testing.T) {
	repo := newFakeRepo()
	recorder := NewRecorder(repo, testConfig())
	now := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)

	user := proUser(1)
	user.MonthlyAnalysesCount = 7
	user.LifetimeAnalysesCount = 99

	event, err := recorder.RecordSuccess(context.Background(), user, 0.05, now)
	require.NoError(t, err)

	assert.Equal(t, "2026-08", event.MonthKey)
	assert.Equal(t, models.EventTypeAnalysis, event.EventType)
	assert.InDelta(t, 0.05, event.CostUSD, 1e-9)
	assert.Equal(t, 8, user.MonthlyAnalysesCount)
	assert.Equal(t, 99, user.LifetimeAnalysesCount, "paid accounts never touch the lifetime counter")
	require.NotNil(t, user.LastAnalysisAt)
	assert.Equal(t, now, *user.LastAnalysisAt)
	require.Len(t, repo.events, 1)
}

func TestRecordSuccessFreeIncrementsLifetime(t *testing.T) {
	repo := newFakeRepo()
	recorder := NewRecorder(repo, testConfig())

	user := &models.User{ID: 2, Plan: "free", LifetimeAnalysesCount: 1}
	_, err := recorder.RecordSuccess(context.Background(), user, 0, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, user.LifetimeAnalysesCount)
	assert.Equal(t, 0, user.MonthlyAnalysesCount)
}

func TestRecordSuccessDefaultsCost(t *testing.T) {
	repo := newFakeRepo()
	recorder := NewRecorder(repo, testConfig())

	event, err := recorder.RecordSuccess(context.Background(), proUser(3), 0, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 0.03, event.CostUSD, 1e-9)
}

func TestRecordSuccessPropagatesTxError(t *testing.T) {
	repo := newFakeRepo()
	repo.appendErr = errors.New("tx failed")
	recorder := NewRecorder(repo, testConfig())

	_, err := recorder.RecordSuccess(context.Background(), proUser(4), 0, time.Now())
	require.Error(t, err)
	assert.Empty(t, repo.events)
}

func TestStatsForFreeAndPaid(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)

	free := &models.User{Plan: "free", LifetimeAnalysesCount: 2}
	s := StatsFor(free, cfg, now)
	assert.Equal(t, "free", s.Plan)
	assert.Empty(t, s.MonthKey, "free accounts track lifetime, not a month")
	assert.Equal(t, 2, s.Used)
	assert.Equal(t, 3, s.Limit)
	assert.Equal(t, 1, s.Remaining)

	reset := now.AddDate(0, 1, 0)
	paid := &models.User{Plan: "team", MonthlyAnalysesCount: 510, MonthlyAnalysesResetAt: &reset}
	s = StatsFor(paid, cfg, now)
	assert.Equal(t, "2026-08", s.MonthKey)
	assert.Equal(t, 510, s.Used)
	assert.Equal(t, 0, s.Remaining, "remaining never goes negative")
	assert.Equal(t, &reset, s.ResetAt)
}

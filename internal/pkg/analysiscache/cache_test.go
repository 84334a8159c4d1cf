package analysiscache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/StKraemer/LeadRadar/app/models"
)

type fakeCacheRepo struct {
	entries   []*models.AnalysisCache
	appendErr error
	lookupErr error
}

func (f *fakeCacheRepo) LatestSince(profileHash, responseType string, cutoff time.Time) (*models.AnalysisCache, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var best *models.AnalysisCache
	for _, e := range f.entries {
		if e.ProfileHash != profileHash || e.ResponseType != responseType {
			continue
		}
		if e.CreatedAt.Before(cutoff) {
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

func (f *fakeCacheRepo) Append(entry *models.AnalysisCache) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	f.entries = append(f.entries, entry)
	return nil
}

func TestStoreGetFreshEntry(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo := &fakeCacheRepo{entries: []*models.AnalysisCache{
		{ProfileHash: "abc", ResponseType: models.ResponseTypeFit, ResponseJSON: `{"old":true}`, CreatedAt: now.Add(-20 * time.Hour)},
		{ProfileHash: "abc", ResponseType: models.ResponseTypeFit, ResponseJSON: `{"fresh":true}`, CreatedAt: now.Add(-1 * time.Hour)},
	}}
	store := NewStore(repo, 24*time.Hour)

	payload, ok, err := store.Get(context.Background(), "abc", models.ResponseTypeFit, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected hit")
	}
	if string(payload) != `{"fresh":true}` {
		t.Fatalf("expected the freshest entry, got %s", payload)
	}
}

func TestStoreGetExpiredEntryMisses(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo := &fakeCacheRepo{entries: []*models.AnalysisCache{
		{ProfileHash: "abc", ResponseType: models.ResponseTypeFit, ResponseJSON: `{}`, CreatedAt: now.Add(-25 * time.Hour)},
	}}
	store := NewStore(repo, 24*time.Hour)

	_, ok, err := store.Get(context.Background(), "abc", models.ResponseTypeFit, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("entries older than the TTL must not be served")
	}
}

func TestStoreGetDistinguishesResponseType(t *testing.T) {
	now := time.Now().UTC()
	repo := &fakeCacheRepo{entries: []*models.AnalysisCache{
		{ProfileHash: "abc", ResponseType: models.ResponseTypeFit, ResponseJSON: `{}`, CreatedAt: now},
	}}
	store := NewStore(repo, 24*time.Hour)

	_, ok, err := store.Get(context.Background(), "abc", models.ResponseTypeIcebreaker, now)
	if err != nil || ok {
		t.Fatalf("expected miss for other response type, ok=%v err=%v", ok, err)
	}
}

func TestStoreGetPropagatesLookupError(t *testing.T) {
	repo := &fakeCacheRepo{lookupErr: errors.New("connection refused")}
	store := NewStore(repo, 24*time.Hour)

	_, ok, err := store.Get(context.Background(), "abc", models.ResponseTypeFit, time.Now())
	if err == nil || ok {
		t.Fatalf("expected lookup error to propagate, ok=%v err=%v", ok, err)
	}
}

func TestStorePutAppendsVerbatim(t *testing.T) {
	repo := &fakeCacheRepo{}
	store := NewStore(repo, 24*time.Hour)
	userID := uint(7)
	payload := json.RawMessage(`{"qualification":{"score":91},"plan":"pro"}`)

	if err := store.Put(context.Background(), "abc", models.ResponseTypeFit, payload, &userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.ResponseJSON != string(payload) {
		t.Fatalf("payload must be stored byte for byte, got %s", entry.ResponseJSON)
	}
	if entry.UserID == nil || *entry.UserID != 7 {
		t.Fatalf("expected user attribution, got %v", entry.UserID)
	}

	// Put never updates in place: a second write for the same key appends.
	if err := store.Put(context.Background(), "abc", models.ResponseTypeFit, payload, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.entries) != 2 {
		t.Fatalf("expected append-only writes, got %d entries", len(repo.entries))
	}
}

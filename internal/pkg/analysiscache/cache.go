package analysiscache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/StKraemer/LeadRadar/app/models"
	"gorm.io/gorm"
)

// Repository provides the DB operations used by the analysis cache.
type Repository interface {
	// LatestSince returns the most recent entry for (hash, kind) created at or
	// after the cutoff.
	LatestSince(profileHash, responseType string, cutoff time.Time) (*models.AnalysisCache, error)
	Append(entry *models.AnalysisCache) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a cache repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) LatestSince(profileHash, responseType string, cutoff time.Time) (*models.AnalysisCache, error) {
	var entry models.AnalysisCache
	err := r.db.
		Where("profile_hash = ? AND response_type = ? AND created_at >= ?", profileHash, responseType, cutoff).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *gormRepository) Append(entry *models.AnalysisCache) error {
	return r.db.Create(entry).Error
}

// Store is the content-addressed response cache. Hits short-circuit the budget
// gate, the enforcer and the upstream call; the hit pays nothing because the
// cached result already paid its usage event when it was created.
type Store struct {
	repo Repository
	ttl  time.Duration
}

// NewStore creates a cache store with the given TTL.
func NewStore(repo Repository, ttl time.Duration) *Store {
	return &Store{repo: repo, ttl: ttl}
}

// NewStoreFromDB creates a cache store from a GORM DB handle.
func NewStoreFromDB(db *gorm.DB, ttl time.Duration) *Store {
	return NewStore(NewRepository(db), ttl)
}

// Get returns the freshest cached payload for (hash, kind), or ok=false when
// nothing younger than the TTL exists. Expiry is purely a read-time filter.
func (s *Store) Get(ctx context.Context, profileHash, responseType string, now time.Time) (json.RawMessage, bool, error) {
	_ = ctx

	entry, err := s.repo.LatestSince(profileHash, responseType, now.Add(-s.ttl))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	log.Printf("cache: hit profile_hash=%s type=%s age=%s", shortHash(profileHash), responseType, now.Sub(entry.CreatedAt).Round(time.Second))
	return json.RawMessage(entry.ResponseJSON), true, nil
}

// Put appends a new entry. Entries are never updated in place; stale rows stay
// behind for audit and simply stop matching the TTL filter.
func (s *Store) Put(ctx context.Context, profileHash, responseType string, payload json.RawMessage, userID *uint) error {
	_ = ctx

	entry := &models.AnalysisCache{
		ProfileHash:  profileHash,
		ResponseType: responseType,
		ResponseJSON: string(payload),
		UserID:       userID,
	}
	if err := s.repo.Append(entry); err != nil {
		return err
	}
	log.Printf("cache: stored profile_hash=%s type=%s", shortHash(profileHash), responseType)
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

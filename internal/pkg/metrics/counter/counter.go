package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/StKraemer/LeadRadar/internal/pkg/cache"
	"github.com/StKraemer/LeadRadar/internal/pkg/database"
)

const (
	analysesKey  = "request:counters:analyses"
	previewsKey  = "request:counters:previews"
	cacheHitsKey = "request:counters:cache_hits"
	denialsKey   = "request:counters:denials"
)

func dayField(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

// AddAnalysis increments the pending analysis counter for the day in Redis
func AddAnalysis(at time.Time) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, analysesKey, dayField(at), 1).Err()
}

// AddPreview increments the pending preview counter for the day in Redis
func AddPreview(at time.Time) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, previewsKey, dayField(at), 1).Err()
}

// AddCacheHit increments the pending cache-hit counter for the day in Redis
func AddCacheHit(at time.Time) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, cacheHitsKey, dayField(at), 1).Err()
}

// AddDenial increments the pending denial counter for the day in Redis
func AddDenial(at time.Time) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, denialsKey, dayField(at), 1).Err()
}

// FlushAll flushes all pending request tallies to the daily_stats table
func FlushAll() error {
	if err := flushHashToColumn(analysesKey, "analyses"); err != nil {
		return err
	}
	if err := flushHashToColumn(previewsKey, "previews"); err != nil {
		return err
	}
	if err := flushHashToColumn(cacheHitsKey, "cache_hits"); err != nil {
		return err
	}
	if err := flushHashToColumn(denialsKey, "denials"); err != nil {
		return err
	}
	return nil
}

// flushHashToColumn drains a Redis hash atomically and applies batched increments
// to the daily_stats table. Uses RENAME to a temporary key for atomic drain
// without losing in-flight increments.
func flushHashToColumn(redisKey, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type pair struct {
		day string
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for day, v := range data {
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{day: day, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].day < pairs[j].day })

	db := database.GetDB()
	for _, p := range pairs {
		sql := fmt.Sprintf(
			"INSERT INTO daily_stats (day, %s, created_at, updated_at) VALUES (?, ?, NOW(), NOW()) "+
				"ON DUPLICATE KEY UPDATE %s = %s + ?, updated_at = NOW()",
			column, column, column,
		)
		if err := db.Exec(sql, p.day, p.inc, p.inc).Error; err != nil {
			return err
		}
	}
	return nil
}

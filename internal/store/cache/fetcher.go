// Package cache fronts the snapshot fetcher with Redis so repeated refreshes
// inside the TTL do not hit the database.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"health-reminders/internal/common/logger"
	"health-reminders/internal/models"
	"health-reminders/internal/reminders/snapshot"

	"github.com/redis/go-redis/v9"
)

const (
	medicationsKeyPrefix = "reminders:medications:"
	mealPlansKeyPrefix   = "reminders:meal-plans:"
)

// Fetcher implements snapshot.Fetcher. Cache failures are logged and the
// source is consulted instead.
type Fetcher struct {
	source snapshot.Fetcher
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewFetcher(source snapshot.Fetcher, client *redis.Client, ttl time.Duration, log logger.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		redis:  client,
		ttl:    ttl,
		logger: logger.OrNop(log).WithFields(map[string]interface{}{"component": "snapshot-cache"}),
	}
}

// ListSubscribers always reads the source.
func (f *Fetcher) ListSubscribers(ctx context.Context) ([]string, error) {
	return f.source.ListSubscribers(ctx)
}

func (f *Fetcher) FetchMedications(ctx context.Context, userID string) ([]models.Medication, error) {
	var meds []models.Medication
	key := medicationsKeyPrefix + userID
	if f.get(ctx, key, &meds) {
		return meds, nil
	}

	meds, err := f.source.FetchMedications(ctx, userID)
	if err != nil {
		return nil, err
	}
	f.set(ctx, key, meds)
	return meds, nil
}

func (f *Fetcher) FetchMealPlans(ctx context.Context, userID string) ([]models.MealPlan, error) {
	var plans []models.MealPlan
	key := mealPlansKeyPrefix + userID
	if f.get(ctx, key, &plans) {
		return plans, nil
	}

	plans, err := f.source.FetchMealPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	f.set(ctx, key, plans)
	return plans, nil
}

// Invalidate drops the cached data of one user.
func (f *Fetcher) Invalidate(ctx context.Context, userID string) error {
	return f.redis.Del(ctx, medicationsKeyPrefix+userID, mealPlansKeyPrefix+userID).Err()
}

func (f *Fetcher) get(ctx context.Context, key string, out interface{}) bool {
	val, err := f.redis.Get(ctx, key).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			f.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		f.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key, "error": err})
		return false
	}
	return true
}

func (f *Fetcher) set(ctx context.Context, key string, v interface{}) {
	if f.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := f.redis.Set(ctx, key, data, f.ttl).Err(); err != nil {
		f.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

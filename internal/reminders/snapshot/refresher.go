package snapshot

import (
	"context"
	"fmt"
	"time"

	"health-reminders/internal/common/logger"
	"health-reminders/internal/common/metrics"
	"health-reminders/internal/models"
)

// DefaultRefreshInterval applies when NewRefresher is given a non-positive interval.
const DefaultRefreshInterval = time.Minute

// Refresher reloads every subscriber's snapshot on its own cadence. A user
// whose fetch fails keeps the previous snapshot.
type Refresher struct {
	fetcher  Fetcher
	holder   *Holder
	interval time.Duration
	logger   logger.Logger
	now      func() time.Time
}

func NewRefresher(fetcher Fetcher, holder *Holder, interval time.Duration, log logger.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		fetcher:  fetcher,
		holder:   holder,
		interval: interval,
		logger:   logger.OrNop(log).WithFields(map[string]interface{}{"component": "snapshot-refresher"}),
		now:      time.Now,
	}
}

// Refresh performs one reload. It returns an error only when the subscriber
// list could not be fetched, in which case the holder is left untouched.
func (r *Refresher) Refresh(ctx context.Context) error {
	users, err := r.fetcher.ListSubscribers(ctx)
	if err != nil {
		metrics.SnapshotRefreshFailures.WithLabelValues("list").Inc()
		r.logger.Error("failed to list subscribers, keeping previous snapshots", map[string]interface{}{"error": err})
		return fmt.Errorf("list subscribers: %w", err)
	}

	snaps := make([]models.Snapshot, 0, len(users))
	stale := 0
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap, err := r.fetchUser(ctx, userID)
		if err != nil {
			metrics.SnapshotRefreshFailures.WithLabelValues("user").Inc()
			prev, ok := r.holder.Get(userID)
			r.logger.Warn("snapshot fetch failed", map[string]interface{}{
				"userId":    userID,
				"error":     err,
				"keptStale": ok,
			})
			if ok {
				snaps = append(snaps, prev)
				stale++
			}
			continue
		}
		snaps = append(snaps, snap)
	}

	r.holder.Replace(snaps)
	r.logger.Debug("snapshots refreshed", map[string]interface{}{
		"users": len(snaps),
		"stale": stale,
	})
	return nil
}

func (r *Refresher) fetchUser(ctx context.Context, userID string) (models.Snapshot, error) {
	meds, err := r.fetcher.FetchMedications(ctx, userID)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("medications: %w", err)
	}
	plans, err := r.fetcher.FetchMealPlans(ctx, userID)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("meal plans: %w", err)
	}
	return models.Snapshot{
		UserID:      userID,
		Medications: meds,
		MealPlans:   plans,
		FetchedAt:   r.now(),
	}, nil
}

// Run refreshes immediately and then on every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	_ = r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("snapshot refresher stopped", nil)
			return
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}

// Package snapshot keeps the latest medication and meal-plan data of every
// subscribed user available to the scheduler.
package snapshot

import (
	"context"
	"sort"
	"sync"

	"health-reminders/internal/models"
)

// Fetcher loads reminder data from the system of record.
type Fetcher interface {
	ListSubscribers(ctx context.Context) ([]string, error)
	FetchMedications(ctx context.Context, userID string) ([]models.Medication, error)
	FetchMealPlans(ctx context.Context, userID string) ([]models.MealPlan, error)
}

// Provider hands out the latest snapshots.
type Provider interface {
	Latest() []models.Snapshot
}

// Holder is a concurrency-safe store of the latest snapshot per user.
type Holder struct {
	mu     sync.RWMutex
	byUser map[string]models.Snapshot
}

func NewHolder() *Holder {
	return &Holder{byUser: make(map[string]models.Snapshot)}
}

// Latest returns all snapshots ordered by user ID.
func (h *Holder) Latest() []models.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.Snapshot, 0, len(h.byUser))
	for _, s := range h.byUser {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Get returns the snapshot stored for userID.
func (h *Holder) Get(userID string) (models.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.byUser[userID]
	return s, ok
}

// Replace swaps the whole content, dropping users not in snaps.
func (h *Holder) Replace(snaps []models.Snapshot) {
	next := make(map[string]models.Snapshot, len(snaps))
	for _, s := range snaps {
		next[s.UserID] = s
	}
	h.mu.Lock()
	h.byUser = next
	h.mu.Unlock()
}

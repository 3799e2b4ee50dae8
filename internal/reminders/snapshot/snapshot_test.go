package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"health-reminders/internal/common/logger"
	"health-reminders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) ListSubscribers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]string)
	return users, args.Error(1)
}

func (m *MockFetcher) FetchMedications(ctx context.Context, userID string) ([]models.Medication, error) {
	args := m.Called(ctx, userID)
	meds, _ := args.Get(0).([]models.Medication)
	return meds, args.Error(1)
}

func (m *MockFetcher) FetchMealPlans(ctx context.Context, userID string) ([]models.MealPlan, error) {
	args := m.Called(ctx, userID)
	plans, _ := args.Get(0).([]models.MealPlan)
	return plans, args.Error(1)
}

func TestHolder(t *testing.T) {
	h := NewHolder()
	assert.Empty(t, h.Latest())

	h.Replace([]models.Snapshot{{UserID: "b"}, {UserID: "a"}})
	latest := h.Latest()
	require.Len(t, latest, 2)
	assert.Equal(t, "a", latest[0].UserID)
	assert.Equal(t, "b", latest[1].UserID)

	h.Replace([]models.Snapshot{{UserID: "c"}})
	_, ok := h.Get("a")
	assert.False(t, ok)
	_, ok = h.Get("c")
	assert.True(t, ok)
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h := NewHolder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Replace([]models.Snapshot{{UserID: "user"}})
		}()
		go func() {
			defer wg.Done()
			_ = h.Latest()
		}()
	}
	wg.Wait()
	assert.Len(t, h.Latest(), 1)
}

func TestRefresher_Refresh(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	fetcher.On("ListSubscribers", ctx).Return([]string{"user-1"}, nil)
	fetcher.On("FetchMedications", ctx, "user-1").Return([]models.Medication{{ID: "med-1", Name: "Aspirin"}}, nil)
	fetcher.On("FetchMealPlans", ctx, "user-1").Return([]models.MealPlan{{ID: "plan-1"}}, nil)

	holder := NewHolder()
	fixed := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	r := NewRefresher(fetcher, holder, time.Minute, logger.NewTestLogger(t))
	r.now = func() time.Time { return fixed }

	require.NoError(t, r.Refresh(ctx))

	snap, ok := holder.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, "med-1", snap.Medications[0].ID)
	assert.Equal(t, "plan-1", snap.MealPlans[0].ID)
	assert.Equal(t, fixed, snap.FetchedAt)
	fetcher.AssertExpectations(t)
}

func TestRefresher_KeepsStaleSnapshotOnUserFailure(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	fetcher.On("ListSubscribers", ctx).Return([]string{"user-1", "user-2"}, nil)
	fetcher.On("FetchMedications", ctx, "user-1").Return(nil, errors.New("connection reset"))
	fetcher.On("FetchMedications", ctx, "user-2").Return(nil, errors.New("connection reset"))

	holder := NewHolder()
	stale := models.Snapshot{UserID: "user-1", Medications: []models.Medication{{ID: "old"}}}
	holder.Replace([]models.Snapshot{stale})

	r := NewRefresher(fetcher, holder, time.Minute, logger.NewTestLogger(t))
	require.NoError(t, r.Refresh(ctx))

	latest := holder.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, stale, latest[0])
	fetcher.AssertNotCalled(t, "FetchMealPlans", mock.Anything, mock.Anything)
}

func TestRefresher_ListFailureLeavesHolderUntouched(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	fetcher.On("ListSubscribers", ctx).Return(nil, errors.New("db down"))

	holder := NewHolder()
	holder.Replace([]models.Snapshot{{UserID: "user-1"}})

	r := NewRefresher(fetcher, holder, time.Minute, logger.NewNoOpLogger())
	err := r.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Len(t, holder.Latest(), 1)
}

func TestRefresher_DropsUnsubscribedUsers(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	fetcher.On("ListSubscribers", ctx).Return([]string{}, nil)

	holder := NewHolder()
	holder.Replace([]models.Snapshot{{UserID: "gone"}})

	r := NewRefresher(fetcher, holder, time.Minute, nil)
	require.NoError(t, r.Refresh(ctx))
	assert.Empty(t, holder.Latest())
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("ListSubscribers", mock.Anything).Return([]string{}, nil)

	r := NewRefresher(fetcher, NewHolder(), 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
	fetcher.AssertCalled(t, "ListSubscribers", mock.Anything)
}

func TestNewRefresher_DefaultsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		r := NewRefresher(new(MockFetcher), NewHolder(), interval, nil)
		assert.Equal(t, DefaultRefreshInterval, r.interval)
	}
}

func TestRefresher_RunWithZeroIntervalDoesNotPanic(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("ListSubscribers", mock.Anything).Return([]string{}, nil)

	r := NewRefresher(fetcher, NewHolder(), 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() { r.Run(ctx) })
}

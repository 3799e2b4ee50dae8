// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-reminders/internal/api"
	"health-reminders/internal/common/config"
	"health-reminders/internal/common/database"
	"health-reminders/internal/common/logger"
	"health-reminders/internal/common/mail"
	"health-reminders/internal/notifications"
	"health-reminders/internal/reminders/alert"
	"health-reminders/internal/reminders/dispatch"
	"health-reminders/internal/reminders/matcher"
	"health-reminders/internal/reminders/scheduler"
	"health-reminders/internal/reminders/snapshot"
	"health-reminders/internal/store/cache"
	"health-reminders/internal/store/postgres"
)

// recordingMailer captures outgoing emails instead of delivering them.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return uuid.NewString(), nil
}

func (m *recordingMailer) Provider() string { return "recording" }

func (m *recordingMailer) To(addr string) []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mail.Message
	for _, msg := range m.sent {
		if msg.To == addr {
			out = append(out, msg)
		}
	}
	return out
}

type fixture struct {
	userID string
	email  string
}

// TestFullE2E runs one sweep against real PostgreSQL and Redis and follows
// the dispatched requests through the notification API. Set E2E=1 to run.
func TestFullE2E(t *testing.T) {
	if os.Getenv("E2E") == "" {
		t.Skip("set E2E=1 with PostgreSQL and Redis on localhost to run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	log := logger.NewTestLogger(t)

	// 1. Connectivity
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx), "Redis ping failed")

	// 2. Schema and test data
	store := postgres.New(pg.DB)
	require.NoError(t, store.Migrate(ctx))
	fx := seed(t, ctx, pg)

	// 3. Notification API backed by a recording mailer
	mailer := &recordingMailer{}
	service := notifications.NewService(notifications.ServiceDependencies{
		Users:  store,
		Mailer: mailer,
		Logger: log,
	}, notifications.Config{FromEmail: "reminders@example.com"})
	ts := httptest.NewServer(api.NewRouter(api.Options{
		Service:   service,
		Logger:    log,
		Readiness: []api.ReadinessCheck{pg, rdb},
	}))
	defer ts.Close()

	// 4. Reminder pipeline
	mcfg := matcher.DefaultConfig()
	mcfg.Location = time.UTC
	m, err := matcher.New(mcfg)
	require.NoError(t, err)

	fetcher := cache.NewFetcher(store, rdb.Client, time.Minute, log)
	defer fetcher.Invalidate(context.Background(), fx.userID)

	holder := snapshot.NewHolder()
	require.NoError(t, snapshot.NewRefresher(fetcher, holder, time.Minute, log).Refresh(ctx))

	alerts := &alert.Recorder{}
	dispatcher := dispatch.New(alerts, dispatch.NewHTTPSender(ts.URL, 10*time.Second), log)

	sched, err := scheduler.New(scheduler.Config{}, m, holder, dispatcher, log)
	require.NoError(t, err)

	// 5. Sweep at 08:05 UTC on the seeded day
	now := time.Date(2024, 3, 10, 8, 5, 0, 0, time.UTC)
	result := sched.Sweep(ctx, now)
	require.NoError(t, dispatcher.Wait(ctx))

	assert.GreaterOrEqual(t, result.Events, 3)

	var userAlerts []alert.Entry
	for _, a := range alerts.Entries() {
		if a.UserID == fx.userID {
			userAlerts = append(userAlerts, a)
		}
	}
	assert.Len(t, userAlerts, 3)

	sent := mailer.To(fx.email)
	require.Len(t, sent, 3)

	var subjects []string
	for _, msg := range sent {
		subjects = append(subjects, msg.Subject)
	}
	joined := strings.Join(subjects, "\n")
	assert.Contains(t, joined, "Aspirin")
	assert.Contains(t, joined, "Insulin")
	assert.Contains(t, joined, "Meal Time Reminder: Breakfast")
}

func seed(t *testing.T, ctx context.Context, pg *database.PostgresClient) fixture {
	t.Helper()

	fx := fixture{userID: "e2e-" + uuid.NewString()}
	fx.email = fx.userID + "@example.com"

	_, err := pg.DB.ExecContext(ctx,
		`INSERT INTO users (id, name, email, reminders_enabled) VALUES ($1, $2, $3, TRUE)`,
		fx.userID, "E2E Patient", fx.email)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pg.DB.ExecContext(context.Background(), `DELETE FROM users WHERE id = $1`, fx.userID)
	})

	meds := []struct {
		name   string
		clock  string
		expiry *string
	}{
		{name: "Aspirin", clock: "08:00"},
		{name: "Insulin", clock: "21:00", expiry: strPtr("2024-03-13")},
	}
	for _, med := range meds {
		_, err := pg.DB.ExecContext(ctx,
			`INSERT INTO medications (id, user_id, name, dosage, frequency, time, start_date, expiry_date, active)
			 VALUES ($1, $2, $3, '1 unit', 'daily', $4, '2024-01-01', $5, TRUE)`,
			uuid.NewString(), fx.userID, med.name, med.clock, med.expiry)
		require.NoError(t, err)
	}

	_, err = pg.DB.ExecContext(ctx,
		`INSERT INTO meal_plans (id, user_id, date, meal1) VALUES ($1, $2, '2024-03-10', 'Oats')`,
		uuid.NewString(), fx.userID)
	require.NoError(t, err)

	return fx
}

func strPtr(s string) *string { return &s }

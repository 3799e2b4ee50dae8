// Package api exposes the notification service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"health-reminders/internal/common/logger"
	"health-reminders/internal/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NotificationService sends reminder emails on behalf of a user.
type NotificationService interface {
	SendMedicationReminder(ctx context.Context, userID string, req models.MedicationReminderRequest) (*models.NotificationResult, error)
	SendMealReminder(ctx context.Context, userID string, req models.MealReminderRequest) (*models.NotificationResult, error)
}

// ReadinessCheck is a dependency probed by GET /ready.
type ReadinessCheck interface {
	Name() string
	Ping(ctx context.Context) error
}

type Options struct {
	Service   NotificationService
	Logger    logger.Logger
	Readiness []ReadinessCheck

	// ReadinessTimeout bounds all probes together. Defaults to 2s.
	ReadinessTimeout time.Duration

	// MetricsHandler serves /metrics. Defaults to the Prometheus registry.
	MetricsHandler http.Handler
}

func NewRouter(opts Options) http.Handler {
	log := logger.OrNop(opts.Logger).WithFields(map[string]interface{}{"component": "api"})
	if opts.ReadinessTimeout <= 0 {
		opts.ReadinessTimeout = 2 * time.Second
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(UserContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ready", readyHandler(opts.Readiness, opts.ReadinessTimeout))
	r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)

	h := &handlers{svc: opts.Service, logger: log}
	r.Route("/api/notifications", func(nr chi.Router) {
		nr.Use(RequireUser)
		nr.Post("/medication-reminder", h.medicationReminder)
		nr.Post("/meal-reminder", h.mealReminder)
	})

	return r
}

// cmd/reminder-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"health-reminders/internal/api"
	awsint "health-reminders/internal/common/aws"
	"health-reminders/internal/common/camunda"
	"health-reminders/internal/common/config"
	"health-reminders/internal/common/database"
	"health-reminders/internal/common/logger"
	"health-reminders/internal/common/mail"
	"health-reminders/internal/common/observability"
	"health-reminders/internal/notifications"
	"health-reminders/internal/reminders/alert"
	"health-reminders/internal/reminders/dispatch"
	"health-reminders/internal/reminders/matcher"
	"health-reminders/internal/reminders/scheduler"
	"health-reminders/internal/reminders/snapshot"
	"health-reminders/internal/store/cache"
	"health-reminders/internal/store/postgres"

	mealr "health-reminders/internal/workers/notifications/meal-reminder"
	medr "health-reminders/internal/workers/notifications/medication-reminder"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: cfg.App.Name,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting reminder manager...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel meter provider unavailable", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	store := postgres.New(pg.DB)
	if err := store.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	readiness := []api.ReadinessCheck{pg, rdb}

	// --- Init Zeebe Client ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled || cfg.Dispatch.Mode == "zeebe" {
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      30 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zeebe.Close()
		readiness = append(readiness, zeebe)
		zapLog.Info("Zeebe client connected successfully")
	}

	// --- Notification service ---
	service, err := newNotificationService(ctx, cfg, store, log)
	if err != nil {
		zapLog.Fatal("notification service init failed", zap.Error(err))
	}

	// --- Zeebe workers ---
	var workers []*camunda.Worker
	if cfg.Camunda.Enabled {
		if config.IsWorkerEnabled(cfg, medr.TaskType) {
			wcfg := config.GetWorkerConfig(cfg, medr.TaskType)
			handler := medr.NewHandler(medr.LoadConfig(wcfg), service, obs, log)
			workers = append(workers, camunda.NewWorker(zeebe.GetClient(), medr.TaskType, wcfg, handler, zapLog))
		}
		if config.IsWorkerEnabled(cfg, mealr.TaskType) {
			wcfg := config.GetWorkerConfig(cfg, mealr.TaskType)
			handler := mealr.NewHandler(mealr.LoadConfig(wcfg), service, obs, log)
			workers = append(workers, camunda.NewWorker(zeebe.GetClient(), mealr.TaskType, wcfg, handler, zapLog))
		}
		zapLog.Info("workers registered", zap.Int("count", len(workers)))
	}

	// --- Reminder engine ---
	var (
		dispatcher *dispatch.Dispatcher
		bg         sync.WaitGroup
	)
	if cfg.Reminders.Enabled {
		mcfg, err := matcher.ConfigFrom(cfg.Reminders)
		if err != nil {
			zapLog.Fatal("invalid reminder configuration", zap.Error(err))
		}
		m, err := matcher.New(mcfg)
		if err != nil {
			zapLog.Fatal("matcher init failed", zap.Error(err))
		}

		holder := snapshot.NewHolder()
		fetcher := cache.NewFetcher(store, rdb.Client, config.GetDuration(cfg.Reminders.CacheTTL), log)
		refresher := snapshot.NewRefresher(fetcher, holder, config.GetDuration(cfg.Reminders.RefreshInterval), log)
		if err := refresher.Refresh(ctx); err != nil {
			zapLog.Warn("initial snapshot load failed", zap.Error(err))
		}

		var sender dispatch.Sender
		switch cfg.Dispatch.Mode {
		case "zeebe":
			sender = dispatch.NewZeebeSender(zeebe)
		default:
			sender = dispatch.NewHTTPSender(cfg.Dispatch.BaseURL, 0)
		}
		dispatcher = dispatch.New(alert.NewLogAlerter(log), sender, log, dispatch.WithSendTimeout(config.GetDuration(cfg.Dispatch.Timeout)))

		sched, err := scheduler.New(
			scheduler.Config{Interval: config.GetDuration(cfg.Reminders.Interval)},
			m, holder, dispatcher, log,
			scheduler.WithObservability(obs),
		)
		if err != nil {
			zapLog.Fatal("scheduler init failed", zap.Error(err))
		}

		bg.Add(2)
		go func() {
			defer bg.Done()
			refresher.Run(ctx)
		}()
		go func() {
			defer bg.Done()
			sched.Run(ctx)
		}()
		zapLog.Info("reminder scheduler started",
			zap.Duration("interval", config.GetDuration(cfg.Reminders.Interval)),
			zap.String("dispatchMode", cfg.Dispatch.Mode),
		)
	}

	// --- Notification API, health and metrics ---
	srv := &http.Server{
		Addr: cfg.Server.Address,
		Handler: api.NewRouter(api.Options{
			Service:   service,
			Logger:    log,
			Readiness: readiness,
		}),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	cancel()
	bg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	for _, w := range workers {
		w.Stop()
	}

	if dispatcher != nil {
		drainCtx, drainStop := context.WithTimeout(context.Background(), config.GetDuration(cfg.Dispatch.DrainTimeout))
		if err := dispatcher.Wait(drainCtx); err != nil {
			zapLog.Warn("in-flight reminder sends abandoned", zap.Error(err))
		}
		drainStop()
	}

	zapLog.Info("Reminder manager stopped gracefully")
}

func newNotificationService(ctx context.Context, cfg *config.Config, users notifications.UserDirectory, log logger.Logger) (*notifications.Service, error) {
	deps := notifications.ServiceDependencies{Users: users, Logger: log}
	ncfg := notifications.Config{
		FromEmail:   cfg.Notifications.Email.FromEmail,
		SMSEnabled:  cfg.Notifications.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled,
		SMSSenderID: cfg.Integrations.AWS.SNS.DefaultSMSSenderID,
	}

	needsAWS := cfg.Notifications.Provider == "ses" || ncfg.SMSEnabled
	if needsAWS {
		awsCfg, err := awsint.LoadConfig(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, err
		}
		if cfg.Notifications.Provider == "ses" {
			deps.Mailer = mail.NewSESMailer(awsint.NewSESClient(awsCfg))
		}
		if ncfg.SMSEnabled {
			deps.SMS = awsint.NewSNSClient(awsCfg)
		}
	}

	if cfg.Notifications.Provider == "smtp" {
		deps.Mailer = mail.NewSMTPMailer(mail.SMTPConfigFrom(cfg))
		if ncfg.FromEmail == "" {
			ncfg.FromEmail = cfg.Integrations.SMTP.DefaultFrom
		}
	}

	return notifications.NewService(deps, ncfg), nil
}

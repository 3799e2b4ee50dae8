// Package scheduler drives the periodic reminder sweep: one pass over every
// user's latest snapshot immediately on start, then one per interval.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"health-reminders/internal/common/logger"
	"health-reminders/internal/common/metrics"
	"health-reminders/internal/common/observability"
	"health-reminders/internal/models"
	"health-reminders/internal/reminders/matcher"
	"health-reminders/internal/reminders/snapshot"
)

// DefaultInterval is the evaluation period.
const DefaultInterval = 5 * time.Minute

// State of the scheduler loop.
type State int32

const (
	StateIdle State = iota
	StateEvaluating
)

func (s State) String() string {
	switch s {
	case StateEvaluating:
		return "evaluating"
	default:
		return "idle"
	}
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Notifier receives every fired event. Notify must not block on remote I/O.
type Notifier interface {
	Notify(ctx context.Context, ev models.ReminderEvent)
}

type Config struct {
	Interval time.Duration
	Clock    Clock
}

// SweepResult summarises one pass.
type SweepResult struct {
	At       time.Time      `json:"at"`
	Users    int            `json:"users"`
	Events   int            `json:"events"`
	Skipped  int            `json:"skipped"`
	Failed   []string       `json:"failed,omitempty"`
	Duration time.Duration  `json:"duration"`
	ByKind   map[string]int `json:"byKind,omitempty"`
}

type Scheduler struct {
	cfg      Config
	matcher  *matcher.Matcher
	provider snapshot.Provider
	notifier Notifier
	logger   logger.Logger
	obs      *observability.Observability

	state atomic.Int32
}

type Option func(*Scheduler)

// WithObservability records sweeps on the OTel meter as well.
func WithObservability(obs *observability.Observability) Option {
	return func(s *Scheduler) { s.obs = obs }
}

func New(cfg Config, m *matcher.Matcher, provider snapshot.Provider, notifier Notifier, log logger.Logger, opts ...Option) (*Scheduler, error) {
	if m == nil {
		return nil, fmt.Errorf("scheduler: matcher is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("scheduler: snapshot provider is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("scheduler: notifier is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}

	s := &Scheduler{
		cfg:      cfg,
		matcher:  m,
		provider: provider,
		notifier: notifier,
		logger:   logger.OrNop(log).WithFields(map[string]interface{}{"component": "scheduler"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State reports whether a sweep is in progress.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
// No sweep starts after Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("reminder scheduler started", map[string]interface{}{
		"interval": s.cfg.Interval.String(),
	})

	s.Sweep(ctx, s.cfg.Clock.Now())

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped", nil)
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.Sweep(ctx, s.cfg.Clock.Now())
		}
	}
}

// Sweep evaluates every user's latest snapshot against now and hands the
// resulting events to the notifier.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) SweepResult {
	s.state.Store(int32(StateEvaluating))
	defer s.state.Store(int32(StateIdle))

	start := time.Now()
	snaps := s.provider.Latest()
	res := SweepResult{At: now, Users: len(snaps), ByKind: map[string]int{}}

	for _, snap := range snaps {
		if ctx.Err() != nil {
			break
		}
		if err := s.sweepUser(ctx, now, snap, &res); err != nil {
			res.Failed = append(res.Failed, snap.UserID)
			s.logger.Error("evaluation failed for user", map[string]interface{}{
				"userId": snap.UserID,
				"error":  err,
			})
		}
	}

	res.Duration = time.Since(start)
	metrics.SweepsTotal.Inc()
	metrics.SweepDuration.Observe(res.Duration.Seconds())
	s.obs.RecordSweep(ctx, res.Duration, res.Users, res.Events)

	s.logger.Debug("sweep completed", map[string]interface{}{
		"at":       now.Format(time.RFC3339),
		"users":    res.Users,
		"events":   res.Events,
		"skipped":  res.Skipped,
		"duration": res.Duration.String(),
	})
	return res
}

// sweepUser evaluates one snapshot. A panic is recovered so the remaining
// users are still evaluated.
func (s *Scheduler) sweepUser(ctx context.Context, now time.Time, snap models.Snapshot, res *SweepResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	out := s.matcher.Evaluate(now, snap)
	for _, sk := range out.Skipped {
		metrics.RecordsSkipped.WithLabelValues(sk.EntityType, sk.Reason).Inc()
		s.logger.Warn("skipped record", map[string]interface{}{
			"userId": snap.UserID,
			"entity": sk.EntityType,
			"id":     sk.EntityID,
			"reason": sk.Reason,
			"detail": sk.Detail,
		})
	}
	res.Skipped += len(out.Skipped)

	for _, ev := range out.Events {
		metrics.RemindersFired.WithLabelValues(string(ev.Kind)).Inc()
		res.ByKind[string(ev.Kind)]++
		res.Events++
		s.notifier.Notify(ctx, ev)
	}
	return nil
}

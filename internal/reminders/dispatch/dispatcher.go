// Package dispatch turns reminder events into a local alert and a
// fire-and-forget request to the notification backend.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"health-reminders/internal/common/errors"
	"health-reminders/internal/common/logger"
	"health-reminders/internal/common/metrics"
	"health-reminders/internal/models"
	"health-reminders/internal/reminders/alert"
)

// Dispatcher shows the alert inline and sends the remote request on its own
// goroutine. Sends are never awaited by the caller, never retried, and
// outlive cancellation of the caller's context.
type Dispatcher struct {
	alerter alert.Alerter
	sender  Sender
	logger  logger.Logger
	timeout time.Duration

	mu       sync.Mutex
	inflight int
	idle     chan struct{} // closed when inflight drops to zero
}

type Option func(*Dispatcher)

// WithSendTimeout bounds each send. The default is no timeout.
func WithSendTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.timeout = d }
}

func New(alerter alert.Alerter, sender Sender, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		alerter: alerter,
		sender:  sender,
		logger:  logger.OrNop(log).WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify presents ev and starts its remote send.
func (d *Dispatcher) Notify(ctx context.Context, ev models.ReminderEvent) {
	if d.alerter != nil {
		d.alerter.Alert(ctx, ev.UserID, ev.Severity, ev.Message)
	}
	if d.sender == nil {
		return
	}

	send, err := d.buildSend(ev)
	if err != nil {
		d.logger.Error("cannot dispatch reminder", map[string]interface{}{
			"kind":   string(ev.Kind),
			"userId": ev.UserID,
			"error":  err,
		})
		metrics.DispatchTotal.WithLabelValues(string(ev.Kind), "invalid").Inc()
		return
	}

	sendCtx := context.WithoutCancel(ctx)
	d.begin()
	go func() {
		defer d.end()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("reminder dispatch panicked", map[string]interface{}{
					"kind":   string(ev.Kind),
					"userId": ev.UserID,
					"panic":  fmt.Sprint(r),
				})
				metrics.DispatchTotal.WithLabelValues(string(ev.Kind), "failed").Inc()
			}
		}()

		if d.timeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(sendCtx, d.timeout)
			defer cancel()
		}

		if err := send(sendCtx); err != nil {
			stdErr := errors.NewDispatchFailedError(string(ev.Kind), err)
			d.logger.Error("failed to send reminder notification", map[string]interface{}{
				"kind":      string(ev.Kind),
				"userId":    ev.UserID,
				"errorCode": string(stdErr.Code),
				"error":     err,
			})
			metrics.DispatchTotal.WithLabelValues(string(ev.Kind), "failed").Inc()
			return
		}
		metrics.DispatchTotal.WithLabelValues(string(ev.Kind), "sent").Inc()
	}()
}

func (d *Dispatcher) buildSend(ev models.ReminderEvent) (func(context.Context) error, error) {
	switch ev.Kind {
	case models.KindMedicationReminder, models.KindMedicationExpiring, models.KindMedicationExpired:
		req, err := MedicationRequest(ev)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return d.sender.SendMedicationReminder(ctx, ev.UserID, req)
		}, nil
	case models.KindMealReminder:
		req, err := MealRequest(ev)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error {
			return d.sender.SendMealReminder(ctx, ev.UserID, req)
		}, nil
	default:
		return nil, fmt.Errorf("unknown reminder kind %q", ev.Kind)
	}
}

// MedicationRequest builds the request body for a medication event.
func MedicationRequest(ev models.ReminderEvent) (models.MedicationReminderRequest, error) {
	if ev.Medication == nil {
		return models.MedicationReminderRequest{}, fmt.Errorf("%s event without medication", ev.Kind)
	}
	req := models.MedicationReminderRequest{Medication: ev.Medication, Type: models.MedicationTypeReminder}
	if ev.Kind != models.KindMedicationReminder {
		if ev.DaysUntilExpiry == nil {
			return models.MedicationReminderRequest{}, fmt.Errorf("%s event without days until expiry", ev.Kind)
		}
		days := *ev.DaysUntilExpiry
		req.Type = models.MedicationTypeExpiry
		req.DaysUntilExpiry = &days
	}
	return req, nil
}

// MealRequest builds the request body for a meal event.
func MealRequest(ev models.ReminderEvent) (models.MealReminderRequest, error) {
	if ev.Meal == nil {
		return models.MealReminderRequest{}, fmt.Errorf("meal event without meal")
	}
	return models.MealReminderRequest{MealName: ev.Meal.Label, MealContent: ev.Meal.Content}, nil
}

func (d *Dispatcher) begin() {
	metrics.DispatchInFlight.Inc()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight == 0 {
		d.idle = make(chan struct{})
	}
	d.inflight++
}

func (d *Dispatcher) end() {
	metrics.DispatchInFlight.Dec()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight--
	if d.inflight == 0 {
		close(d.idle)
	}
}

// Wait blocks until in-flight sends finish or ctx is done. Returning on ctx
// leaves nothing behind; the sends themselves keep running.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	if d.inflight == 0 {
		d.mu.Unlock()
		return nil
	}
	idle := d.idle
	d.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package alert presents reminder events locally, next to the remote
// dispatch, with a severity and a short message.
package alert

import (
	"context"
	"sync"
	"time"

	"health-reminders/internal/common/logger"
	"health-reminders/internal/models"
)

// Alerter shows one alert. Implementations must not block for long; they run
// inline with the sweep.
type Alerter interface {
	Alert(ctx context.Context, userID string, severity models.Severity, message string)
}

// LogAlerter writes alerts through the structured logger at the level that
// matches the severity.
type LogAlerter struct {
	logger logger.Logger
}

func NewLogAlerter(log logger.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.OrNop(log).WithFields(map[string]interface{}{"component": "alert"})}
}

func (a *LogAlerter) Alert(_ context.Context, userID string, severity models.Severity, message string) {
	fields := map[string]interface{}{
		"userId":   userID,
		"severity": string(severity),
	}
	switch severity {
	case models.SeverityError:
		a.logger.Error(message, fields)
	case models.SeverityWarning:
		a.logger.Warn(message, fields)
	default:
		a.logger.Info(message, fields)
	}
}

// Multi fans an alert out to several alerters in order.
type Multi []Alerter

func (m Multi) Alert(ctx context.Context, userID string, severity models.Severity, message string) {
	for _, a := range m {
		a.Alert(ctx, userID, severity, message)
	}
}

// Entry is one recorded alert.
type Entry struct {
	UserID   string          `json:"userId"`
	Severity models.Severity `json:"severity"`
	Message  string          `json:"message"`
	At       time.Time       `json:"at"`
}

// Recorder keeps alerts in memory, bounded to the most recent Limit entries
// when Limit is positive.
type Recorder struct {
	Limit int

	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Alert(_ context.Context, userID string, severity models.Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{UserID: userID, Severity: severity, Message: message, At: time.Now()})
	if r.Limit > 0 && len(r.entries) > r.Limit {
		r.entries = append([]Entry(nil), r.entries[len(r.entries)-r.Limit:]...)
	}
}

// Entries returns a copy of the recorded alerts, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Reset drops all recorded alerts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

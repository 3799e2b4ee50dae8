// Package matcher decides which reminders fire for one user at a given
// instant. It performs no I/O; the caller supplies the clock reading and the
// latest snapshot and acts on the returned events.
package matcher

import (
	"fmt"
	"time"

	"health-reminders/internal/models"
)

// Skip reasons reported in Result.Skipped.
const (
	ReasonMalformedTime   = "malformed_time"
	ReasonInvalidExpiry   = "invalid_expiry_date"
	ReasonMissingPlanDate = "missing_plan_date"
)

// Entity types reported in Result.Skipped.
const (
	EntityMedication = "medication"
	EntityMealPlan   = "meal_plan"
)

// Skip records an entity that could not be evaluated.
type Skip struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail,omitempty"`
}

// Result is the outcome of one evaluation pass for one user.
type Result struct {
	Events  []models.ReminderEvent `json:"events"`
	Skipped []Skip                 `json:"skipped,omitempty"`
}

// SlotTime is one entry of the effective meal schedule.
type SlotTime struct {
	Slot    models.MealSlot `json:"slot"`
	Label   string          `json:"label"`
	Clock   string          `json:"time"`
	minutes int
}

type Matcher struct {
	cfg   Config
	slots []SlotTime
}

// New validates cfg and resolves the slot schedule.
func New(cfg Config) (*Matcher, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Matcher{cfg: cfg}
	for _, slot := range models.MealSlots {
		clock, ok := cfg.MealSlotTimes[slot]
		if !ok {
			continue
		}
		minutes, _ := ParseClock(clock)
		m.slots = append(m.slots, SlotTime{
			Slot:    slot,
			Label:   slot.Label(),
			Clock:   fmt.Sprintf("%02d:%02d", minutes/60, minutes%60),
			minutes: minutes,
		})
	}
	return m, nil
}

// Slots returns the effective meal schedule in day order.
func (m *Matcher) Slots() []SlotTime {
	out := make([]SlotTime, len(m.slots))
	copy(out, m.slots)
	return out
}

// Config returns the configuration the matcher was built with.
func (m *Matcher) Config() Config { return m.cfg }

// Evaluate classifies the snapshot against now. Events are ordered by
// medication (dosing before expiry), then by meal slot.
func (m *Matcher) Evaluate(now time.Time, snap models.Snapshot) Result {
	local := now.In(m.cfg.Location)
	nowMinutes := local.Hour()*60 + local.Minute()

	var res Result
	for i := range snap.Medications {
		m.evaluateMedication(&res, local, nowMinutes, snap.UserID, snap.Medications[i])
	}
	m.evaluateMealPlans(&res, local, nowMinutes, snap.UserID, snap.MealPlans)
	return res
}

func (m *Matcher) evaluateMedication(res *Result, now time.Time, nowMinutes int, userID string, med models.Medication) {
	if med.Active {
		medMinutes, err := ParseClock(med.Time)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{
				EntityType: EntityMedication,
				EntityID:   med.ID,
				Reason:     ReasonMalformedTime,
				Detail:     err.Error(),
			})
		} else if withinWindow(nowMinutes, medMinutes, m.cfg.MedicationWindow) {
			res.Events = append(res.Events, models.ReminderEvent{
				Kind:       models.KindMedicationReminder,
				Severity:   models.SeverityInfo,
				Message:    fmt.Sprintf("Time to take %s (%s)", med.Name, med.Dosage),
				UserID:     userID,
				FiredAt:    now,
				Medication: medicationPayload(med),
			})
		}
	}

	expires := med.ExpiresOn()
	if expires == nil {
		return
	}
	if expires.IsZero() {
		res.Skipped = append(res.Skipped, Skip{
			EntityType: EntityMedication,
			EntityID:   med.ID,
			Reason:     ReasonInvalidExpiry,
		})
		return
	}

	days := DaysUntil(now, *expires)
	switch {
	case days <= 0:
		res.Events = append(res.Events, models.ReminderEvent{
			Kind:            models.KindMedicationExpired,
			Severity:        models.SeverityError,
			Message:         fmt.Sprintf("%s has expired!", med.Name),
			UserID:          userID,
			FiredAt:         now,
			Medication:      medicationPayload(med),
			DaysUntilExpiry: &days,
		})
	case days <= m.cfg.ExpiryWarningDays:
		res.Events = append(res.Events, models.ReminderEvent{
			Kind:            models.KindMedicationExpiring,
			Severity:        models.SeverityWarning,
			Message:         fmt.Sprintf("%s will expire in %d days", med.Name, days),
			UserID:          userID,
			FiredAt:         now,
			Medication:      medicationPayload(med),
			DaysUntilExpiry: &days,
		})
	}
}

func (m *Matcher) evaluateMealPlans(res *Result, now time.Time, nowMinutes int, userID string, plans []models.MealPlan) {
	var today *models.MealPlan
	for i := range plans {
		plan := plans[i]
		if plan.Date.IsZero() {
			res.Skipped = append(res.Skipped, Skip{
				EntityType: EntityMealPlan,
				EntityID:   plan.ID,
				Reason:     ReasonMissingPlanDate,
			})
			continue
		}
		if today == nil && sameCalendarDay(plan.Date, now) {
			today = &plan
		}
	}
	if today == nil {
		return
	}

	for _, st := range m.slots {
		content := today.Slot(st.Slot)
		if content == "" {
			continue
		}
		if !withinWindow(nowMinutes, st.minutes, m.cfg.MealWindow) {
			continue
		}
		res.Events = append(res.Events, models.ReminderEvent{
			Kind:     models.KindMealReminder,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("Time for %s: %s", st.Label, content),
			UserID:   userID,
			FiredAt:  now,
			Meal: &models.MealPayload{
				Slot:        st.Slot,
				Label:       st.Label,
				Content:     content,
				ScheduledAt: st.Clock,
			},
		})
	}
}

// DaysUntil counts whole calendar days from now's date to the calendar date
// carried in target's own year, month and day. Negative once target is past.
func DaysUntil(now, target time.Time) int {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

func sameCalendarDay(date, now time.Time) bool {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func withinWindow(a, b int, window time.Duration) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return time.Duration(diff)*time.Minute <= window
}

func medicationPayload(med models.Medication) *models.Medication {
	return &med
}

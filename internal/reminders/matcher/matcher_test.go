package matcher

import (
	"testing"
	"time"

	"health-reminders/internal/common/config"
	"health-reminders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

func aspirin() models.Medication {
	return models.Medication{ID: "med-1", Name: "Aspirin", Dosage: "100mg", Time: "08:00", Active: true}
}

func kinds(res Result) []models.ReminderKind {
	out := make([]models.ReminderKind, 0, len(res.Events))
	for _, e := range res.Events {
		out = append(out, e.Kind)
	}
	return out
}

func TestEvaluate_MedicationDosing(t *testing.T) {
	m := newTestMatcher(t)

	tests := []struct {
		name      string
		med       models.Medication
		now       time.Time
		wantFired bool
	}{
		{name: "ten minutes after fires", med: aspirin(), now: at(8, 10), wantFired: true},
		{name: "twenty minutes after does not fire", med: aspirin(), now: at(8, 20), wantFired: false},
		{name: "exactly fifteen minutes before fires", med: aspirin(), now: at(7, 45), wantFired: true},
		{name: "sixteen minutes after does not fire", med: aspirin(), now: at(8, 16), wantFired: false},
		{name: "seconds are ignored", med: aspirin(), now: at(8, 15).Add(59 * time.Second), wantFired: true},
		{
			name:      "inactive medication never fires",
			med:       func() models.Medication { med := aspirin(); med.Active = false; return med }(),
			now:       at(8, 0),
			wantFired: false,
		},
		{
			name:      "no wrap across midnight",
			med:       func() models.Medication { med := aspirin(); med.Time = "23:55"; return med }(),
			now:       at(0, 5),
			wantFired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Evaluate(tt.now, models.Snapshot{UserID: "user-1", Medications: []models.Medication{tt.med}})
			if !tt.wantFired {
				assert.Empty(t, res.Events)
				return
			}
			require.Len(t, res.Events, 1)
			ev := res.Events[0]
			assert.Equal(t, models.KindMedicationReminder, ev.Kind)
			assert.Equal(t, models.SeverityInfo, ev.Severity)
			assert.Equal(t, "Time to take Aspirin (100mg)", ev.Message)
			assert.Equal(t, "user-1", ev.UserID)
			require.NotNil(t, ev.Medication)
			assert.Equal(t, "med-1", ev.Medication.ID)
			assert.Nil(t, ev.DaysUntilExpiry)
		})
	}
}

func TestEvaluate_MedicationExpiry(t *testing.T) {
	m := newTestMatcher(t)
	now := at(10, 0)
	today := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		endDate  time.Time
		wantKind models.ReminderKind
		wantDays int
		wantMsg  string
	}{
		{name: "ends today is expired", endDate: today, wantKind: models.KindMedicationExpired, wantDays: 0, wantMsg: "Aspirin has expired!"},
		{name: "ended last week is expired", endDate: today.AddDate(0, 0, -7), wantKind: models.KindMedicationExpired, wantDays: -7, wantMsg: "Aspirin has expired!"},
		{name: "five days out is expiring", endDate: today.AddDate(0, 0, 5), wantKind: models.KindMedicationExpiring, wantDays: 5, wantMsg: "Aspirin will expire in 5 days"},
		{name: "tomorrow is expiring", endDate: today.AddDate(0, 0, 1), wantKind: models.KindMedicationExpiring, wantDays: 1, wantMsg: "Aspirin will expire in 1 days"},
		{name: "seven days is expiring", endDate: today.AddDate(0, 0, 7), wantKind: models.KindMedicationExpiring, wantDays: 7, wantMsg: "Aspirin will expire in 7 days"},
		{name: "eight days is silent", endDate: today.AddDate(0, 0, 8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			med := aspirin()
			med.Time = "20:00"
			med.EndDate = datePtr(tt.endDate)

			res := m.Evaluate(now, models.Snapshot{UserID: "user-1", Medications: []models.Medication{med}})
			if tt.wantKind == "" {
				assert.Empty(t, res.Events)
				return
			}
			require.Len(t, res.Events, 1)
			ev := res.Events[0]
			assert.Equal(t, tt.wantKind, ev.Kind)
			assert.Equal(t, tt.wantMsg, ev.Message)
			require.NotNil(t, ev.DaysUntilExpiry)
			assert.Equal(t, tt.wantDays, *ev.DaysUntilExpiry)
		})
	}
}

func TestEvaluate_ExpirySeverities(t *testing.T) {
	m := newTestMatcher(t)
	expired := aspirin()
	expired.Time = "20:00"
	expired.EndDate = datePtr(at(0, 0).AddDate(0, 0, -1))

	expiring := aspirin()
	expiring.ID = "med-2"
	expiring.Time = "20:00"
	expiring.EndDate = datePtr(at(0, 0).AddDate(0, 0, 3))

	res := m.Evaluate(at(10, 0), models.Snapshot{Medications: []models.Medication{expired, expiring}})
	require.Len(t, res.Events, 2)
	assert.Equal(t, models.SeverityError, res.Events[0].Severity)
	assert.Equal(t, models.SeverityWarning, res.Events[1].Severity)
}

func TestEvaluate_InactiveMedicationStillExpires(t *testing.T) {
	m := newTestMatcher(t)
	med := aspirin()
	med.Active = false
	med.EndDate = datePtr(at(0, 0))

	res := m.Evaluate(at(8, 0), models.Snapshot{Medications: []models.Medication{med}})
	assert.Equal(t, []models.ReminderKind{models.KindMedicationExpired}, kinds(res))
}

func TestEvaluate_ExpiryDateFallback(t *testing.T) {
	m := newTestMatcher(t)
	med := aspirin()
	med.Time = "20:00"
	med.ExpiryDate = datePtr(at(0, 0).AddDate(0, 0, 2))

	res := m.Evaluate(at(10, 0), models.Snapshot{Medications: []models.Medication{med}})
	require.Len(t, res.Events, 1)
	assert.Equal(t, 2, *res.Events[0].DaysUntilExpiry)

	med.EndDate = datePtr(at(0, 0).AddDate(0, 0, 30))
	res = m.Evaluate(at(10, 0), models.Snapshot{Medications: []models.Medication{med}})
	assert.Empty(t, res.Events, "end date takes precedence over expiry date")
}

func TestEvaluate_DosingAndExpiryForSameMedication(t *testing.T) {
	m := newTestMatcher(t)
	med := aspirin()
	med.EndDate = datePtr(at(0, 0).AddDate(0, 0, 4))

	res := m.Evaluate(at(8, 5), models.Snapshot{Medications: []models.Medication{med}})
	assert.Equal(t, []models.ReminderKind{models.KindMedicationReminder, models.KindMedicationExpiring}, kinds(res))
}

func TestEvaluate_MalformedTimeIsSkipped(t *testing.T) {
	m := newTestMatcher(t)
	bad := aspirin()
	bad.ID = "med-bad"
	bad.Time = "8 o'clock"
	bad.EndDate = datePtr(at(0, 0))

	good := aspirin()
	good.ID = "med-good"

	res := m.Evaluate(at(8, 0), models.Snapshot{Medications: []models.Medication{bad, good}})

	assert.Equal(t, []models.ReminderKind{models.KindMedicationExpired, models.KindMedicationReminder}, kinds(res))
	assert.Equal(t, "med-good", res.Events[1].Medication.ID)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, Skip{EntityType: EntityMedication, EntityID: "med-bad", Reason: ReasonMalformedTime, Detail: `malformed time of day "8 o'clock"`}, res.Skipped[0])
}

func TestEvaluate_ZeroExpiryIsSkipped(t *testing.T) {
	m := newTestMatcher(t)
	med := aspirin()
	med.Time = "20:00"
	med.EndDate = &time.Time{}

	res := m.Evaluate(at(8, 0), models.Snapshot{Medications: []models.Medication{med}})
	assert.Empty(t, res.Events)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, ReasonInvalidExpiry, res.Skipped[0].Reason)
}

func TestEvaluate_MealPlans(t *testing.T) {
	m := newTestMatcher(t)
	today := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	t.Run("lunch fires within thirty minutes", func(t *testing.T) {
		plan := models.MealPlan{ID: "plan-1", Date: today, Meal3: "Grilled chicken salad"}
		res := m.Evaluate(at(13, 15), models.Snapshot{UserID: "user-1", MealPlans: []models.MealPlan{plan}})

		require.Len(t, res.Events, 1)
		ev := res.Events[0]
		assert.Equal(t, models.KindMealReminder, ev.Kind)
		assert.Equal(t, models.SeverityInfo, ev.Severity)
		assert.Equal(t, "Time for Lunch: Grilled chicken salad", ev.Message)
		require.NotNil(t, ev.Meal)
		assert.Equal(t, models.MealPayload{Slot: models.SlotLunch, Label: "Lunch", Content: "Grilled chicken salad", ScheduledAt: "13:00"}, *ev.Meal)
	})

	t.Run("yesterday's plan never fires", func(t *testing.T) {
		plan := models.MealPlan{ID: "plan-0", Date: today.AddDate(0, 0, -1), Meal3: "Soup"}
		for _, now := range []time.Time{at(8, 0), at(13, 0), at(20, 30)} {
			res := m.Evaluate(now, models.Snapshot{MealPlans: []models.MealPlan{plan}})
			assert.Empty(t, res.Events)
		}
	})

	t.Run("blank slots are ignored", func(t *testing.T) {
		plan := models.MealPlan{Date: today, Meal3: "   "}
		res := m.Evaluate(at(13, 0), models.Snapshot{MealPlans: []models.MealPlan{plan}})
		assert.Empty(t, res.Events)
	})

	t.Run("default schedule fires only the nearest slot", func(t *testing.T) {
		plan := models.MealPlan{Date: today, Meal5: "Pasta", Snacks: "Yogurt"}
		res := m.Evaluate(at(20, 0), models.Snapshot{MealPlans: []models.MealPlan{plan}})
		require.Len(t, res.Events, 1)
		assert.Equal(t, models.SlotEveningSnacks, res.Events[0].Meal.Slot)
	})

	t.Run("wider window fires adjacent slots in slot order", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Location = time.UTC
		cfg.MealWindow = 45 * time.Minute
		wide, err := New(cfg)
		require.NoError(t, err)

		plan := models.MealPlan{Date: today, Meal5: "Pasta", Snacks: "Yogurt"}
		res := wide.Evaluate(at(19, 45), models.Snapshot{MealPlans: []models.MealPlan{plan}})
		require.Len(t, res.Events, 2)
		assert.Equal(t, models.SlotDinner, res.Events[0].Meal.Slot)
		assert.Equal(t, models.SlotEveningSnacks, res.Events[1].Meal.Slot)
	})

	t.Run("thirty one minutes is outside the window", func(t *testing.T) {
		plan := models.MealPlan{Date: today, Meal1: "Oats"}
		res := m.Evaluate(at(8, 31), models.Snapshot{MealPlans: []models.MealPlan{plan}})
		assert.Empty(t, res.Events)
	})

	t.Run("plan date in another zone matches its calendar day", func(t *testing.T) {
		plan := models.MealPlan{Date: time.Date(2024, time.March, 10, 23, 0, 0, 0, time.FixedZone("X", -5*3600)), Meal1: "Oats"}
		res := m.Evaluate(at(8, 0), models.Snapshot{MealPlans: []models.MealPlan{plan}})
		assert.Len(t, res.Events, 1)
	})

	t.Run("undated plan is skipped", func(t *testing.T) {
		plans := []models.MealPlan{{ID: "undated", Meal1: "Oats"}, {ID: "today", Date: today, Meal1: "Eggs"}}
		res := m.Evaluate(at(8, 0), models.Snapshot{MealPlans: plans})
		require.Len(t, res.Events, 1)
		assert.Equal(t, "Eggs", res.Events[0].Meal.Content)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, Skip{EntityType: EntityMealPlan, EntityID: "undated", Reason: ReasonMissingPlanDate}, res.Skipped[0])
	})
}

func TestEvaluate_MealWindowBoundary(t *testing.T) {
	m := newTestMatcher(t)
	plan := models.MealPlan{Date: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), Meal5: "Pasta"}
	snap := models.Snapshot{MealPlans: []models.MealPlan{plan}}

	tests := []struct {
		name  string
		now   time.Time
		fires bool
	}{
		{name: "thirty minutes before", now: at(18, 30), fires: true},
		{name: "thirty minutes after", now: at(19, 30), fires: true},
		{name: "thirty one minutes after", now: at(19, 31), fires: false},
		{name: "thirty one minutes before", now: at(18, 29), fires: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Evaluate(tt.now, snap)
			if tt.fires {
				require.Len(t, res.Events, 1)
				assert.Equal(t, models.SlotDinner, res.Events[0].Meal.Slot)
				return
			}
			assert.Empty(t, res.Events)
		})
	}
}

func TestEvaluate_UsesConfiguredLocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = time.FixedZone("UTC+2", 2*3600)
	m, err := New(cfg)
	require.NoError(t, err)

	// 06:05 UTC is 08:05 at UTC+2.
	res := m.Evaluate(time.Date(2024, time.March, 10, 6, 5, 0, 0, time.UTC), models.Snapshot{Medications: []models.Medication{aspirin()}})
	assert.Equal(t, []models.ReminderKind{models.KindMedicationReminder}, kinds(res))
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	m := newTestMatcher(t)
	med := aspirin()
	med.EndDate = datePtr(at(0, 0).AddDate(0, 0, 3))
	snap := models.Snapshot{
		UserID:      "user-1",
		Medications: []models.Medication{med},
		MealPlans:   []models.MealPlan{{Date: at(0, 0), Meal1: "Oats"}},
	}

	first := m.Evaluate(at(8, 0), snap)
	second := m.Evaluate(at(8, 0), snap)
	assert.Equal(t, first, second)
	assert.Len(t, first.Events, 3)
}

func TestEvaluate_CustomSlotSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	cfg.MealSlotTimes[models.SlotBreakfast] = "06:30"
	m, err := New(cfg)
	require.NoError(t, err)

	plan := models.MealPlan{Date: at(0, 0), Meal1: "Oats"}
	assert.Len(t, m.Evaluate(at(6, 45), models.Snapshot{MealPlans: []models.MealPlan{plan}}).Events, 1)
	assert.Empty(t, m.Evaluate(at(8, 0), models.Snapshot{MealPlans: []models.MealPlan{plan}}).Events)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MealSlotTimes[models.SlotLunch] = "25:00"
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MealSlotTimes["brunch"] = "11:00"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MedicationWindow = -time.Minute
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestSlots(t *testing.T) {
	m := newTestMatcher(t)
	slots := m.Slots()
	require.Len(t, slots, 6)
	assert.Equal(t, models.SlotBreakfast, slots[0].Slot)
	assert.Equal(t, "08:00", slots[0].Clock)
	assert.Equal(t, "Evening Snacks", slots[5].Label)
	assert.Equal(t, "20:30", slots[5].Clock)
}

func TestConfigFrom(t *testing.T) {
	cfg, err := ConfigFrom(config.RemindersConfig{
		Timezone:                "UTC",
		MedicationWindowMinutes: 10,
		MealSlots:               map[string]string{"MEAL3": "12:30"},
	})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.MedicationWindow)
	assert.Equal(t, 30*time.Minute, cfg.MealWindow)
	assert.Equal(t, 7, cfg.ExpiryWarningDays)
	assert.Equal(t, "12:30", cfg.MealSlotTimes[models.SlotLunch])
	assert.Equal(t, "08:00", cfg.MealSlotTimes[models.SlotBreakfast])
	assert.Equal(t, time.UTC, cfg.Location)

	_, err = ConfigFrom(config.RemindersConfig{MealSlots: map[string]string{"meal1": "noon"}})
	assert.Error(t, err)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysUntil(now, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, DaysUntil(now, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -10, DaysUntil(now, time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 366, DaysUntil(now, time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)))
}

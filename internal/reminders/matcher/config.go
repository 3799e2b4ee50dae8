package matcher

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"health-reminders/internal/common/config"
	"health-reminders/internal/models"
)

// Config holds the matching windows and the slot schedule.
type Config struct {
	MedicationWindow  time.Duration
	MealWindow        time.Duration
	ExpiryWarningDays int
	MealSlotTimes     map[models.MealSlot]string
	Location          *time.Location
}

// DefaultMealSlotTimes is the expected time-of-day of each meal slot.
func DefaultMealSlotTimes() map[models.MealSlot]string {
	return map[models.MealSlot]string{
		models.SlotBreakfast:      "08:00",
		models.SlotMorningSnack:   "10:30",
		models.SlotLunch:          "13:00",
		models.SlotAfternoonSnack: "16:00",
		models.SlotDinner:         "19:00",
		models.SlotEveningSnacks:  "20:30",
	}
}

func DefaultConfig() Config {
	return Config{
		MedicationWindow:  15 * time.Minute,
		MealWindow:        30 * time.Minute,
		ExpiryWarningDays: 7,
		MealSlotTimes:     DefaultMealSlotTimes(),
		Location:          time.Local,
	}
}

// ConfigFrom builds a matcher Config from the reminders config section.
// Slots missing from meal_slots keep their default time.
func ConfigFrom(rc config.RemindersConfig) (Config, error) {
	cfg := DefaultConfig()
	if rc.MedicationWindowMinutes > 0 {
		cfg.MedicationWindow = time.Duration(rc.MedicationWindowMinutes) * time.Minute
	}
	if rc.MealWindowMinutes > 0 {
		cfg.MealWindow = time.Duration(rc.MealWindowMinutes) * time.Minute
	}
	if rc.ExpiryWarningDays > 0 {
		cfg.ExpiryWarningDays = rc.ExpiryWarningDays
	}
	if rc.Timezone != "" {
		loc, err := rc.Location()
		if err != nil {
			return Config{}, fmt.Errorf("reminders timezone: %w", err)
		}
		cfg.Location = loc
	}
	for key, clock := range rc.MealSlots {
		slot := models.MealSlot(strings.ToLower(strings.TrimSpace(key)))
		cfg.MealSlotTimes[slot] = clock
	}
	return cfg, cfg.Validate()
}

// Validate rejects negative windows, unknown slots and malformed slot times.
func (c Config) Validate() error {
	if c.MedicationWindow < 0 {
		return fmt.Errorf("medication window must not be negative")
	}
	if c.MealWindow < 0 {
		return fmt.Errorf("meal window must not be negative")
	}
	if c.ExpiryWarningDays < 0 {
		return fmt.Errorf("expiry warning days must not be negative")
	}

	keys := make([]string, 0, len(c.MealSlotTimes))
	for slot := range c.MealSlotTimes {
		keys = append(keys, string(slot))
	}
	sort.Strings(keys)
	for _, key := range keys {
		slot := models.MealSlot(key)
		if !slot.Valid() {
			return fmt.Errorf("unknown meal slot %q", key)
		}
		if _, err := ParseClock(c.MealSlotTimes[slot]); err != nil {
			return fmt.Errorf("meal slot %s: %w", slot, err)
		}
	}
	return nil
}

// ParseClock parses an "HH:mm" time-of-day into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// internal/models/meal_plan.go
package models

import (
	"strings"
	"time"
)

// MealSlot identifies one of the six fixed positions of a daily meal plan.
type MealSlot string

const (
	SlotBreakfast      MealSlot = "meal1"
	SlotMorningSnack   MealSlot = "meal2"
	SlotLunch          MealSlot = "meal3"
	SlotAfternoonSnack MealSlot = "meal4"
	SlotDinner         MealSlot = "meal5"
	SlotEveningSnacks  MealSlot = "snacks"
)

// MaxSlotLength is the longest description a slot may hold.
const MaxSlotLength = 500

// MealSlots lists the slots in the order they occur during the day.
var MealSlots = []MealSlot{
	SlotBreakfast,
	SlotMorningSnack,
	SlotLunch,
	SlotAfternoonSnack,
	SlotDinner,
	SlotEveningSnacks,
}

var slotLabels = map[MealSlot]string{
	SlotBreakfast:      "Breakfast",
	SlotMorningSnack:   "Morning Snack",
	SlotLunch:          "Lunch",
	SlotAfternoonSnack: "Afternoon Snack",
	SlotDinner:         "Dinner",
	SlotEveningSnacks:  "Evening Snacks",
}

// Label returns the human readable slot name.
func (s MealSlot) Label() string {
	if l, ok := slotLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is one of the six known slots.
func (s MealSlot) Valid() bool {
	_, ok := slotLabels[s]
	return ok
}

// MealPlan is a user's plan for one calendar date. Date carries the calendar
// day in its own year/month/day fields; its clock and zone are ignored.
type MealPlan struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Date   time.Time `json:"date"`
	Meal1  string    `json:"meal1,omitempty"`
	Meal2  string    `json:"meal2,omitempty"`
	Meal3  string    `json:"meal3,omitempty"`
	Meal4  string    `json:"meal4,omitempty"`
	Meal5  string    `json:"meal5,omitempty"`
	Snacks string    `json:"snacks,omitempty"`
}

// Slot returns the trimmed description stored in the given slot.
func (p MealPlan) Slot(slot MealSlot) string {
	var v string
	switch slot {
	case SlotBreakfast:
		v = p.Meal1
	case SlotMorningSnack:
		v = p.Meal2
	case SlotLunch:
		v = p.Meal3
	case SlotAfternoonSnack:
		v = p.Meal4
	case SlotDinner:
		v = p.Meal5
	case SlotEveningSnacks:
		v = p.Snacks
	}
	return strings.TrimSpace(v)
}

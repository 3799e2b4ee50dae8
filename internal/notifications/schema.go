package notifications

import (
	"health-reminders/internal/common/validation"
)

// MedicationReminderSchema describes the medication-reminder request body.
func MedicationReminderSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"medication", "type"},
		Properties: map[string]validation.Property{
			"medication": {
				Type:        "object",
				Description: "Medication the reminder is about",
				Required:    []string{"name"},
				Properties: map[string]validation.Property{
					"name":      {Type: "string", MinLength: validation.Int(1), MaxLength: validation.Int(200)},
					"dosage":    {Type: "string", MaxLength: validation.Int(200)},
					"frequency": {Type: "string", MaxLength: validation.Int(200)},
					"time":      {Type: "string", MaxLength: validation.Int(20)},
				},
			},
			"type": {
				Type:        "string",
				Description: "reminder or expiry",
				Enum:        []string{"reminder", "expiry"},
			},
			"daysUntilExpiry": {
				Type:        []string{"integer", "null"},
				Description: "Whole days until the medication expires; required for expiry",
			},
			"userId": {
				Type:        "string",
				Description: "Recipient, used by job workers",
			},
		},
	}
}

// MealReminderSchema describes the meal-reminder request body.
func MealReminderSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"mealName", "mealContent"},
		Properties: map[string]validation.Property{
			"mealName": {
				Type:      "string",
				MinLength: validation.Int(1),
				MaxLength: validation.Int(100),
			},
			"mealContent": {
				Type:      "string",
				MinLength: validation.Int(1),
				MaxLength: validation.Int(500),
			},
			"userId": {
				Type: "string",
			},
		},
	}
}

var (
	medicationValidator = validation.MustCompile(MedicationReminderSchema())
	mealValidator       = validation.MustCompile(MealReminderSchema())
)

// MedicationValidator returns the compiled medication-reminder schema.
func MedicationValidator() *validation.Validator { return medicationValidator }

// MealValidator returns the compiled meal-reminder schema.
func MealValidator() *validation.Validator { return mealValidator }

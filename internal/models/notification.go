// internal/models/notification.go
package models

import "time"

// ReminderKind classifies a fired reminder.
type ReminderKind string

const (
	KindMedicationReminder ReminderKind = "medication-reminder"
	KindMedicationExpiring ReminderKind = "medication-expiring"
	KindMedicationExpired  ReminderKind = "medication-expired"
	KindMealReminder       ReminderKind = "meal-reminder"
)

// Severity of the local alert shown for an event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ReminderEvent is produced by one evaluation pass and handed straight to the
// notification sink. It is never stored.
type ReminderEvent struct {
	Kind            ReminderKind `json:"kind"`
	Severity        Severity     `json:"severity"`
	Message         string       `json:"message"`
	UserID          string       `json:"userId"`
	FiredAt         time.Time    `json:"firedAt"`
	Medication      *Medication  `json:"medication,omitempty"`
	DaysUntilExpiry *int         `json:"daysUntilExpiry,omitempty"`
	Meal            *MealPayload `json:"meal,omitempty"`
}

// MealPayload describes the slot a meal reminder fired for.
type MealPayload struct {
	Slot        MealSlot `json:"slot"`
	Label       string   `json:"label"`
	Content     string   `json:"content"`
	ScheduledAt string   `json:"scheduledAt"`
}

// Medication notification types accepted by the notification API.
const (
	MedicationTypeReminder = "reminder"
	MedicationTypeExpiry   = "expiry"
)

// MedicationReminderRequest is the body of POST /api/notifications/medication-reminder.
type MedicationReminderRequest struct {
	Medication      *Medication `json:"medication"`
	Type            string      `json:"type"`
	DaysUntilExpiry *int        `json:"daysUntilExpiry,omitempty"`
}

// MealReminderRequest is the body of POST /api/notifications/meal-reminder.
type MealReminderRequest struct {
	MealName    string `json:"mealName"`
	MealContent string `json:"mealContent"`
}

// NotificationResult is returned once a reminder email went out.
type NotificationResult struct {
	NotificationID string                 `json:"notificationId"`
	Success        bool                   `json:"success"`
	Message        string                 `json:"message"`
	Details        map[string]interface{} `json:"details,omitempty"`
	SentAt         string                 `json:"sentAt"` // ISO 8601
}

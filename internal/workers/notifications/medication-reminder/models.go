// internal/workers/notifications/medication-reminder/models.go
package medicationreminder

import "health-reminders/internal/models"

// Input is the job variables published with a medication-reminder message.
type Input struct {
	UserID          string             `json:"userId"`
	Medication      *models.Medication `json:"medication"`
	Type            string             `json:"type"`
	DaysUntilExpiry *int               `json:"daysUntilExpiry,omitempty"`
}

func (in *Input) Request() models.MedicationReminderRequest {
	return models.MedicationReminderRequest{
		Medication:      in.Medication,
		Type:            in.Type,
		DaysUntilExpiry: in.DaysUntilExpiry,
	}
}

// Output is written back to the process instance.
type Output struct {
	NotificationID string `json:"notificationId"`
	Sent           bool   `json:"notificationSent"`
	MessageID      string `json:"messageId,omitempty"`
	SentAt         string `json:"sentAt"`
}

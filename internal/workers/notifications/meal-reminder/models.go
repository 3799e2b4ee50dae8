// internal/workers/notifications/meal-reminder/models.go
package mealreminder

type Input struct {
	UserID      string `json:"userId"`
	MealName    string `json:"mealName"`
	MealContent string `json:"mealContent"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Sent           bool   `json:"notificationSent"`
	Email          string `json:"email,omitempty"`
	SentAt         string `json:"sentAt"`
}

// internal/models/user.go
package models

import "time"

// UserContact is the subset of a user record needed to deliver reminders.
type UserContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Snapshot is the latest known medication and meal-plan data for one user.
type Snapshot struct {
	UserID      string       `json:"userId"`
	Medications []Medication `json:"medications"`
	MealPlans   []MealPlan   `json:"mealPlans"`
	FetchedAt   time.Time    `json:"fetchedAt"`
}

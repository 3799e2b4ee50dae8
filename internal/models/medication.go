// internal/models/medication.go
package models

import "time"

// Medication is a user's medication as stored by the medications CRUD surface.
// Time is kept as the raw "HH:mm" string so malformed values survive until
// evaluation, where they are skipped.
type Medication struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Name         string     `json:"name"`
	Dosage       string     `json:"dosage"`
	Frequency    string     `json:"frequency"`
	Time         string     `json:"time"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	ExpiryDate   *time.Time `json:"expiryDate,omitempty"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Active       bool       `json:"active"`
}

// ExpiresOn returns the date used for expiry checks: EndDate, or ExpiryDate
// when no end date was recorded.
func (m Medication) ExpiresOn() *time.Time {
	if m.EndDate != nil {
		return m.EndDate
	}
	return m.ExpiryDate
}

// Package postgres reads users, medications and meal plans from the
// relational store.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	stderrors "errors"
	"fmt"
	"time"

	"health-reminders/internal/common/errors"
	"health-reminders/internal/models"
)

//go:embed schema.sql
var Schema string

const (
	listSubscribersQuery = `SELECT id FROM users WHERE reminders_enabled = TRUE ORDER BY id`

	medicationsQuery = `SELECT id, user_id, name, dosage, frequency, time, start_date, end_date, expiry_date, manufacturer, notes, active
		FROM medications WHERE user_id = $1 ORDER BY created_at, id`

	mealPlansQuery = `SELECT id, user_id, date, meal1, meal2, meal3, meal4, meal5, snacks
		FROM meal_plans WHERE user_id = $1 ORDER BY date DESC`

	userContactQuery = `SELECT id, name, email, phone FROM users WHERE id = $1`
)

// ErrUserNotFound is returned by GetUserContact when no row matches.
var ErrUserNotFound = stderrors.New("user not found")

// Store implements the snapshot fetcher and the notification user directory
// over a *sql.DB.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return errors.NewQueryExecutionFailedError("migrate", err)
	}
	return nil
}

// ListSubscribers returns the IDs of users with reminders enabled.
func (s *Store) ListSubscribers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, listSubscribersQuery)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list subscribers", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewQueryExecutionFailedError("list subscribers", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list subscribers", err)
	}
	return ids, nil
}

func (s *Store) FetchMedications(ctx context.Context, userID string) ([]models.Medication, error) {
	rows, err := s.db.QueryContext(ctx, medicationsQuery, userID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("fetch medications", err)
	}
	defer rows.Close()

	meds := []models.Medication{}
	for rows.Next() {
		var (
			med                 models.Medication
			endDate, expiryDate sql.NullTime
			manufacturer, notes sql.NullString
		)
		if err := rows.Scan(
			&med.ID, &med.UserID, &med.Name, &med.Dosage, &med.Frequency, &med.Time,
			&med.StartDate, &endDate, &expiryDate, &manufacturer, &notes, &med.Active,
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("fetch medications", err)
		}
		med.EndDate = nullTime(endDate)
		med.ExpiryDate = nullTime(expiryDate)
		med.Manufacturer = manufacturer.String
		med.Notes = notes.String
		meds = append(meds, med)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("fetch medications", err)
	}
	return meds, nil
}

func (s *Store) FetchMealPlans(ctx context.Context, userID string) ([]models.MealPlan, error) {
	rows, err := s.db.QueryContext(ctx, mealPlansQuery, userID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("fetch meal plans", err)
	}
	defer rows.Close()

	plans := []models.MealPlan{}
	for rows.Next() {
		var (
			plan models.MealPlan
			date sql.NullTime
			slot [6]sql.NullString
		)
		if err := rows.Scan(
			&plan.ID, &plan.UserID, &date,
			&slot[0], &slot[1], &slot[2], &slot[3], &slot[4], &slot[5],
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("fetch meal plans", err)
		}
		if date.Valid {
			plan.Date = date.Time
		}
		plan.Meal1, plan.Meal2, plan.Meal3 = slot[0].String, slot[1].String, slot[2].String
		plan.Meal4, plan.Meal5, plan.Snacks = slot[3].String, slot[4].String, slot[5].String
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("fetch meal plans", err)
	}
	return plans, nil
}

// FetchSnapshot loads one user's medications and meal plans.
func (s *Store) FetchSnapshot(ctx context.Context, userID string) (models.Snapshot, error) {
	meds, err := s.FetchMedications(ctx, userID)
	if err != nil {
		return models.Snapshot{}, err
	}
	plans, err := s.FetchMealPlans(ctx, userID)
	if err != nil {
		return models.Snapshot{}, err
	}
	return models.Snapshot{UserID: userID, Medications: meds, MealPlans: plans, FetchedAt: s.now()}, nil
}

// GetUserContact returns ErrUserNotFound when the user does not exist.
func (s *Store) GetUserContact(ctx context.Context, userID string) (*models.UserContact, error) {
	var (
		user         models.UserContact
		email, phone sql.NullString
	)
	err := s.db.QueryRowContext(ctx, userContactQuery, userID).Scan(&user.ID, &user.Name, &email, &phone)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user contact: %w", err)
	}
	user.Email = email.String
	user.Phone = phone.String
	return &user, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

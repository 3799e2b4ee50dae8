package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	commonhttp "health-reminders/internal/common/http"
	"health-reminders/internal/models"
)

// Paths of the notification API, relative to the configured base URL.
const (
	MedicationReminderPath = "/api/notifications/medication-reminder"
	MealReminderPath       = "/api/notifications/meal-reminder"
)

// Message names published to the workflow engine.
const (
	MedicationReminderMessage = "medication-reminder"
	MealReminderMessage       = "meal-reminder"
)

// UserIDHeader carries the authenticated user to the notification API.
const UserIDHeader = "X-User-ID"

// Sender delivers one reminder request to the notification backend.
type Sender interface {
	SendMedicationReminder(ctx context.Context, userID string, req models.MedicationReminderRequest) error
	SendMealReminder(ctx context.Context, userID string, req models.MealReminderRequest) error
}

// HTTPSender posts reminder requests to the notification API.
type HTTPSender struct {
	baseURL string
	client  *commonhttp.Client
}

// NewHTTPSender creates a sender for baseURL. A zero timeout leaves requests
// unbounded.
func NewHTTPSender(baseURL string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  commonhttp.NewClient(timeout),
	}
}

func (s *HTTPSender) SendMedicationReminder(ctx context.Context, userID string, req models.MedicationReminderRequest) error {
	return s.post(ctx, MedicationReminderPath, userID, req)
}

func (s *HTTPSender) SendMealReminder(ctx context.Context, userID string, req models.MealReminderRequest) error {
	return s.post(ctx, MealReminderPath, userID, req)
}

func (s *HTTPSender) post(ctx context.Context, path, userID string, body interface{}) error {
	var result models.NotificationResult
	headers := map[string]string{UserIDHeader: userID}
	if err := s.client.PostJSON(ctx, s.baseURL+path, headers, body, &result); err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	if !result.Success {
		return fmt.Errorf("post %s: notification not sent: %s", path, result.Message)
	}
	return nil
}

// MessagePublisher publishes correlated workflow messages.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, variables interface{}) error
}

// ZeebeSender hands reminder requests to the workflow engine as messages
// correlated by user ID.
type ZeebeSender struct {
	publisher MessagePublisher
}

func NewZeebeSender(publisher MessagePublisher) *ZeebeSender {
	return &ZeebeSender{publisher: publisher}
}

type medicationMessage struct {
	UserID string `json:"userId"`
	models.MedicationReminderRequest
}

type mealMessage struct {
	UserID string `json:"userId"`
	models.MealReminderRequest
}

func (s *ZeebeSender) SendMedicationReminder(ctx context.Context, userID string, req models.MedicationReminderRequest) error {
	return s.publisher.PublishMessage(ctx, MedicationReminderMessage, userID, medicationMessage{UserID: userID, MedicationReminderRequest: req})
}

func (s *ZeebeSender) SendMealReminder(ctx context.Context, userID string, req models.MealReminderRequest) error {
	return s.publisher.PublishMessage(ctx, MealReminderMessage, userID, mealMessage{UserID: userID, MealReminderRequest: req})
}

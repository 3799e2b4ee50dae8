// Package notifications renders and delivers medication and meal reminder
// emails for a user, plus an SMS when a medication has expired.
package notifications

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"health-reminders/internal/common/errors"
	"health-reminders/internal/common/logger"
	"health-reminders/internal/common/mail"
	"health-reminders/internal/common/metrics"
	"health-reminders/internal/common/validation"
	"health-reminders/internal/models"
	"health-reminders/internal/store/postgres"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

const sentMessage = "Email notification sent successfully"

// UserDirectory looks up where to deliver a user's reminders. It returns
// postgres.ErrUserNotFound for unknown users.
type UserDirectory interface {
	GetUserContact(ctx context.Context, userID string) (*models.UserContact, error)
}

// SMSPublisher is the SNS publish call.
type SMSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	FromEmail   string
	AppName     string
	SMSEnabled  bool
	SMSSenderID string
}

type ServiceDependencies struct {
	Users  UserDirectory
	Mailer mail.Mailer
	SMS    SMSPublisher
	Logger logger.Logger
}

type Service struct {
	config   Config
	users    UserDirectory
	mailer   mail.Mailer
	sms      SMSPublisher
	renderer Renderer
	logger   logger.Logger
	now      func() time.Time
}

func NewService(deps ServiceDependencies, config Config) *Service {
	return &Service{
		config:   config,
		users:    deps.Users,
		mailer:   deps.Mailer,
		sms:      deps.SMS,
		renderer: Renderer{AppName: config.AppName},
		logger:   logger.OrNop(deps.Logger).WithFields(map[string]interface{}{"component": "notifications"}),
		now:      time.Now,
	}
}

// SendMedicationReminder emails a dosing reminder or an expiry alert.
func (s *Service) SendMedicationReminder(ctx context.Context, userID string, req models.MedicationReminderRequest) (*models.NotificationResult, error) {
	if req.Medication == nil || strings.TrimSpace(req.Type) == "" {
		return nil, errors.NewValidationError("medication and type are required")
	}

	var render func(name string) (*Email, error)
	switch req.Type {
	case models.MedicationTypeReminder:
		render = func(name string) (*Email, error) {
			return s.renderer.MedicationReminder(name, req.Medication)
		}
	case models.MedicationTypeExpiry:
		if req.DaysUntilExpiry == nil {
			return nil, errors.NewMissingDaysUntilExpiryError()
		}
		days := *req.DaysUntilExpiry
		render = func(name string) (*Email, error) {
			return s.renderer.MedicationExpiry(name, req.Medication, days)
		}
	default:
		return nil, errors.NewInvalidNotificationTypeError(req.Type)
	}

	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	email, err := render(user.Name)
	if err != nil {
		return nil, errors.NewTemplateRenderFailedError(req.Type, err)
	}

	messageID, err := s.send(ctx, user.Email, email, "medication-"+req.Type)
	if err != nil {
		return nil, err
	}

	if req.Type == models.MedicationTypeExpiry && *req.DaysUntilExpiry <= 0 {
		s.sendExpiredSMS(ctx, user, req.Medication)
	}

	return s.result(messageID, map[string]interface{}{
		"email":          user.Email,
		"type":           req.Type,
		"medicationName": req.Medication.Name,
	}), nil
}

// SendMealReminder emails a meal time reminder.
func (s *Service) SendMealReminder(ctx context.Context, userID string, req models.MealReminderRequest) (*models.NotificationResult, error) {
	if strings.TrimSpace(req.MealName) == "" || strings.TrimSpace(req.MealContent) == "" {
		return nil, errors.NewValidationError("mealName and mealContent are required")
	}

	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	email, err := s.renderer.MealReminder(user.Name, req.MealName, req.MealContent)
	if err != nil {
		return nil, errors.NewTemplateRenderFailedError("meal", err)
	}

	messageID, err := s.send(ctx, user.Email, email, "meal")
	if err != nil {
		return nil, err
	}

	return s.result(messageID, map[string]interface{}{
		"email":    user.Email,
		"mealName": req.MealName,
	}), nil
}

func (s *Service) lookupUser(ctx context.Context, userID string) (*models.UserContact, error) {
	user, err := s.users.GetUserContact(ctx, userID)
	if err != nil {
		if stderrors.Is(err, postgres.ErrUserNotFound) {
			return nil, errors.NewUserEmailNotFoundError(userID)
		}
		return nil, errors.NewQueryExecutionFailedError("get user contact", err)
	}
	if user == nil || !validation.ValidateEmail(strings.TrimSpace(user.Email)) {
		return nil, errors.NewUserEmailNotFoundError(userID)
	}
	return user, nil
}

func (s *Service) send(ctx context.Context, to string, email *Email, notificationType string) (string, error) {
	messageID, err := s.mailer.Send(ctx, mail.Message{
		From:     s.config.FromEmail,
		To:       to,
		Subject:  email.Subject,
		HTMLBody: email.HTML,
		TextBody: email.Text,
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("email", notificationType, "failed").Inc()
		s.logger.Error("email sending failed", map[string]interface{}{
			"to":       to,
			"type":     notificationType,
			"provider": s.mailer.Provider(),
			"error":    err,
		})
		return "", errors.NewNotificationSendFailedError("email", err)
	}

	metrics.NotificationsSent.WithLabelValues("email", notificationType, "sent").Inc()
	s.logger.Info("email sent", map[string]interface{}{
		"to":        to,
		"type":      notificationType,
		"messageId": messageID,
	})
	return messageID, nil
}

func (s *Service) sendExpiredSMS(ctx context.Context, user *models.UserContact, med *models.Medication) {
	if !s.config.SMSEnabled || s.sms == nil || strings.TrimSpace(user.Phone) == "" {
		return
	}
	if !validation.ValidatePhone(user.Phone) {
		s.logger.Warn("skipping expired medication sms, malformed phone", map[string]interface{}{
			"userId": user.ID,
		})
		return
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(user.Phone),
		Message:     aws.String(smsBody(med, s.now())),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	}
	if s.config.SMSSenderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.config.SMSSenderID),
		}
	}

	if _, err := s.sms.Publish(ctx, input); err != nil {
		metrics.NotificationsSent.WithLabelValues("sms", "medication-expiry", "failed").Inc()
		s.logger.Warn("expired medication sms failed", map[string]interface{}{
			"userId": user.ID,
			"error":  err,
		})
		return
	}
	metrics.NotificationsSent.WithLabelValues("sms", "medication-expiry", "sent").Inc()
}

func (s *Service) result(messageID string, details map[string]interface{}) *models.NotificationResult {
	if messageID != "" {
		details["messageId"] = messageID
	}
	return &models.NotificationResult{
		NotificationID: uuid.NewString(),
		Success:        true,
		Message:        sentMessage,
		Details:        details,
		SentAt:         s.now().UTC().Format(time.RFC3339),
	}
}

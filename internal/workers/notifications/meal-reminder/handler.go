// internal/workers/notifications/meal-reminder/handler.go
package mealreminder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"health-reminders/internal/common/errors"
	"health-reminders/internal/common/logger"
	"health-reminders/internal/common/metrics"
	"health-reminders/internal/common/observability"
	"health-reminders/internal/models"
	"health-reminders/internal/notifications"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "meal-reminder"
)

type Service interface {
	SendMealReminder(ctx context.Context, userID string, req models.MealReminderRequest) (*models.NotificationResult, error)
}

type Handler struct {
	config       *Config
	service      Service
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, service Service, obs *observability.Observability, log logger.Logger) *Handler {
	log = logger.OrNop(log).WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var output *Output
	input, err := parseInput(job.Variables)
	if err == nil {
		output, err = h.Execute(ctx, input)
	}
	if err != nil {
		stdErr := errors.AsStandardError(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.record(ctx, "failed", start)
		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return nil
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete job command: %w", err)
	}

	h.record(ctx, "completed", start)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":         job.Key,
		"notificationId": output.NotificationID,
	})
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errors.NewValidationError("userId is required")
	}

	result, err := h.service.SendMealReminder(ctx, input.UserID, models.MealReminderRequest{
		MealName:    input.MealName,
		MealContent: input.MealContent,
	})
	if err != nil {
		return nil, err
	}

	out := &Output{
		NotificationID: result.NotificationID,
		Sent:           result.Success,
		SentAt:         result.SentAt,
	}
	if email, ok := result.Details["email"].(string); ok {
		out.Email = email
	}
	return out, nil
}

func parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}

	result, err := notifications.MealValidator().ValidateInput(raw)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) record(ctx context.Context, status string, start time.Time) {
	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, status, elapsed)
}

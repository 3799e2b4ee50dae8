// internal/workers/notifications/medication-reminder/handler.go
package medicationreminder

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
	TaskType = "medication-reminder"
)

// Service sends the reminder email.
type Service interface {
	SendMedicationReminder(ctx context.Context, userID string, req models.MedicationReminderRequest) (*models.NotificationResult, error)
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

	input, err := parseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return nil
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return nil
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		return err
	}
	h.record(ctx, "completed", start)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	return nil
}

// Execute sends the reminder for an already parsed input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errors.NewValidationError("userId is required")
	}

	result, err := h.service.SendMedicationReminder(ctx, input.UserID, input.Request())
	if err != nil {
		return nil, err
	}

	out := &Output{
		NotificationID: result.NotificationID,
		Sent:           result.Success,
		SentAt:         result.SentAt,
	}
	if id, ok := result.Details["messageId"].(string); ok {
		out.MessageID = id
	}
	return out, nil
}

// parseInput validates the raw job variables before decoding them.
func parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}

	result, err := notifications.MedicationValidator().ValidateInput(raw)
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

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":         job.Key,
		"notificationId": output.NotificationID,
	})
	return nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := errors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.record(ctx, "failed", start)
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) record(ctx context.Context, status string, start time.Time) {
	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, status, elapsed)
}

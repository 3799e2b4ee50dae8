package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"health-reminders/internal/common/errors"
	"health-reminders/internal/common/logger"
	"health-reminders/internal/common/validation"
	"health-reminders/internal/models"
	"health-reminders/internal/notifications"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success bool                         `json:"success"`
	Code    errors.ErrorCode             `json:"code"`
	Message string                       `json:"message"`
	Details string                       `json:"details,omitempty"`
	Errors  []validation.ValidationError `json:"errors,omitempty"`
}

type handlers struct {
	svc    NotificationService
	logger logger.Logger
}

func (h *handlers) medicationReminder(w http.ResponseWriter, r *http.Request) {
	var req models.MedicationReminderRequest
	if !decodeValidated(w, r, notifications.MedicationValidator(), &req) {
		return
	}
	userID, _ := GetUserID(r.Context())

	result, err := h.svc.SendMedicationReminder(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) mealReminder(w http.ResponseWriter, r *http.Request) {
	var req models.MealReminderRequest
	if !decodeValidated(w, r, notifications.MealValidator(), &req) {
		return
	}
	userID, _ := GetUserID(r.Context())

	result, err := h.svc.SendMealReminder(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.AsStandardError(err)
	userID, _ := GetUserID(r.Context())
	h.logger.Warn("notification request failed", map[string]interface{}{
		"path":      r.URL.Path,
		"userId":    userID,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	})
	writeError(w, stdErr, nil)
}

// decodeValidated reads the body, checks it against the schema and decodes
// it into out. It writes the 400 response itself and reports false on failure.
func decodeValidated(w http.ResponseWriter, r *http.Request, v *validation.Validator, out interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, errors.NewValidationError("unreadable request body"), nil)
		return false
	}

	result, err := v.ValidateJSON(body)
	if err != nil {
		writeError(w, errors.NewValidationError("request body is not valid JSON"), nil)
		return false
	}
	if !result.Valid {
		writeError(w, errors.NewValidationError("request body failed schema validation"), result.Errors)
		return false
	}

	if err := json.Unmarshal(body, out); err != nil {
		writeError(w, errors.NewValidationError("request body is not valid JSON"), nil)
		return false
	}
	return true
}

func readyHandler(checks []ReadinessCheck, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		status := http.StatusOK
		report := map[string]string{}
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[c.Name()] = err.Error()
				continue
			}
			report[c.Name()] = "ok"
		}
		writeJSON(w, status, map[string]interface{}{
			"ready":  status == http.StatusOK,
			"checks": report,
		})
	}
}

func writeError(w http.ResponseWriter, stdErr *errors.StandardError, fieldErrors []validation.ValidationError) {
	writeJSON(w, errors.HTTPStatus(stdErr.Code), errorResponse{
		Success: false,
		Code:    stdErr.Code,
		Message: stdErr.Message,
		Details: stdErr.Details,
		Errors:  fieldErrors,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package errors provides the standardized error type shared by the
// notification API, the job workers and the reminder engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed         ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidNotificationType  ErrorCode = "INVALID_NOTIFICATION_TYPE"
	ErrCodeMissingDaysUntilExpiry   ErrorCode = "MISSING_DAYS_UNTIL_EXPIRY"
	ErrCodeUnauthenticated          ErrorCode = "UNAUTHENTICATED"
	ErrCodeUserEmailNotFound        ErrorCode = "USER_EMAIL_NOT_FOUND"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeTemplateRenderFailed     ErrorCode = "TEMPLATE_RENDER_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeDispatchFailed           ErrorCode = "DISPATCH_FAILED"
	ErrCodeWorkflowEngineFailed     ErrorCode = "WORKFLOW_ENGINE_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports a request that failed schema or field checks.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Missing required fields", details, false)
}

// NewInvalidNotificationTypeError reports an unknown medication notification type.
func NewInvalidNotificationTypeError(notificationType string) *StandardError {
	return newError(ErrCodeInvalidNotificationType, "Invalid notification type",
		fmt.Sprintf("type: %s", notificationType), false)
}

// NewMissingDaysUntilExpiryError reports an expiry notification without a day count.
func NewMissingDaysUntilExpiryError() *StandardError {
	return newError(ErrCodeMissingDaysUntilExpiry,
		"Days until expiry is required for expiry notifications", "", false)
}

// NewUnauthenticatedError reports a request without a user identity.
func NewUnauthenticatedError() *StandardError {
	return newError(ErrCodeUnauthenticated, "Not authorized", "missing user identity", false)
}

// NewUserEmailNotFoundError reports a user without a deliverable address.
func NewUserEmailNotFoundError(userID string) *StandardError {
	return newError(ErrCodeUserEmailNotFound, "User email not found",
		fmt.Sprintf("userId: %s", userID), false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %v", query, err), true)
}

// NewTemplateRenderFailedError reports an email body that could not be rendered.
func NewTemplateRenderFailedError(template string, err error) *StandardError {
	return newError(ErrCodeTemplateRenderFailed, "Failed to render email template",
		fmt.Sprintf("template: %s, error: %v", template, err), false)
}

// NewNotificationSendFailedError creates a retryable delivery error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Failed to send email notification",
		fmt.Sprintf("channel: %s, error: %v", channel, err), true)
}

// NewDispatchFailedError wraps a failed hand-off to the notification backend.
func NewDispatchFailedError(kind string, err error) *StandardError {
	return newError(ErrCodeDispatchFailed, "Reminder dispatch failed",
		fmt.Sprintf("kind: %s, error: %v", kind, err), true)
}

// NewWorkflowEngineError wraps a failed Zeebe gateway call.
func NewWorkflowEngineError(operation string, err error) *StandardError {
	return newError(ErrCodeWorkflowEngineFailed, "Workflow engine request failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeDispatchFailed, ErrCodeWorkflowEngineFailed:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status the notification API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidNotificationType, ErrCodeMissingDaysUntilExpiry:
		return http.StatusBadRequest
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeUserEmailNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err into a *StandardError, wrapping unknown errors
// as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "DISPATCH") || strings.Contains(codeStr, "WORKFLOW"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "MISSING"):
		return "VALIDATION"
	case strings.Contains(codeStr, "USER") || strings.Contains(codeStr, "UNAUTHENTICATED"):
		return "USER"
	default:
		return "OTHER"
	}
}

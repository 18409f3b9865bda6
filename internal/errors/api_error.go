package errors

import "net/http"

const (
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidTitle    = "invalid_title"
	CodeInvalidEstimate = "invalid_estimate"
	CodeInvalidOrder    = "invalid_order"
	CodeInvalidSettings = "invalid_settings"
	CodeTaskNotFound    = "task_not_found"
	CodeTaskCompleted   = "task_completed"
	CodeNoTaskSelected  = "no_task_selected"
	CodeTimerActive     = "timer_active"
	CodeSurfaceBlocked  = "surface_blocked"
	CodeSurfaceNotFound = "surface_not_found"
)

type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

func TaskNotFound(id string) *APIError {
	err := NotFound(CodeTaskNotFound, "task not found")
	err.Details = map[string]string{"id": id}
	return err
}

// NoTaskSelected is returned when focus is requested without a selection.
func NoTaskSelected() *APIError {
	return BadRequest(CodeNoTaskSelected, "Please select a task first")
}

package common

import "net/http"

// AppError is an error the API reports to clients as
// {"error":{"code","message","details"}} with HTTPStatus.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError wraps cause (which may be nil) under a client-facing code.
func NewAppError(code, message string, status int, cause error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: cause}
}

// WithDetails sets the structured details and returns e for chaining.
func (e *AppError) WithDetails(details any) *AppError {
	if e != nil {
		e.Details = details
	}
	return e
}

func BadRequest(message string) *AppError {
	return NewAppError("BAD_REQUEST", message, http.StatusBadRequest, nil)
}

func NotFound(message string) *AppError {
	return NewAppError("NOT_FOUND", message, http.StatusNotFound, nil)
}

// Conflict is returned for duplicate keys and stale writes.
func Conflict(message string, cause error) *AppError {
	return NewAppError("CONFLICT", message, http.StatusConflict, cause)
}

func Forbidden(message string) *AppError {
	return NewAppError("FORBIDDEN", message, http.StatusForbidden, nil)
}

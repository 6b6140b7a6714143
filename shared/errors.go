package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error type carried from services up to the HTTP error
// handler. StatusCode decides the response status, Message the user-visible
// `error` field, Data an optional machine-usable `details` payload.
type AppError struct {
	StatusCode int
	Message    string
	Data       interface{}
	RetryAfter int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(statusCode int, err error, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

func NewBadRequestError(err error, message string) *AppError {
	return NewAppError(http.StatusBadRequest, err, message)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, nil, message)
}

func NewConfigError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, nil, message)
}

// NewUpstreamError propagates a backend failure. A zero upstream status maps
// to 502.
func NewUpstreamError(upstreamStatus int, detail interface{}, message string) *AppError {
	status := upstreamStatus
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &AppError{
		StatusCode: status,
		Message:    message,
		Data:       detail,
	}
}

func NewRateLimitError(retryAfter int, message string) *AppError {
	return &AppError{
		StatusCode: http.StatusTooManyRequests,
		Message:    message,
		RetryAfter: retryAfter,
	}
}

func NewInternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, err, "Internal server error")
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeRoomFull        ErrorCode = "ROOM_FULL"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeRateLimit       ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnavailable     ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError carries a code, an operator-facing message and optional context.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds a key/value pair to the error context.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// FromDomain maps room-admission failures onto transport-facing errors.
func FromDomain(err error) *AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRoomNotFound):
		return WrapError(err, ErrCodeNotFound, "room not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrRoomFull):
		return WrapError(err, ErrCodeRoomFull, domain.JoinErrorRoomFull, http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidPassword):
		return WrapError(err, ErrCodeUnauthorized, domain.JoinErrorInvalidPassword, http.StatusUnauthorized)
	case errors.Is(err, domain.ErrAlreadyJoined):
		return WrapError(err, ErrCodeConflict, "participant already joined", http.StatusConflict)
	case errors.Is(err, domain.ErrParticipantNotFound), errors.Is(err, domain.ErrNotJoined):
		return WrapError(err, ErrCodeNotFound, "participant not found", http.StatusNotFound)
	default:
		return WrapError(err, ErrCodeInternal, "internal error", http.StatusInternalServerError)
	}
}

// IsAppError reports whether err is an AppError anywhere in its chain.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from the error chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

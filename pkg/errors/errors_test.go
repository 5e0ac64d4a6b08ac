package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	expected := "INVALID_INPUT: test error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, ErrCodeInternal, "wrapped error", 500)

	if err.Cause != originalErr {
		t.Errorf("Cause = %v, want %v", err.Cause, originalErr)
	}
	if !strings.Contains(err.Error(), "original error") {
		t.Errorf("Error() should contain cause, got: %v", err.Error())
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	err.WithContext("roomId", "demo-room").WithContext("members", 4)

	if err.Context["roomId"] != "demo-room" {
		t.Errorf("Context[roomId] = %v, want 'demo-room'", err.Context["roomId"])
	}
	if err.Context["members"] != 4 {
		t.Errorf("Context[members] = %v, want 4", err.Context["members"])
	}
}

func TestFromDomain(t *testing.T) {
	cases := []struct {
		in         error
		code       ErrorCode
		httpStatus int
		message    string
	}{
		{domain.ErrRoomFull, ErrCodeRoomFull, http.StatusConflict, "Room is full."},
		{domain.ErrInvalidPassword, ErrCodeUnauthorized, http.StatusUnauthorized, "Invalid password."},
		{domain.ErrRoomNotFound, ErrCodeNotFound, http.StatusNotFound, "room not found"},
		{errors.New("boom"), ErrCodeInternal, http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		appErr := FromDomain(tc.in)
		if appErr.Code != tc.code {
			t.Errorf("FromDomain(%v).Code = %v, want %v", tc.in, appErr.Code, tc.code)
		}
		if appErr.HTTPStatus != tc.httpStatus {
			t.Errorf("FromDomain(%v).HTTPStatus = %v, want %v", tc.in, appErr.HTTPStatus, tc.httpStatus)
		}
		if appErr.Message != tc.message {
			t.Errorf("FromDomain(%v).Message = %q, want %q", tc.in, appErr.Message, tc.message)
		}
		if !errors.Is(appErr, tc.in) {
			t.Errorf("FromDomain(%v) should wrap the original error", tc.in)
		}
	}

	if FromDomain(nil) != nil {
		t.Error("FromDomain(nil) should return nil")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeInvalidInput, "test", 400)
	regularErr := errors.New("regular error")

	if !IsAppError(appErr) {
		t.Error("IsAppError() should return true for AppError")
	}
	if IsAppError(regularErr) {
		t.Error("IsAppError() should return false for regular error")
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeInvalidInput, "test", 400)

	if GetAppError(appErr) != appErr {
		t.Errorf("GetAppError() should return the AppError itself")
	}
	if GetAppError(errors.New("regular error")) != nil {
		t.Error("GetAppError() should return nil for regular error")
	}
}

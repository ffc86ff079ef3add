package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		typ    ErrorType
	}{
		{"validation", NewValidationError("bad body"), http.StatusBadRequest, ErrorTypeValidation},
		{"unauthorized", NewUnauthorizedError("no token"), http.StatusUnauthorized, ErrorTypeUnauthorized},
		{"forbidden", NewForbiddenError("quota_exceeded", "limit"), http.StatusForbidden, ErrorTypeForbidden},
		{"not found", NewNotFoundError("missing"), http.StatusNotFound, ErrorTypeNotFound},
		{"conflict", NewConflictError("busy", nil), http.StatusConflict, ErrorTypeConflict},
		{"rate limit", NewTooManyRequestsError("slow down"), http.StatusTooManyRequests, ErrorTypeTooManyRequests},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError, ErrorTypeInternal},
		{"network", NewNetworkError("down", nil), http.StatusServiceUnavailable, ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if GetStatusCode(tt.err) != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, GetStatusCode(tt.err))
			}
			if !IsType(tt.err, tt.typ) {
				t.Fatalf("expected type %s", tt.typ)
			}
		})
	}
}

func TestAppError_UnwrapAndWrapped(t *testing.T) {
	cause := stderrors.New("redis: connection refused")
	appErr := NewInternalError("store failed", cause)

	if !stderrors.Is(appErr, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}

	wrapped := fmt.Errorf("handler: %w", appErr)
	if GetStatusCode(wrapped) != http.StatusInternalServerError {
		t.Fatalf("expected status from wrapped error, got %d", GetStatusCode(wrapped))
	}
	if !IsType(wrapped, ErrorTypeInternal) {
		t.Fatalf("expected wrapped error to keep its type")
	}
}

func TestAppError_Message(t *testing.T) {
	err := NewValidationError("invalid request", "content: content too long")
	want := "validation: invalid request (content: content too long)"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}

	if GetStatusCode(stderrors.New("plain")) != http.StatusInternalServerError {
		t.Fatalf("expected plain errors to map to 500")
	}
}

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-assistant-server/internal/domain"
)

func TestAccountHandler_GetAccount(t *testing.T) {
	status := &domain.AccountStatus{ID: "user-1", DailyLimit: 7, UsedToday: 3, Remaining: 4}
	h := NewAccountHandler(&mockAccountService{status: status}, NewMockHandlerLogger())

	req := createContextWithUser(httptest.NewRequest(http.MethodGet, "/api/v1/account", nil), testUser)
	rr := httptest.NewRecorder()
	h.GetAccount(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var got domain.AccountStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Remaining != 4 || got.UsedToday != 3 {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestAccountHandler_GetAccount_NotProvisioned(t *testing.T) {
	h := NewAccountHandler(&mockAccountService{err: domain.ErrAccountNotFound}, NewMockHandlerLogger())

	req := createContextWithUser(httptest.NewRequest(http.MethodGet, "/api/v1/account", nil), testUser)
	rr := httptest.NewRecorder()
	h.GetAccount(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

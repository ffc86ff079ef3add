package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-assistant-server/internal/domain"
)

func TestPremiumHandler_Subscribe_OK(t *testing.T) {
	expiry := time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)
	premium := &mockPremiumService{result: &domain.GrantResult{Expiry: &expiry}}
	h := NewPremiumHandler(premium, NewMockHandlerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", strings.NewReader(`{"order_id":"cs_test_1"}`))
	req = createContextWithUser(req, testUser)
	rr := httptest.NewRecorder()
	h.Subscribe(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if premium.lastOrder != "cs_test_1" {
		t.Fatalf("expected order cs_test_1, got %q", premium.lastOrder)
	}
	var resp domain.PremiumResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.ExpiryDate == nil || !resp.ExpiryDate.Equal(expiry) {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestPremiumHandler_Subscribe_ProviderErrorsLookLikeVerificationFailure(t *testing.T) {
	h := NewPremiumHandler(&mockPremiumService{err: errors.New("stripe: no such session")}, NewMockHandlerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", strings.NewReader(`{"order_id":"cs_bogus"}`))
	req = createContextWithUser(req, testUser)
	rr := httptest.NewRecorder()
	h.Subscribe(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Payment verification failed") {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestPremiumHandler_Subscribe_NotConfigured(t *testing.T) {
	h := NewPremiumHandler(&mockPremiumService{err: domain.ErrPaymentNotConfigured}, NewMockHandlerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", strings.NewReader(`{"order_id":"cs_1"}`))
	req = createContextWithUser(req, testUser)
	rr := httptest.NewRecorder()
	h.Subscribe(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestPremiumHandler_Subscribe_MissingOrder(t *testing.T) {
	premium := &mockPremiumService{}
	h := NewPremiumHandler(premium, NewMockHandlerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", strings.NewReader(`{}`))
	req = createContextWithUser(req, testUser)
	rr := httptest.NewRecorder()
	h.Subscribe(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if premium.lastOrder != "" {
		t.Fatalf("expected service not to be called")
	}
}

func TestPremiumHandler_Subscribe_BlankOrderIsBadRequest(t *testing.T) {
	premium := &mockPremiumService{err: &domain.ValidationError{Field: "order_id", Message: "order id is required"}}
	h := NewPremiumHandler(premium, NewMockHandlerLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribe", strings.NewReader(`{"order_id":"   "}`))
	req = createContextWithUser(req, testUser)
	rr := httptest.NewRecorder()
	h.Subscribe(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "order id is required") {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestPremiumHandler_RedeemPromo(t *testing.T) {
	t.Run("unlimited", func(t *testing.T) {
		premium := &mockPremiumService{result: &domain.GrantResult{}}
		h := NewPremiumHandler(premium, NewMockHandlerLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/promo", strings.NewReader(`{"code":"FOREVER"}`))
		req = createContextWithUser(req, testUser)
		rr := httptest.NewRecorder()
		h.RedeemPromo(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
		}
		if strings.TrimSpace(rr.Body.String()) != `{"success":true,"expiry_date":null}` {
			t.Fatalf("unexpected response body: %s", rr.Body.String())
		}
	})

	t.Run("invalid code", func(t *testing.T) {
		h := NewPremiumHandler(&mockPremiumService{err: domain.ErrInvalidPromoCode}, NewMockHandlerLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/promo", strings.NewReader(`{"code":"NOPE"}`))
		req = createContextWithUser(req, testUser)
		rr := httptest.NewRecorder()
		h.RedeemPromo(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Invalid promo code") {
			t.Fatalf("unexpected response body: %s", rr.Body.String())
		}
	})
}

func TestPaymentFailure(t *testing.T) {
	if err := paymentFailure(errors.New("x")); !errors.Is(err, domain.ErrPaymentNotCompleted) {
		t.Fatalf("expected payment not completed, got %v", err)
	}
	if err := paymentFailure(domain.ErrConflict); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict to pass through, got %v", err)
	}
	var verr *domain.ValidationError
	if err := paymentFailure(&domain.ValidationError{Field: "order_id"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error to pass through, got %v", err)
	}
}

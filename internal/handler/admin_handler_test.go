package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-assistant-server/internal/domain"
)

type mockSweeper struct {
	downgraded int
	err        error
	calls      int
}

func (m *mockSweeper) Sweep(ctx context.Context) (int, error) {
	m.calls++
	return m.downgraded, m.err
}

func newAdminRouter(accounts domain.AccountService, sweeper Sweeper) http.Handler {
	logger := NewMockHandlerLogger()
	return NewRouter(
		NewAuthHandler(accounts, logger),
		NewChatHandler(&mockChatService{}, logger),
		NewPremiumHandler(&mockPremiumService{}, logger),
		NewAccountHandler(accounts, logger),
		NewAuthMiddleware(&mockAuthService{}, logger).Middleware,
		RouterOptions{Admin: NewAdminHandler("s3cret", accounts, sweeper, logger)},
	)
}

func TestNewAdminHandler_DisabledWithoutSecret(t *testing.T) {
	if h := NewAdminHandler("", &mockAccountService{}, &mockSweeper{}, NewMockHandlerLogger()); h != nil {
		t.Fatalf("expected nil handler without secret")
	}
}

func TestAdminHandler_RequiresSecret(t *testing.T) {
	sweeper := &mockSweeper{}
	router := newAdminRouter(&mockAccountService{}, sweeper)

	for _, secret := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodPost, "/admin/expiry-sweep", nil)
		if secret != "" {
			req.Header.Set("X-Admin-Secret", secret)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("secret %q: expected status %d, got %d", secret, http.StatusUnauthorized, rr.Code)
		}
	}
	if sweeper.calls != 0 {
		t.Fatalf("expected sweep not to run, got %d calls", sweeper.calls)
	}
}

func TestAdminHandler_RunExpirySweep(t *testing.T) {
	sweeper := &mockSweeper{downgraded: 3}
	router := newAdminRouter(&mockAccountService{}, sweeper)

	req := httptest.NewRequest(http.MethodPost, "/admin/expiry-sweep", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"downgraded":3}` {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestAdminHandler_GetAccount(t *testing.T) {
	accounts := &mockAccountService{status: &domain.AccountStatus{ID: "user-9", IsPremium: true, Remaining: -1}}
	router := newAdminRouter(accounts, &mockSweeper{})

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts/user-9", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"id":"user-9"`) {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestAdminHandler_GetAccount_NotFound(t *testing.T) {
	router := newAdminRouter(&mockAccountService{err: domain.ErrAccountNotFound}, &mockSweeper{})

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts/ghost", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

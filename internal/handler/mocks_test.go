package handler

import (
	"context"
	"net/http"
	"sync"

	"chat-assistant-server/internal/domain"
)

type mockAuthService struct {
	user      *domain.Identity
	err       error
	lastToken string
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	m.lastToken = token
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

type mockAccountService struct {
	account *domain.Account
	status  *domain.AccountStatus
	err     error
	ensured []*domain.Identity
}

func (m *mockAccountService) EnsureAccount(ctx context.Context, identity *domain.Identity) (*domain.Account, error) {
	m.ensured = append(m.ensured, identity)
	if m.err != nil {
		return nil, m.err
	}
	return m.account, nil
}

func (m *mockAccountService) Status(ctx context.Context, identityID string) (*domain.AccountStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

type mockChatService struct {
	mu         sync.Mutex
	result     *domain.ChatResult
	err        error
	history    []*domain.Message
	lastID     string
	lastAction domain.Action
	lastLimit  int
	sendCalls  int
}

func (m *mockChatService) Send(ctx context.Context, identityID string, action domain.Action) (*domain.ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCalls++
	m.lastID = identityID
	m.lastAction = action
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockChatService) History(ctx context.Context, identityID string, limit int) ([]*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID = identityID
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

type mockPremiumService struct {
	result    *domain.GrantResult
	err       error
	lastOrder string
	lastCode  string
}

func (m *mockPremiumService) Subscribe(ctx context.Context, identityID, orderID string) (*domain.GrantResult, error) {
	m.lastOrder = orderID
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockPremiumService) RedeemPromo(ctx context.Context, identityID, code string) (*domain.GrantResult, error) {
	m.lastCode = code
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func createContextWithUser(r *http.Request, user *domain.Identity) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), user, "token-123"))
}

var testUser = &domain.Identity{ID: "user-1", Email: "test@example.com", Name: "Test"}

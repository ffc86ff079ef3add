package handler

import (
	"net/http"

	"chat-assistant-server/internal/domain"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	accounts domain.AccountService
	logger   domain.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(accounts domain.AccountService, logger domain.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

// Login provisions the account of a freshly authenticated identity and
// returns it. Calling it again is harmless.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	account, err := h.accounts.EnsureAccount(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user,
		"account": account,
	})
}

func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

package handler

import (
	"net/http"

	"chat-assistant-server/internal/domain"
)

type AccountHandler struct {
	accounts domain.AccountService
	logger   domain.Logger
}

func NewAccountHandler(accounts domain.AccountService, logger domain.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// GetAccount reports entitlement and today's usage.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	status, err := h.accounts.Status(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"chat-assistant-server/internal/domain"
	apperrors "chat-assistant-server/pkg/errors"
)

// Sweeper runs one expiry pass on demand.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// AdminHandler exposes support endpoints protected by X-Admin-Secret.
// These endpoints are intended for internal tooling and should not be exposed publicly without additional safeguards.
type AdminHandler struct {
	secret   string
	accounts domain.AccountService
	sweeper  Sweeper
	logger   domain.Logger
}

// NewAdminHandler returns nil when secret is empty so that the routes are
// never mounted without a secret.
func NewAdminHandler(secret string, accounts domain.AccountService, sweeper Sweeper, logger domain.Logger) *AdminHandler {
	if secret == "" {
		return nil
	}
	return &AdminHandler{secret: secret, accounts: accounts, sweeper: sweeper, logger: logger}
}

// RequireSecret rejects requests whose X-Admin-Secret does not match.
func (h *AdminHandler) RequireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Admin-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetAccount returns the status of any account by id.
func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, http.StatusBadRequest, "Account id is required")
		return
	}

	status, err := h.accounts.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeAppError(w, apperrors.NewNotFoundError("Account not found"))
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// RunExpirySweep downgrades lapsed premium accounts now instead of waiting
// for the schedule.
func (h *AdminHandler) RunExpirySweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("Manual expiry sweep", "downgraded", n)
	writeJSON(w, http.StatusOK, map[string]int{"downgraded": n})
}

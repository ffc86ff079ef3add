package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"chat-assistant-server/internal/domain"
)

// PremiumHandler serves payment subscriptions and promo redemptions.
type PremiumHandler struct {
	premium domain.PremiumService
	logger  domain.Logger
}

func NewPremiumHandler(premium domain.PremiumService, logger domain.Logger) *PremiumHandler {
	return &PremiumHandler{premium: premium, logger: logger}
}

func (h *PremiumHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.SubscribeRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	result, err := h.premium.Subscribe(r.Context(), user.ID, req.OrderID)
	if err != nil {
		h.logger.Warn("Subscription failed", "account_id", user.ID, "order_id", req.OrderID, "error", err)
		writeServiceError(w, r, h.logger, paymentFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, domain.PremiumResponse{Success: true, ExpiryDate: result.Expiry})
}

func (h *PremiumHandler) RedeemPromo(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req domain.PromoRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	result, err := h.premium.RedeemPromo(r.Context(), user.ID, req.Code)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.PremiumResponse{Success: true, ExpiryDate: result.Expiry})
}

// paymentFailure folds provider errors into a verification failure so
// clients see one message whatever the provider said.
func paymentFailure(err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return err
	case errors.Is(err, domain.ErrPaymentNotConfigured),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrPaymentNotCompleted, err)
	}
}

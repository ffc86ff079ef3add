package domain

import "errors"

// Domain errors
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountExists          = errors.New("account already exists")
	ErrVersionConflict        = errors.New("account version conflict")
	ErrConflict               = errors.New("account update conflict")
	ErrInvalidGrant           = errors.New("invalid grant")
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidPromoCode       = errors.New("invalid promo code")
	ErrPaymentNotCompleted    = errors.New("payment not completed")
	ErrPaymentNotConfigured   = errors.New("payment provider not configured")
	ErrPaymentAlreadyRedeemed = errors.New("payment already redeemed")
	ErrResponderUnavailable   = errors.New("responder unavailable")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

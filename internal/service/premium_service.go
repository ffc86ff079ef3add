package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-assistant-server/internal/domain"
)

// PremiumService turns verified payments and promo codes into grants. It
// decides whether a grant is earned; the gate applies it.
type PremiumService struct {
	gate       *GateService
	verifier   domain.PaymentVerifier
	ledger     domain.PaymentLedger
	promoCodes map[string]*time.Duration
	logger     domain.Logger
}

func NewPremiumService(
	gate *GateService,
	verifier domain.PaymentVerifier,
	ledger domain.PaymentLedger,
	promoCodes map[string]*time.Duration,
	logger domain.Logger,
) *PremiumService {
	if promoCodes == nil {
		promoCodes = map[string]*time.Duration{}
	}
	return &PremiumService{
		gate:       gate,
		verifier:   verifier,
		ledger:     ledger,
		promoCodes: promoCodes,
		logger:     logger,
	}
}

// Subscribe verifies the order with the payment provider and grants the plan
// it paid for. Each payment reference is granted once; replaying it fails
// with ErrPaymentNotCompleted.
func (s *PremiumService) Subscribe(ctx context.Context, identityID, orderID string) (*domain.GrantResult, error) {
	verification, err := s.verifier.Verify(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !verification.Completed {
		return nil, domain.ErrPaymentNotCompleted
	}
	if verification.ClientReference != "" && verification.ClientReference != identityID {
		s.logger.Warn("Payment belongs to another account",
			"account_id", identityID,
			"client_reference", verification.ClientReference,
			"order_id", verification.Reference,
		)
		return nil, fmt.Errorf("%w: order does not belong to this account", domain.ErrPaymentNotCompleted)
	}

	duration, err := domain.PlanDuration(verification.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGrant, err)
	}

	reference := verification.Reference
	if reference == "" {
		reference = strings.TrimSpace(orderID)
	}
	if err := s.ledger.Claim(ctx, reference, identityID); err != nil {
		if errors.Is(err, domain.ErrPaymentAlreadyRedeemed) {
			s.logger.Warn("Payment already redeemed", "account_id", identityID, "order_id", reference)
			return nil, fmt.Errorf("%w: %w", domain.ErrPaymentNotCompleted, err)
		}
		return nil, err
	}

	result, err := s.gate.GrantPremium(ctx, identityID, domain.Grant{
		Source:    domain.GrantSourcePayment,
		Duration:  duration,
		Reference: reference,
	})
	if err != nil {
		if rerr := s.ledger.Release(context.WithoutCancel(ctx), reference); rerr != nil {
			s.logger.Error("Failed to release payment claim", rerr, "account_id", identityID, "order_id", reference)
		}
		return nil, err
	}
	return result, nil
}

// RedeemPromo grants the window configured for code. Codes match exactly.
func (s *PremiumService) RedeemPromo(ctx context.Context, identityID, code string) (*domain.GrantResult, error) {
	duration, ok := s.promoCodes[code]
	if !ok {
		return nil, domain.ErrInvalidPromoCode
	}
	return s.gate.GrantPremium(ctx, identityID, domain.Grant{
		Source:    domain.GrantSourcePromo,
		Duration:  duration,
		Reference: code,
	})
}

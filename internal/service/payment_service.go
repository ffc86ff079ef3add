package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"

	"chat-assistant-server/internal/domain"
)

// checkoutSessionGetter fetches a checkout session by id.
type checkoutSessionGetter func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// StripePaymentVerifier confirms that a Stripe checkout session was paid.
// The order id clients send is the checkout session id.
type StripePaymentVerifier struct {
	getSession checkoutSessionGetter
	logger     domain.Logger
}

func NewStripePaymentVerifier(secretKey string, logger domain.Logger) *StripePaymentVerifier {
	sc := &checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
	return &StripePaymentVerifier{getSession: sc.Get, logger: logger}
}

func (v *StripePaymentVerifier) Verify(ctx context.Context, orderID string) (*domain.PaymentVerification, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, &domain.ValidationError{Field: "order_id", Message: "order id is required"}
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := v.getSession(orderID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkout session: %w", err)
	}

	completed := sess.Status == stripe.CheckoutSessionStatusComplete &&
		(sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired)

	v.logger.Info("Checkout session verified",
		"session_id", sess.ID,
		"status", sess.Status,
		"payment_status", sess.PaymentStatus,
	)

	return &domain.PaymentVerification{
		Reference:       sess.ID,
		Completed:       completed,
		Plan:            sess.Metadata["plan"],
		ClientReference: sess.ClientReferenceID,
	}, nil
}

// unconfiguredVerifier is wired when no payment provider key is set.
type unconfiguredVerifier struct{}

func NewUnconfiguredPaymentVerifier() domain.PaymentVerifier {
	return unconfiguredVerifier{}
}

func (unconfiguredVerifier) Verify(ctx context.Context, orderID string) (*domain.PaymentVerification, error) {
	return nil, domain.ErrPaymentNotConfigured
}

package domain

import (
	"context"
	"fmt"
	"time"
)

// Subscription plans sold through the payment provider.
const (
	PlanWeekly    = "weekly"
	PlanMonthly   = "monthly"
	PlanUnlimited = "unlimited"
)

// PlanDuration returns the premium window bought by a plan. A nil duration
// means the window never ends. An empty plan is treated as unlimited, which
// is what a bare completed payment has always bought.
func PlanDuration(plan string) (*time.Duration, error) {
	var d time.Duration
	switch plan {
	case PlanWeekly:
		d = 7 * 24 * time.Hour
	case PlanMonthly:
		d = 30 * 24 * time.Hour
	case PlanUnlimited, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown plan %q", plan)
	}
	return &d, nil
}

// SubscribeRequest is the body of a payment subscription call.
type SubscribeRequest struct {
	OrderID string `json:"order_id" validate:"required,max=255"`
}

// PromoRequest is the body of a promo redemption call.
type PromoRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// PremiumResponse reports a successful grant. ExpiryDate is nil for an
// unlimited window.
type PremiumResponse struct {
	Success    bool       `json:"success"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

// PremiumService turns payments and promo codes into premium grants.
type PremiumService interface {
	Subscribe(ctx context.Context, identityID, orderID string) (*GrantResult, error)
	RedeemPromo(ctx context.Context, identityID, code string) (*GrantResult, error)
}

package domain

import (
	"context"
	"strings"
	"time"
)

// Account holds one identity's entitlement state.
//
// PremiumUntil is only meaningful while IsPremium is set: nil means the
// premium window never expires. DailyMessageCount counts actions consumed on
// the calendar day of LastMessageDate and reads as zero on any later day.
type Account struct {
	ID                string     `json:"id"`
	Email             string     `json:"email,omitempty"`
	Name              string     `json:"name,omitempty"`
	IsPremium         bool       `json:"is_premium"`
	PremiumUntil      *time.Time `json:"premium_until,omitempty"`
	DailyMessageCount int        `json:"daily_message_count"`
	LastMessageDate   time.Time  `json:"last_message_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Version is bumped by the store on every successful save.
	Version int64 `json:"version"`
}

// NewAccount returns the initial state for a freshly resolved identity.
func NewAccount(id, email, name string, now time.Time) Account {
	return Account{
		ID:              id,
		Email:           email,
		Name:            name,
		LastMessageDate: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone returns a copy that shares no pointers with a.
func (a Account) Clone() Account {
	if a.PremiumUntil != nil {
		until := *a.PremiumUntil
		a.PremiumUntil = &until
	}
	return a
}

// SameEntitlement reports whether a and b carry the same entitlement and usage
// state, ignoring profile fields and the store version.
func (a Account) SameEntitlement(b Account) bool {
	if a.IsPremium != b.IsPremium ||
		a.DailyMessageCount != b.DailyMessageCount ||
		!a.LastMessageDate.Equal(b.LastMessageDate) {
		return false
	}
	switch {
	case a.PremiumUntil == nil && b.PremiumUntil == nil:
		return true
	case a.PremiumUntil == nil || b.PremiumUntil == nil:
		return false
	default:
		return a.PremiumUntil.Equal(*b.PremiumUntil)
	}
}

// ActionKind tags what a submitted request asks the bot to do. The calling
// layer decides the kind; the policy never inspects content.
type ActionKind string

const (
	ActionPlainMessage    ActionKind = "plain-message"
	ActionImageGeneration ActionKind = "image-generation"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	return k == ActionPlainMessage || k == ActionImageGeneration
}

// MaxActionContentLength bounds the text of a single action.
const MaxActionContentLength = 1000

// Action is one user-submitted request.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Content string     `json:"content"`
}

// Validate checks the action shape before it reaches the gate.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return &ValidationError{Field: "kind", Message: "unknown action kind"}
	}
	if strings.TrimSpace(a.Content) == "" {
		return &ValidationError{Field: "content", Message: "content cannot be empty"}
	}
	if len([]rune(a.Content)) > MaxActionContentLength {
		return &ValidationError{Field: "content", Message: "content too long"}
	}
	return nil
}

// RejectReason explains why an action was not allowed.
type RejectReason string

const (
	ReasonNone            RejectReason = ""
	ReasonQuotaExceeded   RejectReason = "QuotaExceeded"
	ReasonPremiumRequired RejectReason = "PremiumRequired"
)

// Decision is the gate's answer for one action request.
//
// DecidedAt is the instant the quota was evaluated at; derived values such as
// the remaining allowance must use it rather than a fresh clock read.
type Decision struct {
	Allowed   bool         `json:"allowed"`
	Reason    RejectReason `json:"reason,omitempty"`
	Account   Account      `json:"account"`
	DecidedAt time.Time    `json:"decided_at"`
}

// GrantSource names where a premium grant came from.
type GrantSource string

const (
	GrantSourcePayment GrantSource = "payment"
	GrantSourcePromo   GrantSource = "promo"
)

// Grant elevates an account to premium. A nil Duration means unlimited.
type Grant struct {
	Source    GrantSource    `json:"source"`
	Duration  *time.Duration `json:"duration,omitempty"`
	Reference string         `json:"reference,omitempty"`
}

// GrantResult is returned after a grant has been persisted.
type GrantResult struct {
	Account Account    `json:"account"`
	Expiry  *time.Time `json:"expiry,omitempty"`
}

// AccountStatus is the read-only view of an account returned to clients.
// Remaining is -1 and ResetsAt is nil for premium accounts.
type AccountStatus struct {
	ID           string     `json:"id"`
	Email        string     `json:"email,omitempty"`
	Name         string     `json:"name,omitempty"`
	IsPremium    bool       `json:"is_premium"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`
	DailyLimit   int        `json:"daily_limit"`
	UsedToday    int        `json:"used_today"`
	Remaining    int        `json:"remaining"`
	ResetsAt     *time.Time `json:"resets_at,omitempty"`
}

// AccountService provisions accounts and reports their status.
type AccountService interface {
	EnsureAccount(ctx context.Context, identity *Identity) (*Account, error)
	Status(ctx context.Context, identityID string) (*AccountStatus, error)
}

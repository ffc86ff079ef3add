// Package entitlement applies premium grants and expirations to accounts.
package entitlement

import (
	"fmt"
	"time"

	"chat-assistant-server/internal/domain"
)

// Expired reports whether a premium window has ended at now.
func Expired(account domain.Account, now time.Time) bool {
	return account.IsPremium && account.PremiumUntil != nil && !account.PremiumUntil.After(now)
}

// ResolveExpiry downgrades an account whose premium window ended at or before
// now. Other accounts are returned unchanged.
func ResolveExpiry(account domain.Account, now time.Time) domain.Account {
	account = account.Clone()
	if Expired(account, now) {
		account.IsPremium = false
		account.PremiumUntil = nil
	}
	return account
}

// ValidateGrant rejects grants that cannot be applied.
func ValidateGrant(grant domain.Grant) error {
	switch grant.Source {
	case domain.GrantSourcePayment:
		if grant.Reference == "" {
			return fmt.Errorf("%w: payment grant requires a reference", domain.ErrInvalidGrant)
		}
	case domain.GrantSourcePromo:
	default:
		return fmt.Errorf("%w: unknown source %q", domain.ErrInvalidGrant, grant.Source)
	}
	if grant.Duration != nil && *grant.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", domain.ErrInvalidGrant)
	}
	return nil
}

// ApplyGrant makes the account premium from now. The new window replaces any
// previous one: the last grant wins, including over an unlimited window.
func ApplyGrant(account domain.Account, grant domain.Grant, now time.Time) (domain.Account, error) {
	if err := ValidateGrant(grant); err != nil {
		return account, err
	}

	account = account.Clone()
	account.IsPremium = true
	account.PremiumUntil = nil
	if grant.Duration != nil {
		until := now.Add(*grant.Duration)
		account.PremiumUntil = &until
	}
	return account, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-assistant-server/internal/domain"
	"chat-assistant-server/internal/entitlement"
	"chat-assistant-server/internal/metrics"
	"chat-assistant-server/internal/quota"
)

// DefaultGateMaxAttempts bounds the load, resolve, evaluate, persist cycle
// when the store keeps reporting version conflicts.
const DefaultGateMaxAttempts = 3

// GateService is the only component that persists entitlement state. Every
// operation reads the account, applies the pure policy functions with a
// single clock reading, and writes back with a conditional save.
type GateService struct {
	store       domain.AccountStore
	clock       domain.Clock
	policy      quota.Policy
	maxAttempts int
	logger      domain.Logger
	metrics     *metrics.Metrics
}

func NewGateService(
	store domain.AccountStore,
	clock domain.Clock,
	policy quota.Policy,
	maxAttempts int,
	logger domain.Logger,
	m *metrics.Metrics,
) *GateService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultGateMaxAttempts
	}
	return &GateService{
		store:       store,
		clock:       clock,
		policy:      policy,
		maxAttempts: maxAttempts,
		logger:      logger,
		metrics:     m,
	}
}

func (s *GateService) Policy() quota.Policy {
	return s.policy
}

func (s *GateService) Now() time.Time {
	return s.clock.Now()
}

// SubmitAction decides whether the identity may perform the action and
// persists the consumed quota. Rejections are returned as a decision, not an
// error. An expired premium account is downgraded in storage either way.
func (s *GateService) SubmitAction(ctx context.Context, identityID string, action domain.Action) (*domain.Decision, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	var decision domain.Decision
	err := s.withRetry(ctx, "submit_action", identityID, func(account *domain.Account, now time.Time) error {
		resolved := entitlement.ResolveExpiry(*account, now)
		result := s.policy.Evaluate(resolved, action, now)

		next := result.Account
		if !next.SameEntitlement(*account) {
			next.UpdatedAt = now
			if err := s.store.Save(ctx, &next); err != nil {
				return err
			}
		}

		decision = domain.Decision{
			Allowed:   result.Allowed,
			Reason:    result.Reason,
			Account:   next,
			DecidedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		outcome := "allowed"
		if !decision.Allowed {
			outcome = string(decision.Reason)
		}
		s.metrics.GateDecisions.WithLabelValues(string(action.Kind), outcome).Inc()
	}
	if !decision.Allowed {
		s.logger.Info("Action rejected", "account_id", identityID, "kind", action.Kind, "reason", decision.Reason)
	}
	return &decision, nil
}

// GrantPremium applies a verified grant. The new window replaces any
// previous one.
func (s *GateService) GrantPremium(ctx context.Context, identityID string, grant domain.Grant) (*domain.GrantResult, error) {
	if err := entitlement.ValidateGrant(grant); err != nil {
		return nil, err
	}

	var result domain.GrantResult
	err := s.withRetry(ctx, "grant_premium", identityID, func(account *domain.Account, now time.Time) error {
		resolved := entitlement.ResolveExpiry(*account, now)
		next, err := entitlement.ApplyGrant(resolved, grant, now)
		if err != nil {
			return err
		}
		next.UpdatedAt = now
		if err := s.store.Save(ctx, &next); err != nil {
			return err
		}
		result = domain.GrantResult{Account: next, Expiry: next.PremiumUntil}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.GrantsApplied.WithLabelValues(string(grant.Source)).Inc()
	}
	s.logger.Info("Premium granted",
		"account_id", identityID,
		"source", grant.Source,
		"reference", grant.Reference,
		"premium_until", result.Expiry,
	)
	return &result, nil
}

// ExpireIfDue downgrades the account when its premium window has ended and
// reports whether it wrote anything.
func (s *GateService) ExpireIfDue(ctx context.Context, identityID string) (bool, error) {
	changed := false
	err := s.withRetry(ctx, "expire", identityID, func(account *domain.Account, now time.Time) error {
		changed = false
		if !entitlement.Expired(*account, now) {
			return nil
		}
		next := entitlement.ResolveExpiry(*account, now)
		next.UpdatedAt = now
		if err := s.store.Save(ctx, &next); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// EnsureAccount returns the identity's account, creating it with zero usage
// on first sight.
func (s *GateService) EnsureAccount(ctx context.Context, identity *domain.Identity) (*domain.Account, error) {
	account, err := s.store.Get(ctx, identity.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	fresh := domain.NewAccount(identity.ID, identity.Email, identity.Name, s.clock.Now())
	switch err := s.store.Create(ctx, &fresh); {
	case err == nil:
		s.logger.Info("Account created", "account_id", identity.ID)
		return &fresh, nil
	case errors.Is(err, domain.ErrAccountExists):
		return s.store.Get(ctx, identity.ID)
	default:
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
}

// Status reports the account as the policy sees it now. Expiry is resolved
// on the view only; storage is left to the next write.
func (s *GateService) Status(ctx context.Context, identityID string) (*domain.AccountStatus, error) {
	account, err := s.store.Get(ctx, identityID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	resolved := entitlement.ResolveExpiry(*account, now)

	status := &domain.AccountStatus{
		ID:           resolved.ID,
		Email:        resolved.Email,
		Name:         resolved.Name,
		IsPremium:    resolved.IsPremium,
		PremiumUntil: resolved.PremiumUntil,
		DailyLimit:   s.policy.DailyLimit,
		UsedToday:    s.policy.UsedOn(resolved, now),
		Remaining:    s.policy.Remaining(resolved, now),
	}
	if !resolved.IsPremium {
		reset := s.policy.NextReset(now)
		status.ResetsAt = &reset
	}
	return status, nil
}

// withRetry runs fn against a freshly loaded account until it stops
// returning ErrVersionConflict or the attempts run out. The clock is read
// once per attempt.
func (s *GateService) withRetry(ctx context.Context, op, identityID string, fn func(account *domain.Account, now time.Time) error) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		account, err := s.store.Get(ctx, identityID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return err
			}
			return fmt.Errorf("failed to load account: %w", err)
		}

		err = fn(account, s.clock.Now())
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}

		s.logger.Debug("Version conflict, retrying", "op", op, "account_id", identityID, "attempt", attempt)
		if s.metrics != nil && attempt < s.maxAttempts {
			s.metrics.GateRetries.Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.GateConflicts.Inc()
	}
	s.logger.Warn("Gave up after version conflicts", "op", op, "account_id", identityID, "attempts", s.maxAttempts)
	return domain.ErrConflict
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat-assistant-server/internal/domain"
)

// MemoryAccountRepository keeps accounts in process memory. It backs local
// development and tests; every method copies values in and out so callers
// never share state with the map.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]domain.Account)}
}

func (r *MemoryAccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	out := acc.Clone()
	return &out, nil
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return domain.ErrAccountExists
	}
	account.Version = 1
	r.accounts[account.ID] = account.Clone()
	return nil
}

func (r *MemoryAccountRepository) Save(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return domain.ErrVersionConflict
	}
	next := account.Clone()
	next.Version = stored.Version + 1
	r.accounts[account.ID] = next
	account.Version = next.Version
	return nil
}

func (r *MemoryAccountRepository) ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, acc := range r.accounts {
		if acc.IsPremium && acc.PremiumUntil != nil && !acc.PremiumUntil.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

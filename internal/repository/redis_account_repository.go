package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-assistant-server/internal/domain"
)

const (
	redisAccountKeyPrefix = "account:"
	redisPremiumExpiryKey = "accounts:premium_expiry"
)

// RedisAccountRepository stores each account as a JSON document and uses
// WATCH/MULTI so that Save only lands if nobody wrote the key in between.
// Premium expiries are mirrored in a sorted set scored by unix milliseconds.
type RedisAccountRepository struct {
	client *redis.Client
	logger domain.Logger
}

func NewRedisAccountRepository(client *redis.Client, logger domain.Logger) *RedisAccountRepository {
	return &RedisAccountRepository{client: client, logger: logger}
}

func redisAccountKey(id string) string {
	return redisAccountKeyPrefix + id
}

func (r *RedisAccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	raw, err := r.client.Get(ctx, redisAccountKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return decodeAccount(raw)
}

func (r *RedisAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	next := account.Clone()
	next.Version = 1
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	created, err := r.client.SetNX(ctx, redisAccountKey(account.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if !created {
		return domain.ErrAccountExists
	}
	if err := r.syncExpiryIndex(ctx, r.client, next); err != nil {
		return err
	}
	account.Version = next.Version
	return nil
}

func (r *RedisAccountRepository) Save(ctx context.Context, account *domain.Account) error {
	key := redisAccountKey(account.ID)
	next := account.Clone()

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read account: %w", err)
		}
		stored, err := decodeAccount(raw)
		if err != nil {
			return err
		}
		if stored.Version != account.Version {
			return domain.ErrVersionConflict
		}

		next.Version = stored.Version + 1
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode account: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return r.syncExpiryIndex(ctx, pipe, next)
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return domain.ErrVersionConflict
	case err != nil:
		return err
	}
	account.Version = next.Version
	return nil
}

func (r *RedisAccountRepository) ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]string, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}
	if limit > 0 {
		by.Count = int64(limit)
	}
	ids, err := r.client.ZRangeByScore(ctx, redisPremiumExpiryKey, by).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired accounts: %w", err)
	}
	return ids, nil
}

// syncExpiryIndex keeps the expiry sorted set in step with the account.
// Inside a transaction cmd is the pipeliner, so the index update commits
// atomically with the document.
func (r *RedisAccountRepository) syncExpiryIndex(ctx context.Context, cmd redis.Cmdable, account domain.Account) error {
	if account.IsPremium && account.PremiumUntil != nil {
		return cmd.ZAdd(ctx, redisPremiumExpiryKey, redis.Z{
			Score:  float64(account.PremiumUntil.UnixMilli()),
			Member: account.ID,
		}).Err()
	}
	return cmd.ZRem(ctx, redisPremiumExpiryKey, account.ID).Err()
}

func decodeAccount(raw []byte) (*domain.Account, error) {
	var acc domain.Account
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &acc, nil
}

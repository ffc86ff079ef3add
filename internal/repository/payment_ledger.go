package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"chat-assistant-server/internal/domain"
)

// MemoryPaymentLedger keeps redeemed payment references in process memory.
type MemoryPaymentLedger struct {
	mu       sync.Mutex
	redeemed map[string]string
}

func NewMemoryPaymentLedger() *MemoryPaymentLedger {
	return &MemoryPaymentLedger{redeemed: make(map[string]string)}
}

func (l *MemoryPaymentLedger) Claim(ctx context.Context, reference, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.redeemed[reference]; ok {
		return domain.ErrPaymentAlreadyRedeemed
	}
	l.redeemed[reference] = accountID
	return nil
}

func (l *MemoryPaymentLedger) Release(ctx context.Context, reference string) error {
	l.mu.Lock()
	delete(l.redeemed, reference)
	l.mu.Unlock()
	return nil
}

const redisPaymentKeyPrefix = "payment:"

// RedisPaymentLedger claims a reference with SETNX so that only the first
// writer wins.
type RedisPaymentLedger struct {
	client *redis.Client
	logger domain.Logger
}

func NewRedisPaymentLedger(client *redis.Client, logger domain.Logger) *RedisPaymentLedger {
	return &RedisPaymentLedger{client: client, logger: logger}
}

func (l *RedisPaymentLedger) Claim(ctx context.Context, reference, accountID string) error {
	claimed, err := l.client.SetNX(ctx, redisPaymentKeyPrefix+reference, accountID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim payment: %w", err)
	}
	if !claimed {
		return domain.ErrPaymentAlreadyRedeemed
	}
	return nil
}

func (l *RedisPaymentLedger) Release(ctx context.Context, reference string) error {
	if err := l.client.Del(ctx, redisPaymentKeyPrefix+reference).Err(); err != nil {
		return fmt.Errorf("failed to release payment: %w", err)
	}
	return nil
}

const redeemedPaymentsSchema = `
CREATE TABLE IF NOT EXISTS redeemed_payments (
	reference   TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL,
	redeemed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const (
	qClaimPayment = `INSERT INTO redeemed_payments (reference, account_id) VALUES ($1, $2)
ON CONFLICT (reference) DO NOTHING`

	qReleasePayment = `DELETE FROM redeemed_payments WHERE reference = $1`
)

// PostgresPaymentLedger records redeemed references in a table keyed by the
// reference; the primary key settles concurrent claims.
type PostgresPaymentLedger struct {
	db     *sql.DB
	logger domain.Logger
}

func NewPostgresPaymentLedger(db *sql.DB, logger domain.Logger) *PostgresPaymentLedger {
	return &PostgresPaymentLedger{db: db, logger: logger}
}

// Migrate creates the redeemed_payments table when missing.
func (l *PostgresPaymentLedger) Migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, redeemedPaymentsSchema); err != nil {
		return fmt.Errorf("failed to migrate redeemed payments: %w", err)
	}
	return nil
}

func (l *PostgresPaymentLedger) Claim(ctx context.Context, reference, accountID string) error {
	res, err := l.db.ExecContext(ctx, qClaimPayment, reference, accountID)
	if err != nil {
		return fmt.Errorf("failed to claim payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to claim payment: %w", err)
	}
	if n == 0 {
		return domain.ErrPaymentAlreadyRedeemed
	}
	return nil
}

func (l *PostgresPaymentLedger) Release(ctx context.Context, reference string) error {
	if _, err := l.db.ExecContext(ctx, qReleasePayment, reference); err != nil {
		return fmt.Errorf("failed to release payment: %w", err)
	}
	return nil
}

const redeemedPaymentsTable = "redeemed_payments"

// SupabasePaymentLedger stores redeemed references in the Supabase
// "redeemed_payments" table, which must have reference as its primary key.
type SupabasePaymentLedger struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

func NewSupabasePaymentLedger(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabasePaymentLedger {
	return &SupabasePaymentLedger{supabaseClient: supabaseClient, logger: logger}
}

func (l *SupabasePaymentLedger) Claim(ctx context.Context, reference, accountID string) error {
	client := l.supabaseClient.DB()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	row := map[string]interface{}{"reference": reference, "account_id": accountID}
	_, _, err := client.From(redeemedPaymentsTable).Insert(row, false, "", "minimal", "").Execute()
	if err != nil {
		if strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrPaymentAlreadyRedeemed
		}
		return fmt.Errorf("failed to claim payment: %w", err)
	}
	return nil
}

func (l *SupabasePaymentLedger) Release(ctx context.Context, reference string) error {
	client := l.supabaseClient.DB()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	_, _, err := client.From(redeemedPaymentsTable).Delete("minimal", "").Eq("reference", reference).Execute()
	if err != nil {
		return fmt.Errorf("failed to release payment: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chat-assistant-server/internal/domain"
)

const accountsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                  TEXT PRIMARY KEY,
	email               TEXT NOT NULL DEFAULT '',
	name                TEXT NOT NULL DEFAULT '',
	is_premium          BOOLEAN NOT NULL DEFAULT FALSE,
	premium_until       TIMESTAMPTZ NULL,
	daily_message_count INTEGER NOT NULL DEFAULT 0 CHECK (daily_message_count >= 0),
	last_message_date   TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	version             BIGINT NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS accounts_premium_until_idx ON accounts (premium_until) WHERE is_premium;
`

const (
	qSelectAccount = `SELECT id, email, name, is_premium, premium_until, daily_message_count,
	last_message_date, created_at, updated_at, version
FROM accounts WHERE id = $1`

	qInsertAccount = `INSERT INTO accounts (id, email, name, is_premium, premium_until, daily_message_count,
	last_message_date, created_at, updated_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
ON CONFLICT (id) DO NOTHING`

	qUpdateAccount = `UPDATE accounts SET email = $2, name = $3, is_premium = $4, premium_until = $5,
	daily_message_count = $6, last_message_date = $7, updated_at = $8, version = version + 1
WHERE id = $1 AND version = $9`

	qAccountExists = `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`

	qListExpiredPremium = `SELECT id FROM accounts
WHERE is_premium AND premium_until IS NOT NULL AND premium_until <= $1
ORDER BY premium_until LIMIT $2`
)

// PostgresAccountRepository keeps accounts in a Postgres table. Save is a
// single UPDATE guarded by the version column.
type PostgresAccountRepository struct {
	db     *sql.DB
	logger domain.Logger
}

func NewPostgresAccountRepository(db *sql.DB, logger domain.Logger) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db, logger: logger}
}

// Migrate creates the accounts table when missing.
func (r *PostgresAccountRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, accountsSchema); err != nil {
		return fmt.Errorf("failed to migrate accounts: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	var (
		acc   domain.Account
		until sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, qSelectAccount, id).Scan(
		&acc.ID, &acc.Email, &acc.Name, &acc.IsPremium, &until, &acc.DailyMessageCount,
		&acc.LastMessageDate, &acc.CreatedAt, &acc.UpdatedAt, &acc.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if until.Valid {
		t := until.Time
		acc.PremiumUntil = &t
	}
	return &acc, nil
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	res, err := r.db.ExecContext(ctx, qInsertAccount,
		account.ID, account.Email, account.Name, account.IsPremium, nullTime(account.PremiumUntil),
		account.DailyMessageCount, account.LastMessageDate, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountExists
	}
	account.Version = 1
	return nil
}

func (r *PostgresAccountRepository) Save(ctx context.Context, account *domain.Account) error {
	res, err := r.db.ExecContext(ctx, qUpdateAccount,
		account.ID, account.Email, account.Name, account.IsPremium, nullTime(account.PremiumUntil),
		account.DailyMessageCount, account.LastMessageDate, account.UpdatedAt, account.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if n == 1 {
		account.Version++
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, qAccountExists, account.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return domain.ErrAccountNotFound
	}
	return domain.ErrVersionConflict
}

func (r *PostgresAccountRepository) ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.db.QueryContext(ctx, qListExpiredPremium, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

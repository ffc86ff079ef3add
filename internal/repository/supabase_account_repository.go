package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"chat-assistant-server/internal/domain"
)

const accountsTable = "accounts"

// SupabaseAccountRepository stores accounts in the Supabase "accounts" table
// through PostgREST. Save is a filtered PATCH on (id, version) returning the
// updated row; an empty result means the version moved or the row is gone.
type SupabaseAccountRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

func NewSupabaseAccountRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseAccountRepository {
	return &SupabaseAccountRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

func (r *SupabaseAccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	resp, _, err := client.From(accountsTable).
		Select("*", "", false).
		Eq("id", id).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var rows []domain.Account
	if err := json.Unmarshal(resp, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return &rows[0], nil
}

func (r *SupabaseAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	client := r.supabaseClient.DB()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	data := accountRow(account)
	data["id"] = account.ID
	data["created_at"] = account.CreatedAt
	data["version"] = 1

	_, _, err := client.From(accountsTable).Insert(data, false, "", "minimal", "").Execute()
	if err != nil {
		// PostgREST reports unique violations with the Postgres code.
		if strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	account.Version = 1
	r.logger.Info("Account created", "account_id", account.ID)
	return nil
}

func (r *SupabaseAccountRepository) Save(ctx context.Context, account *domain.Account) error {
	client := r.supabaseClient.DB()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	next := account.Version + 1
	data := accountRow(account)
	data["version"] = next

	resp, _, err := client.From(accountsTable).
		Update(data, "representation", "").
		Eq("id", account.ID).
		Eq("version", strconv.FormatInt(account.Version, 10)).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &rows); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 1 {
		account.Version = next
		return nil
	}

	if _, err := r.Get(ctx, account.ID); err != nil {
		return err
	}
	return domain.ErrVersionConflict
}

func (r *SupabaseAccountRepository) ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]string, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	if limit <= 0 {
		limit = 1000
	}

	resp, _, err := client.From(accountsTable).
		Select("id", "", false).
		Eq("is_premium", "true").
		Lte("premium_until", now.UTC().Format(time.RFC3339Nano)).
		Order("premium_until", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired accounts: %w", err)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func accountRow(account *domain.Account) map[string]interface{} {
	var until interface{}
	if account.PremiumUntil != nil {
		until = account.PremiumUntil.UTC()
	}
	return map[string]interface{}{
		"email":               account.Email,
		"name":                account.Name,
		"is_premium":          account.IsPremium,
		"premium_until":       until,
		"daily_message_count": account.DailyMessageCount,
		"last_message_date":   account.LastMessageDate.UTC(),
		"updated_at":          account.UpdatedAt.UTC(),
	}
}

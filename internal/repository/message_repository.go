package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/postgrest-go"

	"chat-assistant-server/internal/domain"
)

// MaxHistoryPerAccount caps how many messages are retained per account.
const MaxHistoryPerAccount = 200

// MemoryMessageRepository keeps conversation history in process memory.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]domain.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string][]domain.Message)}
}

func (r *MemoryMessageRepository) Append(ctx context.Context, messages ...*domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range messages {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		list := append(r.messages[m.AccountID], *m)
		if len(list) > MaxHistoryPerAccount {
			list = list[len(list)-MaxHistoryPerAccount:]
		}
		r.messages[m.AccountID] = list
	}
	return nil
}

func (r *MemoryMessageRepository) Recent(ctx context.Context, accountID string, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.messages[accountID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]*domain.Message, 0, len(list))
	for i := range list {
		m := list[i]
		out = append(out, &m)
	}
	return out, nil
}

// RedisMessageRepository stores history as a capped list of JSON entries per
// account under "messages:{id}".
type RedisMessageRepository struct {
	client *redis.Client
	logger domain.Logger
}

func NewRedisMessageRepository(client *redis.Client, logger domain.Logger) *RedisMessageRepository {
	return &RedisMessageRepository{client: client, logger: logger}
}

func redisMessagesKey(accountID string) string {
	return "messages:" + accountID
}

func (r *RedisMessageRepository) Append(ctx context.Context, messages ...*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		touched := make(map[string]struct{})
		for _, m := range messages {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("failed to encode message: %w", err)
			}
			pipe.RPush(ctx, redisMessagesKey(m.AccountID), data)
			touched[m.AccountID] = struct{}{}
		}
		for id := range touched {
			pipe.LTrim(ctx, redisMessagesKey(id), -MaxHistoryPerAccount, -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

func (r *RedisMessageRepository) Recent(ctx context.Context, accountID string, limit int) ([]*domain.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := r.client.LRange(ctx, redisMessagesKey(accountID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	out := make([]*domain.Message, 0, len(raw))
	for _, item := range raw {
		var m domain.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			r.logger.Warn("Skipping undecodable message", "account_id", accountID, "error", err)
			continue
		}
		out = append(out, &m)
	}
	return out, nil
}

// SupabaseMessageRepository stores history in the "messages" table.
type SupabaseMessageRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

func NewSupabaseMessageRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseMessageRepository {
	return &SupabaseMessageRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

func (r *SupabaseMessageRepository) Append(ctx context.Context, messages ...*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	client := r.supabaseClient.DB()
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	rows := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		rows = append(rows, map[string]interface{}{
			"id":         m.ID,
			"account_id": m.AccountID,
			"content":    m.Content,
			"is_bot":     m.IsBot,
			"timestamp":  m.Timestamp.UTC(),
		})
	}

	if _, _, err := client.From("messages").Insert(rows, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("failed to save messages: %w", err)
	}
	return nil
}

func (r *SupabaseMessageRepository) Recent(ctx context.Context, accountID string, limit int) ([]*domain.Message, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	if limit <= 0 {
		limit = MaxHistoryPerAccount
	}

	resp, _, err := client.From("messages").
		Select("*", "", false).
		Eq("account_id", accountID).
		Order("timestamp", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	var messages []*domain.Message
	if err := json.Unmarshal(resp, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

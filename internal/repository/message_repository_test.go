package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-assistant-server/internal/domain"
	infraredis "chat-assistant-server/internal/infra/redis"
)

func messageStores(t *testing.T) map[string]domain.MessageRepository {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := infraredis.NewClient("redis://"+mr.Addr(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return map[string]domain.MessageRepository{
		"memory": NewMemoryMessageRepository(),
		"redis":  NewRedisMessageRepository(client, quietLogger()),
	}
}

func TestMessageRepository_AppendAndRecent(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range messageStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			user := &domain.Message{AccountID: "u1", Content: "hi", Timestamp: now}
			bot := &domain.Message{AccountID: "u1", Content: "hello", IsBot: true, Timestamp: now.Add(time.Second)}
			other := &domain.Message{AccountID: "u2", Content: "other", Timestamp: now}

			require.NoError(t, store.Append(ctx, user, bot, other))
			assert.NotEmpty(t, user.ID)
			assert.NotEqual(t, user.ID, bot.ID)

			got, err := store.Recent(ctx, "u1", 10)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "hi", got[0].Content)
			assert.True(t, got[1].IsBot)

			got, err = store.Recent(ctx, "u1", 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "hello", got[0].Content)

			got, err = store.Recent(ctx, "nobody", 10)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestMessageRepository_CapsHistory(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range messageStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < MaxHistoryPerAccount+5; i++ {
				m := &domain.Message{AccountID: "u1", Content: fmt.Sprintf("m%d", i), Timestamp: now}
				require.NoError(t, store.Append(ctx, m))
			}

			got, err := store.Recent(ctx, "u1", 0)
			require.NoError(t, err)
			require.Len(t, got, MaxHistoryPerAccount)
			assert.Equal(t, "m5", got[0].Content)
		})
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-assistant-server/internal/domain"
	"chat-assistant-server/internal/quota"
	"chat-assistant-server/internal/repository"
)

func newChatFixture(t *testing.T, responder domain.Responder) (*ChatService, *gateFixture, *repository.MemoryMessageRepository) {
	t.Helper()
	f := newGateFixture(t, day(2024, 5, 1, 12, 0))
	history := repository.NewMemoryMessageRepository()
	return NewChatService(f.gate, responder, history, NewMockLogger(), f.metrics), f, history
}

func TestChatService_Send_PlainMessage(t *testing.T) {
	responder := &mockResponder{reply: "hi there"}
	chat, f, history := newChatFixture(t, responder)
	f.seed(t, nil)

	res, err := chat.Send(context.Background(), "u1", plainAction)
	require.NoError(t, err)
	assert.True(t, res.Decision.Allowed)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "hi there", res.Reply.Text)
	assert.Equal(t, 6, res.Remaining)

	msgs, err := history.Recent(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.False(t, msgs[0].IsBot)
	assert.Equal(t, "hi there", msgs[1].Content)
	assert.True(t, msgs[1].IsBot)
}

func TestChatService_Send_RejectedSkipsResponder(t *testing.T) {
	responder := &mockResponder{reply: "unused"}
	chat, f, history := newChatFixture(t, responder)
	now := f.clock.Now()
	f.seed(t, func(a *domain.Account) {
		a.DailyMessageCount = 7
		a.LastMessageDate = now
	})

	res, err := chat.Send(context.Background(), "u1", plainAction)
	require.NoError(t, err)
	assert.False(t, res.Decision.Allowed)
	assert.Equal(t, domain.ReasonQuotaExceeded, res.Decision.Reason)
	assert.Nil(t, res.Reply)
	assert.Equal(t, 0, res.Remaining)
	assert.Empty(t, responder.prompts)

	msgs, err := history.Recent(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestChatService_Send_RemainingUsesDecisionInstant(t *testing.T) {
	beforeMidnight := day(2024, 5, 1, 23, 59)
	clk := &steppingClock{readings: []time.Time{beforeMidnight, day(2024, 5, 2, 0, 1)}}
	store := repository.NewMemoryAccountRepository()
	gate := NewGateService(store, clk, quota.NewPolicy(quota.DefaultDailyLimit, time.UTC), 3, NewMockLogger(), nil)
	chat := NewChatService(gate, &mockResponder{reply: "ok"}, repository.NewMemoryMessageRepository(), NewMockLogger(), nil)

	acc := domain.NewAccount("u1", "u1@example.com", "User", beforeMidnight)
	require.NoError(t, store.Create(context.Background(), &acc))
	acc.DailyMessageCount = 6
	acc.LastMessageDate = beforeMidnight
	require.NoError(t, store.Save(context.Background(), &acc))

	// The day rolls over between the gate decision and building the result.
	res, err := chat.Send(context.Background(), "u1", plainAction)
	require.NoError(t, err)
	assert.True(t, res.Decision.Allowed)
	assert.True(t, res.Decision.DecidedAt.Equal(beforeMidnight))
	assert.Equal(t, 7, res.Decision.Account.DailyMessageCount)
	assert.Equal(t, 0, res.Remaining)
}

func TestChatService_Send_ImageForPremium(t *testing.T) {
	responder := &mockResponder{imageURL: "https://img.example/cat.png"}
	chat, f, history := newChatFixture(t, responder)
	f.seed(t, func(a *domain.Account) { a.IsPremium = true })

	res, err := chat.Send(context.Background(), "u1", imageAction)
	require.NoError(t, err)
	require.NotNil(t, res.Reply)
	assert.Equal(t, "https://img.example/cat.png", res.Reply.ImageURL)
	assert.Equal(t, -1, res.Remaining)

	msgs, err := history.Recent(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "https://img.example/cat.png", msgs[1].Content)
}

func TestChatService_Send_ResponderFailureKeepsQuotaSpent(t *testing.T) {
	responder := &mockResponder{err: domain.ErrResponderUnavailable}
	chat, f, _ := newChatFixture(t, responder)
	f.seed(t, nil)

	_, err := chat.Send(context.Background(), "u1", plainAction)
	assert.True(t, errors.Is(err, domain.ErrResponderUnavailable))
	assert.Equal(t, 1, f.stored(t).DailyMessageCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ResponderCalls.WithLabelValues("plain-message", "error")))
}

func TestChatService_History(t *testing.T) {
	chat, _, history := newChatFixture(t, NewCannedResponder())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, history.Append(context.Background(), &domain.Message{AccountID: "u1", Content: "m", Timestamp: now}))
	}

	msgs, err := chat.History(context.Background(), "u1", 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	msgs, err = chat.History(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestCannedResponder(t *testing.T) {
	r := NewCannedResponder()

	reply, err := r.Reply(context.Background(), "  שלום ")
	require.NoError(t, err)
	assert.Equal(t, "היי! איך אני יכול לעזור?", reply)

	reply, err = r.Reply(context.Background(), "something else")
	require.NoError(t, err)
	assert.Equal(t, "זו תגובה מעניינת! ספר לי עוד...", reply)

	img, err := r.GenerateImage(context.Background(), "חתול")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionImageGeneration, img.Kind)
	assert.Contains(t, img.Text, "חתול")
}

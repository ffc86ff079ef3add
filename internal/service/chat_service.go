package service

import (
	"context"
	"fmt"

	"chat-assistant-server/internal/domain"
	"chat-assistant-server/internal/metrics"
)

// DefaultHistoryLimit is the page size for history reads without a limit.
const DefaultHistoryLimit = 50

// ChatService runs a message through the gate, asks the responder for the
// payload and records the exchange.
type ChatService struct {
	gate      *GateService
	responder domain.Responder
	history   domain.MessageRepository
	logger    domain.Logger
	metrics   *metrics.Metrics
}

func NewChatService(
	gate *GateService,
	responder domain.Responder,
	history domain.MessageRepository,
	logger domain.Logger,
	m *metrics.Metrics,
) *ChatService {
	return &ChatService{
		gate:      gate,
		responder: responder,
		history:   history,
		logger:    logger,
		metrics:   m,
	}
}

// Send submits one action. Quota is consumed once the gate allows it, even
// if the responder then fails.
func (s *ChatService) Send(ctx context.Context, identityID string, action domain.Action) (*domain.ChatResult, error) {
	decision, err := s.gate.SubmitAction(ctx, identityID, action)
	if err != nil {
		return nil, err
	}

	result := &domain.ChatResult{
		Decision:  *decision,
		Remaining: s.gate.Policy().Remaining(decision.Account, decision.DecidedAt),
	}
	if !decision.Allowed {
		return result, nil
	}

	reply, err := s.respond(ctx, action)
	s.observe(action.Kind, err)
	if err != nil {
		s.logger.Error("Responder failed", err, "account_id", identityID, "kind", action.Kind)
		return nil, err
	}
	result.Reply = reply

	s.record(ctx, identityID, action, reply)
	return result, nil
}

// History returns the most recent messages for the identity, oldest first.
func (s *ChatService) History(ctx context.Context, identityID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	messages, err := s.history.Recent(ctx, identityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return messages, nil
}

func (s *ChatService) respond(ctx context.Context, action domain.Action) (*domain.Reply, error) {
	if action.Kind == domain.ActionImageGeneration {
		return s.responder.GenerateImage(ctx, action.Content)
	}
	text, err := s.responder.Reply(ctx, action.Content)
	if err != nil {
		return nil, err
	}
	return &domain.Reply{Kind: domain.ActionPlainMessage, Text: text}, nil
}

// record stores the exchange. A history failure does not undo the reply.
func (s *ChatService) record(ctx context.Context, identityID string, action domain.Action, reply *domain.Reply) {
	now := s.gate.Now()
	botContent := reply.Text
	if reply.ImageURL != "" {
		botContent = reply.ImageURL
	}

	err := s.history.Append(ctx,
		&domain.Message{AccountID: identityID, Content: action.Content, IsBot: false, Timestamp: now},
		&domain.Message{AccountID: identityID, Content: botContent, IsBot: true, Timestamp: now},
	)
	if err != nil {
		s.logger.Error("Failed to save message history", err, "account_id", identityID)
	}
}

func (s *ChatService) observe(kind domain.ActionKind, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ResponderCalls.WithLabelValues(string(kind), status).Inc()
}

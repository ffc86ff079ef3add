package domain

import (
	"context"
	"strings"
	"time"
)

// Message is one entry of an account's conversation history.
type Message struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Content   string    `json:"content"`
	IsBot     bool      `json:"is_bot"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply is the payload produced for an allowed action.
type Reply struct {
	Kind     ActionKind `json:"kind"`
	Text     string     `json:"text"`
	ImageURL string     `json:"image_url,omitempty"`
}

// MessageRepository persists conversation history.
type MessageRepository interface {
	Append(ctx context.Context, messages ...*Message) error
	// Recent returns up to limit messages for the account, oldest first.
	Recent(ctx context.Context, accountID string, limit int) ([]*Message, error)
}

// Responder produces bot output for allowed actions.
type Responder interface {
	Reply(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (*Reply, error)
}

// ChatRequest is the HTTP body for submitting a message.
type ChatRequest struct {
	Content string     `json:"content" validate:"required,max=1000"`
	Kind    ActionKind `json:"kind,omitempty" validate:"omitempty,oneof=plain-message image-generation"`
}

// ChatResponse is returned for an allowed message.
type ChatResponse struct {
	Response  string     `json:"response"`
	Kind      ActionKind `json:"kind"`
	ImageURL  string     `json:"image_url,omitempty"`
	Remaining *int       `json:"remaining,omitempty"`
}

// ImageCommandPrefix ("create image") turns a message into an image request
// for clients that do not send an explicit kind.
const ImageCommandPrefix = "צור תמונה"

// Action converts the request into a tagged action. An explicit kind wins;
// otherwise the image prefix is recognised and stripped from the prompt.
func (r ChatRequest) Action() Action {
	if r.Kind != "" {
		return Action{Kind: r.Kind, Content: r.Content}
	}
	if rest, ok := strings.CutPrefix(r.Content, ImageCommandPrefix); ok {
		if prompt := strings.TrimSpace(rest); prompt != "" {
			return Action{Kind: ActionImageGeneration, Content: prompt}
		}
	}
	return Action{Kind: ActionPlainMessage, Content: r.Content}
}

// ChatResult is the outcome of one message submission. Reply is nil when the
// gate rejected the action. Remaining is -1 for premium accounts.
type ChatResult struct {
	Decision  Decision
	Reply     *Reply
	Remaining int
}

// ChatService handles message submission and history reads.
type ChatService interface {
	Send(ctx context.Context, identityID string, action Action) (*ChatResult, error)
	History(ctx context.Context, identityID string, limit int) ([]*Message, error)
}

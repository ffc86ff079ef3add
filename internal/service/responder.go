package service

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/sashabaranov/go-openai"

	"chat-assistant-server/internal/domain"
)

const botSystemPrompt = "You are a friendly chat assistant. Answer briefly and in the language the user writes in."

// CannedResponder answers from a fixed table. It is the default when no
// model provider is configured.
type CannedResponder struct {
	replies  map[string]string
	fallback string
}

func NewCannedResponder() *CannedResponder {
	return &CannedResponder{
		replies: map[string]string{
			"שלום":     "היי! איך אני יכול לעזור?",
			"מה שלומך": "מצוין! תודה ששאלת!",
			"hello":    "Hi! How can I help?",
		},
		fallback: "זו תגובה מעניינת! ספר לי עוד...",
	}
}

func (r *CannedResponder) Reply(ctx context.Context, prompt string) (string, error) {
	if reply, ok := r.replies[strings.ToLower(strings.TrimSpace(prompt))]; ok {
		return reply, nil
	}
	return r.fallback, nil
}

func (r *CannedResponder) GenerateImage(ctx context.Context, prompt string) (*domain.Reply, error) {
	return &domain.Reply{
		Kind: domain.ActionImageGeneration,
		Text: "תמונה נוצרה בהצלחה לפי התיאור: " + prompt,
	}, nil
}

// OpenAIResponder uses chat completions for text and DALL-E for images.
type OpenAIResponder struct {
	client *openai.Client
	model  string
	logger domain.Logger
}

func NewOpenAIResponder(apiKey, model string, logger domain.Logger) *OpenAIResponder {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIResponder{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

func (r *OpenAIResponder) Reply(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: botSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai chat: %v", domain.ErrResponderUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response from model", domain.ErrResponderUnavailable)
	}
	r.logger.Debug("OpenAI reply", "model", r.model, "tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

func (r *OpenAIResponder) GenerateImage(ctx context.Context, prompt string) (*domain.Reply, error) {
	resp, err := r.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai image: %v", domain.ErrResponderUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no image returned", domain.ErrResponderUnavailable)
	}
	return &domain.Reply{
		Kind:     domain.ActionImageGeneration,
		Text:     resp.Data[0].RevisedPrompt,
		ImageURL: resp.Data[0].URL,
	}, nil
}

// GeminiResponder answers through Vertex AI. Gemini text models cannot
// render images, so image requests get a written description instead.
type GeminiResponder struct {
	client *genai.Client
	model  string
	logger domain.Logger
}

func NewGeminiResponder(ctx context.Context, projectID, location string, logger domain.Logger) (*GeminiResponder, error) {
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}
	return &GeminiResponder{client: client, model: "gemini-2.0-flash-001", logger: logger}, nil
}

func (r *GeminiResponder) Close() error {
	return r.client.Close()
}

func (r *GeminiResponder) Reply(ctx context.Context, prompt string) (string, error) {
	return r.generate(ctx, prompt)
}

func (r *GeminiResponder) GenerateImage(ctx context.Context, prompt string) (*domain.Reply, error) {
	text, err := r.generate(ctx, "Describe, vividly and in a few sentences, an image of: "+prompt)
	if err != nil {
		return nil, err
	}
	return &domain.Reply{Kind: domain.ActionImageGeneration, Text: text}, nil
}

func (r *GeminiResponder) generate(ctx context.Context, prompt string) (string, error) {
	model := r.client.GenerativeModel(r.model)
	model.SetTemperature(0.7)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(botSystemPrompt)}}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini call failed: %v", domain.ErrResponderUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from model", domain.ErrResponderUnavailable)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

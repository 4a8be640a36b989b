// Package airesponder generates automated chat replies through the OpenAI
// chat completion API, primed with the account's recent conversation.
package airesponder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/JaraLowell/RadeWeb-sub002/errors"
	"github.com/JaraLowell/RadeWeb-sub002/message"
)

const defaultSystemPrompt = "You are the greeter for this virtual world account. " +
	"Reply briefly and in character to nearby chat. " +
	"Do not reveal that you are automated unless asked directly."

// Config holds responder configuration.
type Config struct {
	APIKey       string // Empty disables the responder
	Model        string // Default gpt-4o-mini
	SystemPrompt string // Default defaultSystemPrompt
	MaxHistory   int    // History messages sent as context (default 10)
}

// completionClient is the slice of the OpenAI client used, extracted for
// testing.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Responder implements collab.AutoResponder.
type Responder struct {
	client     completionClient
	model      string
	prompt     string
	maxHistory int
	logger     *slog.Logger
}

// New creates a responder. With an empty API key the responder reports
// itself disabled and is never consulted by the pipeline.
func New(cfg Config, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 10
	}

	r := &Responder{
		model:      cfg.Model,
		prompt:     cfg.SystemPrompt,
		maxHistory: cfg.MaxHistory,
		logger:     logger.With("component", "airesponder"),
	}
	if cfg.APIKey != "" {
		r.client = openai.NewClient(cfg.APIKey)
	}
	return r
}

// Enabled implements collab.AutoResponder.
func (r *Responder) Enabled() bool { return r.client != nil }

// Respond implements collab.AutoResponder. The history arrives
// most-recent-first and is replayed to the model oldest-first.
func (r *Responder) Respond(ctx context.Context, msg message.ChatMessage, history []message.ChatMessage) (string, error) {
	if r.client == nil {
		return "", nil
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: r.prompt},
	}

	recent := history
	if len(recent) > r.maxHistory {
		recent = recent[:r.maxHistory]
	}
	for i := len(recent) - 1; i >= 0; i-- {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("%s: %s", recent[i].FromName, recent[i].Text),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("%s: %s", msg.FromName, msg.Text),
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		return "", errors.WrapTransient(err, "Responder", "Respond", "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrEmptyReply = errors.New("ai: empty reply")

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, system string, turns []models.ChatTurn) (string, error)
}

type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI returns nil when no key is set so callers fall back to their
// deterministic answers.
func NewOpenAI(apiKey, model string) *OpenAI {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: 8 * time.Second,
	}
}

func (o *OpenAI) Complete(ctx context.Context, system string, turns []models.ChatTurn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)}
	for _, t := range turns {
		if t.Role == "friend" || t.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(t.Content))
			continue
		}
		messages = append(messages, openai.UserMessage(t.Content))
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		MaxTokens:   openai.Int(220),
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

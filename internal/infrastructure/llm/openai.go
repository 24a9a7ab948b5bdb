// Package llm implements the language-model gateway over any
// OpenAI-compatible chat-completion API.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/matthewd-so/The-Game-Gazette/internal/config"
	"github.com/matthewd-so/The-Game-Gazette/internal/ports"
)

// Client is the thin transport to the text-generation model. It performs
// no retries and no output validation; callers own both, since the two
// call sites use different schemas and recovery strategies.
type Client struct {
	api          *openai.Client
	defaultModel string
}

var _ ports.TextGenerator = (*Client)(nil)

// New builds a gateway from configuration. The API key and base URL are
// supplied here so tests can point the client at a double without touching
// the environment.
func New(cfg config.LLMConfig) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:          openai.NewClientWithConfig(apiCfg),
		defaultModel: cfg.WriterModel,
	}
}

// Generate sends one persona prompt plus one task prompt and returns the
// generated text with its token-usage counters.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ports.GenerationOptions) (ports.Generation, error) {
	model := opts.Model
	if model == "" {
		model = c.defaultModel
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return ports.Generation{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ports.Generation{}, fmt.Errorf("chat completion: model %s returned no choices", model)
	}

	return ports.Generation{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Model:            resp.Model,
	}, nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/kevinmichaelchen/star-sync/internal/models"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient classifies repos through the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a classifier for the Anthropic API. An empty
// baseURL uses the SDK default; OpenAI model names fall back to a Claude model.
func NewAnthropicClient(baseURL, apiKey, model string) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" && !strings.Contains(baseURL, "openai.com") {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (c *AnthropicClient) Classify(ctx context.Context, batch []models.ClassifyInput) ([]models.Metadata, error) {
	userMsg, err := userMessage(batch)
	if err != nil {
		return nil, err
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: anthropic.Float(0.2),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &Error{Provider: "anthropic", Status: apiErr.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("LLM call: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no text returned for batch of %d", len(batch))
	}

	return ParseMetadata(text.String())
}

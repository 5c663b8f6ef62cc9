package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kevinmichaelchen/star-sync/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// Client classifies repos through an OpenAI-compatible chat completions API.
type Client struct {
	client *openai.Client
	model  string
}

func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const systemPrompt = `You are a senior developer-relations engineer. You label GitHub repositories with tags and a technology-stack summary for search in a personal knowledge base.`

const instructions = `Below is a batch of GitHub repositories. Return a JSON array whose items look like:
{ "id": "repository id as a string", "tags": ["Tag A", "Tag B"], "technologies": ["Tech A", "Tech B"] }
Rules:
1) At most 4 tags, focused on the problem domain.
2) At most 5 technologies, focused on the core stack.
3) If information is thin, infer from the language and description.
4) Output JSON only. No comments, no prose, no code fences.`

// Classify sends one batch and returns the labels the model produced. Any
// transport error, empty reply or non-array payload is returned as an error.
func (c *Client) Classify(ctx context.Context, batch []models.ClassifyInput) ([]models.Metadata, error) {
	userMsg, err := userMessage(batch)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		// No ResponseFormat: json_object mode cannot return a top-level array.
		Temperature: 0.2,
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned for batch of %d", len(batch))
	}

	return ParseMetadata(resp.Choices[0].Message.Content)
}

func userMessage(batch []models.ClassifyInput) (string, error) {
	payload, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding batch: %w", err)
	}
	return instructions + "\n\n" + string(payload), nil
}

// ParseMetadata decodes a model reply into metadata items. The reply must be
// a JSON array, optionally wrapped in markdown code fences.
func ParseMetadata(content string) ([]models.Metadata, error) {
	content = stripCodeFences(content)

	var items []rawMetadata
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("parsing LLM response: %w\nraw: %s", err, content)
	}
	if items == nil {
		return nil, fmt.Errorf("parsing LLM response: expected a JSON array, got %q", content)
	}

	out := make([]models.Metadata, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		out = append(out, models.Metadata{
			ID:           string(it.ID),
			Tags:         []string(it.Tags),
			Technologies: []string(it.Technologies),
		})
	}
	if len(items) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("parsing LLM response: none of %d items has an id", len(items))
	}
	return out, nil
}

type rawMetadata struct {
	ID           flexString `json:"id"`
	Tags         labelList  `json:"tags"`
	Technologies labelList  `json:"technologies"`
}

// flexString accepts a JSON string or number; models often echo numeric ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

// labelList accepts an array of scalars. Anything that is not an array
// decodes to an empty list so the caller's fallback applies.
type labelList []string

func (l *labelList) UnmarshalJSON(b []byte) error {
	var items []any
	if err := json.Unmarshal(b, &items); err != nil {
		*l = nil
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			out = append(out, v)
		case float64, bool:
			out = append(out, fmt.Sprint(v))
		}
	}
	*l = out
	return nil
}

// stripCodeFences removes markdown code fences that some models wrap around JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove opening fence (```json or ```)
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
		// Remove closing fence
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// Error is a failed call to an LLM provider that reached the HTTP layer.
type Error struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s API returned %d: %v", e.Provider, e.Status, e.Err)
}

func (e *Error) Unwrap() error    { return e.Err }
func (e *Error) HTTPStatus() int  { return e.Status }
func (e *Error) HTTPBody() string { return e.Body }

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Provider: "openai", Status: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Provider: "openai", Status: reqErr.HTTPStatusCode, Err: err}
	}
	return fmt.Errorf("LLM call: %w", err)
}

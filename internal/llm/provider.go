package llm

import (
	"fmt"

	"github.com/kevinmichaelchen/star-sync/internal/config"
	"github.com/kevinmichaelchen/star-sync/internal/enrich"
)

// NewClassifier returns the classifier for cfg.LLMProvider, or nil when AI
// is unavailable (disabled or no key).
func NewClassifier(cfg *config.Config) (enrich.Classifier, error) {
	if !cfg.AIAvailable() {
		return nil, nil
	}
	switch cfg.LLMProvider {
	case "openai", "":
		return NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel), nil
	case "anthropic":
		return NewAnthropicClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

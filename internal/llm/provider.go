// Package llm adapts chat completion backends to one provider-agnostic
// interface. Each adapter owns its backend's role naming and request shape.
package llm

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/config"
	"github.com/raphaelgruber/campusdesk/internal/models"
)

// Request is a complete, provider-agnostic completion request.
type Request struct {
	// System is the fixed instruction placed ahead of the conversation.
	System string

	// Turns holds history followed by the new user turn, in order.
	// Roles are user or assistant only.
	Turns []models.Turn

	MaxTokens   int
	Temperature float64
}

// Completion is the provider's reply.
type Completion struct {
	Text  string
	Usage *models.Usage
}

// Provider generates a single completion for a conversation.
type Provider interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Complete sends the request and returns the reply text.
	// Errors are classified into apperr codes.
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// NewProvider creates the adapter selected by cfg.LLMProvider.
// Returns an apperr CONFIG_MISSING error when the backend's credential is absent.
func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, apperr.ConfigMissing("OpenAI API key not configured")
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.LLMModel)

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, apperr.ConfigMissing("Anthropic API key not configured")
		}
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.LLMModel)

	case config.ProviderOllama:
		return NewOllama(cfg.OllamaHost, cfg.LLMModel)

	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, apperr.ConfigMissing("Gemini API key not configured")
		}
		return NewGemini(cfg.GeminiAPIKey, cfg.LLMModel, cfg.GeminiBaseURL, nil), nil

	case config.ProviderBedrock:
		return NewBedrock(ctx, cfg.AWSRegion, cfg.LLMModel)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/config"
	"github.com/raphaelgruber/campusdesk/internal/llm"
	"github.com/raphaelgruber/campusdesk/internal/metrics"
	"github.com/raphaelgruber/campusdesk/internal/models"
)

// Reply is the result of one conversation exchange.
type Reply struct {
	Text  string
	Usage *models.Usage
}

// ChatService forwards a message and its client-held history to a
// completion provider. It keeps no conversation state between calls.
type ChatService struct {
	provider llm.Provider
	cfg      config.ChatConfig
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewChatService creates a conversation proxy. A nil provider is allowed;
// every Respond then fails with CONFIG_MISSING.
func NewChatService(provider llm.Provider, cfg config.ChatConfig, logger *slog.Logger, mc *metrics.Collector) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := config.DefaultChatConfig()
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaults.SystemPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaults.MaxHistory
	}
	return &ChatService{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		metrics:  mc,
	}
}

// Configured reports whether a provider is available.
func (s *ChatService) Configured() bool {
	return s.provider != nil
}

// Respond sends [system, history..., {user, message}] to the provider and
// returns its reply. Input is validated before any provider call.
func (s *ChatService) Respond(ctx context.Context, message string, history []models.Turn) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("Message is required")
	}
	if s.provider == nil {
		return nil, apperr.ConfigMissing("Chat provider API key not configured")
	}
	if err := s.validateHistory(history); err != nil {
		return nil, err
	}

	turns := make([]models.Turn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, models.Turn{Role: models.RoleUser, Content: message})

	req := llm.Request{
		System:      s.cfg.SystemPrompt,
		Turns:       turns,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	start := time.Now()
	completion, err := s.provider.Complete(ctx, req)
	elapsed := time.Since(start)
	if err == nil && strings.TrimSpace(completion.Text) == "" {
		err = llm.Classify(fmt.Errorf("%s returned an empty reply", s.provider.Name()))
	}
	if err != nil {
		s.metrics.RecordTiming(metrics.OpLLMChat, elapsed, err)
		s.logger.Warn("chat completion failed",
			"provider", s.provider.Name(),
			"code", apperr.CodeOf(err),
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return nil, err
	}

	var in, out int64
	if u := completion.Usage; u != nil {
		in, out = int64(u.PromptTokens), int64(u.CompletionTokens)
	}
	s.metrics.RecordLLMUsage(metrics.OpLLMChat, elapsed, in, out)
	s.logger.Info("chat completion",
		"provider", s.provider.Name(),
		"history", len(history),
		"duration_ms", elapsed.Milliseconds(),
		"input_tokens", in,
		"output_tokens", out)

	return &Reply{Text: completion.Text, Usage: completion.Usage}, nil
}

func (s *ChatService) validateHistory(history []models.Turn) error {
	if len(history) > s.cfg.MaxHistory {
		return apperr.Validation(fmt.Sprintf("conversation history exceeds %d turns", s.cfg.MaxHistory))
	}
	for i, t := range history {
		if !t.Role.Valid() {
			return apperr.Validation(fmt.Sprintf("history turn %d has invalid role %q", i, t.Role))
		}
		if strings.TrimSpace(t.Content) == "" {
			return apperr.Validation(fmt.Sprintf("history turn %d has empty content", i))
		}
	}
	return nil
}

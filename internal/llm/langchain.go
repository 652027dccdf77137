package llm

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel adapts a langchaingo chat model (chat-completion style:
// system, user and assistant messages in one list).
type ChatModel struct {
	llm       llms.Model
	name      string
	modelName string
}

// Compile-time check that ChatModel implements Provider.
var _ Provider = (*ChatModel)(nil)

// NewChatModel wraps an existing langchaingo model.
func NewChatModel(name, modelName string, model llms.Model) *ChatModel {
	return &ChatModel{llm: model, name: name, modelName: modelName}
}

// NewOpenAI creates the OpenAI chat-completions adapter.
func NewOpenAI(apiKey, model string) (*ChatModel, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return NewChatModel("openai", model, llm), nil
}

// NewAnthropic creates the Anthropic messages adapter.
func NewAnthropic(apiKey, model string) (*ChatModel, error) {
	llm, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create anthropic model: %w", err)
	}
	return NewChatModel("anthropic", model, llm), nil
}

// NewOllama creates an adapter for a local Ollama server.
func NewOllama(host, model string) (*ChatModel, error) {
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return NewChatModel("ollama", model, llm), nil
}

// Name returns the backend name.
func (m *ChatModel) Name() string {
	return m.name
}

// Complete sends the conversation as one chat request.
func (m *ChatModel) Complete(ctx context.Context, req Request) (*Completion, error) {
	messages := chatMessages(req)

	resp, err := m.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(req.MaxTokens),
		llms.WithTemperature(req.Temperature),
	)
	if err != nil {
		return nil, Classify(fmt.Errorf("%s generate: %w", m.name, err))
	}
	if len(resp.Choices) == 0 {
		return nil, Classify(fmt.Errorf("%s generate: no response choices", m.name))
	}

	choice := resp.Choices[0]
	return &Completion{
		Text:  choice.Content,
		Usage: usageFromGenerationInfo(choice.GenerationInfo),
	}, nil
}

// chatMessages maps the conversation onto langchaingo message types.
func chatMessages(req Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, t := range req.Turns {
		role := llms.ChatMessageTypeHuman
		if t.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, t.Content))
	}
	return messages
}

// usageFromGenerationInfo reads token counts. OpenAI and Ollama report
// Prompt/Completion/TotalTokens, Anthropic reports Input/OutputTokens.
func usageFromGenerationInfo(info map[string]any) *models.Usage {
	if len(info) == 0 {
		return nil
	}
	prompt, okP := intField(info, "PromptTokens", "InputTokens")
	completion, okC := intField(info, "CompletionTokens", "OutputTokens")
	if !okP && !okC {
		return nil
	}
	total, ok := intField(info, "TotalTokens")
	if !ok {
		total = prompt + completion
	}
	return &models.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

func intField(info map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v, true
		case int32:
			return int(v), true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		}
	}
	return 0, false
}

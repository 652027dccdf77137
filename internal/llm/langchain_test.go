package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/raphaelgruber/campusdesk/internal/apperr"
	"github.com/raphaelgruber/campusdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel records the last request and returns a canned response.
type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func testRequest() Request {
	return Request{
		System: "be helpful",
		Turns: []models.Turn{
			{Role: models.RoleUser, Content: "hi"},
			{Role: models.RoleAssistant, Content: "hello!"},
			{Role: models.RoleUser, Content: "when is the exam?"},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	}
}

func TestChatModelComplete(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "Friday at 9.",
		GenerationInfo: map[string]any{"PromptTokens": 21, "CompletionTokens": 4, "TotalTokens": 25},
	}}}}
	m := NewChatModel("openai", "gpt-3.5-turbo", fake)

	got, err := m.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Friday at 9.", got.Text)
	require.NotNil(t, got.Usage)
	assert.Equal(t, models.Usage{PromptTokens: 21, CompletionTokens: 4, TotalTokens: 25}, *got.Usage)

	require.Len(t, fake.messages, 4)
	wantRoles := []llms.ChatMessageType{
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeHuman,
	}
	for i, msg := range fake.messages {
		assert.Equal(t, wantRoles[i], msg.Role, "message %d", i)
	}
	assert.Equal(t, llms.TextContent{Text: "when is the exam?"}, fake.messages[3].Parts[0])

	assert.Equal(t, 500, fake.opts.MaxTokens)
	assert.InDelta(t, 0.7, fake.opts.Temperature, 1e-9)
}

func TestChatModelAnthropicUsageKeys(t *testing.T) {
	usage := usageFromGenerationInfo(map[string]any{"InputTokens": 10, "OutputTokens": 5})
	require.NotNil(t, usage)
	assert.Equal(t, models.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, *usage)

	assert.Nil(t, usageFromGenerationInfo(nil))
	assert.Nil(t, usageFromGenerationInfo(map[string]any{"StopReason": "stop"}))
}

func TestChatModelErrors(t *testing.T) {
	t.Run("provider error is classified", func(t *testing.T) {
		fake := &fakeModel{err: errors.New("API returned unexpected status code: 429: You exceeded your current quota")}
		_, err := NewChatModel("openai", "m", fake).Complete(context.Background(), testRequest())
		assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	})

	t.Run("no choices", func(t *testing.T) {
		fake := &fakeModel{resp: &llms.ContentResponse{}}
		_, err := NewChatModel("openai", "m", fake).Complete(context.Background(), testRequest())
		assert.ErrorIs(t, err, apperr.ErrProviderFailed)
	})
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/models"
)

// geminiRoleModel is Gemini's name for the assistant role.
const geminiRoleModel = "model"

// DefaultGeminiBaseURL is the public Generative Language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient is the turn-based chat-session adapter for the Gemini
// generateContent API. History is sent as contents with roles "user" and
// "model", each carrying its text in a parts list.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Compile-time check that GeminiClient implements Provider.
var _ Provider = (*GeminiClient)(nil)

// NewGemini creates a Gemini adapter. An empty baseURL uses the public
// endpoint; a nil httpClient uses one with a 60s timeout.
func NewGemini(apiKey, model, baseURL string, httpClient *http.Client) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// GeminiError is an error response from the Gemini API.
type GeminiError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *GeminiError) Error() string {
	return fmt.Sprintf("gemini API error (status %d %s): %s", e.StatusCode, e.Status, e.Message)
}

// Name returns the backend name.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Complete sends the conversation to generateContent.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	body, err := json.Marshal(geminiRequestFor(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, Classify(fmt.Errorf("gemini request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, Classify(parseGeminiError(resp.StatusCode, respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, Classify(fmt.Errorf("decode gemini response: %w", err))
	}
	if len(result.Candidates) == 0 {
		return nil, Classify(fmt.Errorf("gemini returned no candidates"))
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	completion := &Completion{Text: text.String()}
	if u := result.UsageMetadata; u != nil {
		completion.Usage = &models.Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return completion, nil
}

// geminiRequestFor renames roles and nests each turn's text in parts.
func geminiRequestFor(req Request) geminiRequest {
	out := geminiRequest{
		Contents: make([]geminiContent, 0, len(req.Turns)),
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}
	if req.System != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, t := range req.Turns {
		out.Contents = append(out.Contents, geminiContent{
			Role:  geminiRole(t.Role),
			Parts: []geminiPart{{Text: t.Content}},
		})
	}
	return out
}

func geminiRole(r models.Role) string {
	if r == models.RoleAssistant {
		return geminiRoleModel
	}
	return string(models.RoleUser)
}

func parseGeminiError(statusCode int, body []byte) *GeminiError {
	gErr := &GeminiError{StatusCode: statusCode}
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		gErr.Status = envelope.Error.Status
		gErr.Message = envelope.Error.Message
		return gErr
	}
	gErr.Message = strings.TrimSpace(string(body))
	return gErr
}

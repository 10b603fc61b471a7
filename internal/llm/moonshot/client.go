package moonshot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"coverage-backend/internal/llm"
	"coverage-backend/internal/shared/telemetry"
)

// Moonshot exposes an OpenAI-compatible chat completion API.
const (
	ProviderID     = "moonshot"
	DefaultModel   = "moonshot-v1-128k"
	defaultBaseURL = "https://api.moonshot.ai/v1"
)

// Client calls the Moonshot chat completion API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a Moonshot client. The API key is required.
// MOONSHOT_BASE_URL overrides the endpoint for testing.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("moonshot: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = defaultBaseURL
	if override := strings.TrimSpace(os.Getenv("MOONSHOT_BASE_URL")); override != "" {
		cfg.BaseURL = override
	}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (c *Client) ID() string { return ProviderID }

func (c *Client) Model() string { return c.model }

// AnalyzeScript performs a single-shot analysis call.
func (c *Client) AnalyzeScript(ctx context.Context, req llm.AnalyzeRequest) (map[string]any, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = llm.DefaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, llm.CallTimeout(maxTokens))
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.SystemContext},
			{Role: openai.ChatMessageRoleUser, Content: llm.ComposeUserMessage(req.Prompt, req.ScriptText)},
		},
	}
	if req.ExpectJSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(callCtx, chatReq)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.Error{Provider: ProviderID, Kind: llm.KindServer, Message: "empty choices in response"}
	}

	usage := llm.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if llm.LikelyTruncated(usage, maxTokens) {
		return nil, &llm.Error{
			Provider: ProviderID,
			Kind:     llm.KindTruncated,
			Message:  fmt.Sprintf("completion used %d of %d tokens", usage.CompletionTokens, maxTokens),
		}
	}

	result, err := llm.DecodeStructured(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, &llm.Error{Provider: ProviderID, Kind: llm.KindParse, Message: err.Error(), Err: err}
	}

	telemetry.Info("llm.call_completed", map[string]any{
		"provider":          ProviderID,
		"model":             model,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"estimated_cost":    llm.EstimateCost(ProviderID, usage),
	})
	return result, nil
}

// AnalyzeChunked splits oversized scripts and synthesizes the partials.
func (c *Client) AnalyzeChunked(ctx context.Context, req llm.AnalyzeRequest, opts llm.ChunkOptions) (map[string]any, error) {
	return llm.RunChunked(ctx, c, req, opts)
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &llm.Error{Provider: ProviderID, Kind: llm.KindRateLimit, Status: apiErr.HTTPStatusCode, Message: msg, Err: err}
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return &llm.Error{Provider: ProviderID, Kind: llm.KindAuth, Status: apiErr.HTTPStatusCode, Message: msg, Err: err}
		case apiErr.HTTPStatusCode >= 500:
			return &llm.Error{Provider: ProviderID, Kind: llm.KindServer, Status: apiErr.HTTPStatusCode, Message: msg, Err: err}
		case llm.IsModerationText(msg):
			return &llm.Error{Provider: ProviderID, Kind: llm.KindModeration, Status: apiErr.HTTPStatusCode, Message: msg, Err: err}
		default:
			return &llm.Error{Provider: ProviderID, Kind: llm.KindBadRequest, Status: apiErr.HTTPStatusCode, Message: msg, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &llm.Error{Provider: ProviderID, Kind: llm.KindTransport, Message: "request deadline exceeded", Err: err}
	}
	return &llm.Error{Provider: ProviderID, Kind: llm.KindTransport, Message: err.Error(), Err: err}
}

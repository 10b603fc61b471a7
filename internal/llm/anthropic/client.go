package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"coverage-backend/internal/llm"
	"coverage-backend/internal/shared/telemetry"
)

const (
	ProviderID   = "anthropic"
	DefaultModel = "claude-3-5-sonnet-20241022"

	defaultAPIURL = "https://api.anthropic.com/v1/messages"
	apiVersion    = "2023-06-01"
)

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

// NewClient builds an Anthropic client. The API key is required.
// ANTHROPIC_BASE_URL overrides the endpoint for testing.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	apiURL := defaultAPIURL
	if override := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); override != "" {
		apiURL = strings.TrimRight(override, "/") + "/v1/messages"
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		apiURL:     apiURL,
		httpClient: &http.Client{},
	}, nil
}

func (c *Client) ID() string { return ProviderID }

func (c *Client) Model() string { return c.model }

type messageRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

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

	body, err := json.Marshal(messageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      llm.SystemContext,
		Messages: []chatMessage{
			{Role: "user", Content: llm.ComposeUserMessage(req.Prompt, req.ScriptText)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return nil, &llm.Error{Provider: ProviderID, Kind: llm.KindTransport, Message: "request deadline exceeded", Err: err}
		}
		return nil, &llm.Error{Provider: ProviderID, Kind: llm.KindTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &llm.Error{Provider: ProviderID, Kind: llm.KindTransport, Message: "read response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, payload)
	}

	var decoded messageResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &llm.Error{Provider: ProviderID, Kind: llm.KindParse, Message: "decode response envelope", Err: err}
	}
	if len(decoded.Content) == 0 {
		return nil, &llm.Error{Provider: ProviderID, Kind: llm.KindServer, Message: "empty content in response"}
	}

	usage := llm.Usage{
		PromptTokens:     decoded.Usage.InputTokens,
		CompletionTokens: decoded.Usage.OutputTokens,
		TotalTokens:      decoded.Usage.InputTokens + decoded.Usage.OutputTokens,
	}
	if decoded.StopReason == "max_tokens" || llm.LikelyTruncated(usage, maxTokens) {
		return nil, &llm.Error{
			Provider: ProviderID,
			Kind:     llm.KindTruncated,
			Message:  fmt.Sprintf("completion used %d of %d tokens (stop_reason %s)", usage.CompletionTokens, maxTokens, decoded.StopReason),
		}
	}

	// No native JSON output mode, so recover the object from the text.
	result, err := llm.DecodeStructured(decoded.Content[0].Text)
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

func classifyStatus(status int, payload []byte) error {
	var envelope errorResponse
	msg := strings.TrimSpace(string(payload))
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &llm.Error{Provider: ProviderID, Kind: llm.KindRateLimit, Status: status, Message: msg}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &llm.Error{Provider: ProviderID, Kind: llm.KindAuth, Status: status, Message: msg}
	case status >= 500:
		return &llm.Error{Provider: ProviderID, Kind: llm.KindServer, Status: status, Message: msg}
	case llm.IsModerationText(msg):
		return &llm.Error{Provider: ProviderID, Kind: llm.KindModeration, Status: status, Message: msg}
	default:
		return &llm.Error{Provider: ProviderID, Kind: llm.KindBadRequest, Status: status, Message: msg}
	}
}

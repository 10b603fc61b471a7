package llm

import (
	"context"
	"fmt"
)

// Tuning defaults shared by all providers.
const (
	DefaultTemperature   = 0.3
	SynthesisTemperature = 0.2
	DefaultMaxTokens     = 8000
)

// SystemContext frames every analysis call. Providers send it as the
// system message ahead of the composed user prompt.
const SystemContext = "You are a veteran screenplay coverage analyst. " +
	"You evaluate scripts for studios and production companies. " +
	"Respond with a single JSON object and no surrounding prose."

// AnalyzeRequest carries one analysis call to a provider.
type AnalyzeRequest struct {
	ScriptText  string
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
	ExpectJSON  bool
}

// Usage reports token consumption for a completed call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is a screenplay analysis provider. AnalyzeScript performs a
// single-shot call; AnalyzeChunked splits oversized scripts and
// synthesizes partial results into one report.
type Client interface {
	ID() string
	Model() string
	AnalyzeScript(ctx context.Context, req AnalyzeRequest) (map[string]any, error)
	AnalyzeChunked(ctx context.Context, req AnalyzeRequest, opts ChunkOptions) (map[string]any, error)
}

// ComposeUserMessage joins the analysis prompt with the script text in
// the layout every provider sends.
func ComposeUserMessage(prompt, scriptText string) string {
	return fmt.Sprintf("%s\n\nSCRIPT:\n%s", prompt, scriptText)
}

package analysis

import (
	"context"
	"errors"
	"fmt"

	"coverage-backend/internal/llm"
	"coverage-backend/internal/reports"
	"coverage-backend/internal/shared/metrics"
	"coverage-backend/internal/shared/telemetry"
)

// Context budget, in tokens, for deciding when a script needs chunking.
// The character budget converts the usable token window at roughly four
// characters per token.
const (
	CharsPerToken         = 4
	ContextLimitTokens    = 128000
	PromptReserveTokens   = 4000
	ResponseReserveTokens = 8000
	SafetyMarginTokens    = 10000

	DefaultCharBudget = (ContextLimitTokens - PromptReserveTokens - ResponseReserveTokens - SafetyMarginTokens) * CharsPerToken
)

// Request describes one analysis run.
type Request struct {
	ScriptText string
	Genre      string
	Comps      []string
	Depth      llm.Depth
}

// Pipeline orchestrates a coverage analysis: prompt assembly, provider
// selection with moderation fallback, normalization, and persistence.
type Pipeline struct {
	Primary    llm.Client
	Fallback   llm.Client
	Reports    reports.Repo
	CharBudget int
	ChunkOpts  llm.ChunkOptions
}

// Analyze runs the analysis and returns the normalized result plus the
// model that produced it. The primary provider is always tried first;
// the fallback is used only for moderation rejections.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (reports.NormalizedCoverage, string, error) {
	prompt, err := llm.BuildPrompt(req.Depth, req.Genre, req.Comps)
	if err != nil {
		return reports.NormalizedCoverage{}, "", err
	}

	analyzeReq := llm.AnalyzeRequest{
		ScriptText:  req.ScriptText,
		Prompt:      prompt,
		Temperature: llm.DefaultTemperature,
		MaxTokens:   llm.MaxTokensForDepth(req.Depth),
		ExpectJSON:  true,
	}

	raw, client, err := p.callWithFallback(ctx, analyzeReq)
	if err != nil {
		return reports.NormalizedCoverage{}, "", err
	}

	result, diags := reports.NormalizeResult(raw)
	if len(diags) > 0 {
		telemetry.Info("analysis.normalized_with_repairs", map[string]any{
			"provider":    client.ID(),
			"diagnostics": diags,
		})
	}
	return result, client.Model(), nil
}

func (p *Pipeline) callWithFallback(ctx context.Context, req llm.AnalyzeRequest) (map[string]any, llm.Client, error) {
	raw, err := p.call(ctx, p.Primary, req)
	if err == nil {
		return raw, p.Primary, nil
	}
	if !llm.IsModeration(err) || p.Fallback == nil {
		return nil, nil, err
	}

	primaryErr := err
	metrics.IncProviderFallback()
	telemetry.Info("analysis.provider_fallback", map[string]any{
		"primary":  p.Primary.ID(),
		"fallback": p.Fallback.ID(),
		"reason":   primaryErr.Error(),
	})

	raw, err = p.call(ctx, p.Fallback, req)
	if err != nil {
		return nil, nil, fmt.Errorf("primary rejected (%v); fallback failed: %w", primaryErr, err)
	}
	return raw, p.Fallback, nil
}

func (p *Pipeline) call(ctx context.Context, client llm.Client, req llm.AnalyzeRequest) (map[string]any, error) {
	budget := p.CharBudget
	if budget <= 0 {
		budget = DefaultCharBudget
	}
	if len(req.ScriptText) > budget {
		return client.AnalyzeChunked(ctx, req, p.ChunkOpts)
	}
	return client.AnalyzeScript(ctx, req)
}

// Run executes Analyze and persists the outcome on the report. A save
// failure after a successful analysis is returned; a save failure after
// an analysis failure is logged but never masks the original error.
func (p *Pipeline) Run(ctx context.Context, reportID string, req Request) error {
	result, model, err := p.Analyze(ctx, req)
	if err != nil {
		return err
	}

	if err := p.Reports.SaveResult(ctx, reportID, result, model); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// MarkFailed is a best-effort report failure write used by the job
// runner when a run errors out.
func (p *Pipeline) MarkFailed(ctx context.Context, reportID, message string) {
	if err := p.Reports.MarkFailed(ctx, reportID, message); err != nil && !errors.Is(err, reports.ErrNotFound) {
		telemetry.Error("analysis.mark_failed", map[string]any{
			"report_id": reportID,
			"error":     err.Error(),
		})
	}
}

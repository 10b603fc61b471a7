package analysis

import (
	"context"
	"strings"
	"testing"

	"coverage-backend/internal/llm"
	"coverage-backend/internal/reports"
)

type fakeClient struct {
	id           string
	result       map[string]any
	err          error
	calls        int
	chunkedCalls int
	lastReq      llm.AnalyzeRequest
}

func (f *fakeClient) ID() string    { return f.id }
func (f *fakeClient) Model() string { return f.id + "-model" }

func (f *fakeClient) AnalyzeScript(ctx context.Context, req llm.AnalyzeRequest) (map[string]any, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

func (f *fakeClient) AnalyzeChunked(ctx context.Context, req llm.AnalyzeRequest, opts llm.ChunkOptions) (map[string]any, error) {
	f.chunkedCalls++
	f.lastReq = req
	return f.result, f.err
}

func goodRaw() map[string]any {
	return map[string]any{
		"logline":  "A pilot crash-lands in hostile territory.",
		"synopsis": "Three acts of survival.",
		"subscores": map[string]any{
			"concept":   map[string]any{"score": 8.0, "rationale": "strong"},
			"character": map[string]any{"score": 7.0, "rationale": "strong"},
			"structure": map[string]any{"score": 8.0, "rationale": "strong"},
			"dialogue":  map[string]any{"score": 8.0, "rationale": "strong"},
			"market":    map[string]any{"score": 8.0, "rationale": "strong"},
		},
		"overall_comments": "Works.",
	}
}

func newPipeline(primary, fallback llm.Client, repo reports.Repo) *Pipeline {
	return &Pipeline{
		Primary:    primary,
		Fallback:   fallback,
		Reports:    repo,
		CharBudget: DefaultCharBudget,
		ChunkOpts:  llm.DefaultChunkOptions(),
	}
}

func TestAnalyzeUsesPrimary(t *testing.T) {
	primary := &fakeClient{id: "moonshot", result: goodRaw()}
	fallback := &fakeClient{id: "anthropic", result: goodRaw()}
	p := newPipeline(primary, fallback, reports.NewMemoryRepo())

	result, model, err := p.Analyze(context.Background(), Request{
		ScriptText: "INT. COCKPIT - NIGHT",
		Depth:      llm.DepthStandard,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if model != "moonshot-model" {
		t.Fatalf("model = %q, want primary model", model)
	}
	if fallback.calls != 0 {
		t.Fatal("fallback called despite primary success")
	}
	if result.TotalScore != 39 {
		t.Fatalf("TotalScore = %v, want 39", result.TotalScore)
	}
	if result.Recommendation != reports.RecommendationRecommend {
		t.Fatalf("Recommendation = %v", result.Recommendation)
	}
}

func TestAnalyzeFallbackOnModeration(t *testing.T) {
	primary := &fakeClient{
		id:  "moonshot",
		err: &llm.Error{Provider: "moonshot", Kind: llm.KindModeration, Message: "high risk"},
	}
	fallback := &fakeClient{id: "anthropic", result: goodRaw()}
	p := newPipeline(primary, fallback, reports.NewMemoryRepo())

	_, model, err := p.Analyze(context.Background(), Request{ScriptText: "x", Depth: llm.DepthQuick})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if model != "anthropic-model" {
		t.Fatalf("model = %q, want fallback model", model)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("calls: primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestAnalyzeNoFallbackOnOperationalError(t *testing.T) {
	primary := &fakeClient{
		id:  "moonshot",
		err: &llm.Error{Provider: "moonshot", Kind: llm.KindRateLimit, Status: 429, Message: "slow down"},
	}
	fallback := &fakeClient{id: "anthropic", result: goodRaw()}
	p := newPipeline(primary, fallback, reports.NewMemoryRepo())

	_, _, err := p.Analyze(context.Background(), Request{ScriptText: "x", Depth: llm.DepthQuick})
	if err == nil {
		t.Fatal("expected error")
	}
	if fallback.calls != 0 {
		t.Fatal("fallback must not run for non-moderation failures")
	}
}

func TestAnalyzeCombinedErrorWhenBothFail(t *testing.T) {
	primary := &fakeClient{
		id:  "moonshot",
		err: &llm.Error{Provider: "moonshot", Kind: llm.KindModeration, Message: "content policy"},
	}
	fallback := &fakeClient{
		id:  "anthropic",
		err: &llm.Error{Provider: "anthropic", Kind: llm.KindServer, Status: 500, Message: "overloaded"},
	}
	p := newPipeline(primary, fallback, reports.NewMemoryRepo())

	_, _, err := p.Analyze(context.Background(), Request{ScriptText: "x", Depth: llm.DepthQuick})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "moonshot") || !strings.Contains(msg, "anthropic") {
		t.Fatalf("combined error %q should cite both providers", msg)
	}
}

func TestAnalyzeChunksOversizedScript(t *testing.T) {
	primary := &fakeClient{id: "moonshot", result: goodRaw()}
	p := newPipeline(primary, nil, reports.NewMemoryRepo())
	p.CharBudget = 1000

	_, _, err := p.Analyze(context.Background(), Request{
		ScriptText: strings.Repeat("a", 2000),
		Depth:      llm.DepthStandard,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if primary.chunkedCalls != 1 || primary.calls != 0 {
		t.Fatalf("chunked=%d single=%d, want chunked path", primary.chunkedCalls, primary.calls)
	}
}

func TestAnalyzeDepthSetsTokenBudget(t *testing.T) {
	primary := &fakeClient{id: "moonshot", result: goodRaw()}
	p := newPipeline(primary, nil, reports.NewMemoryRepo())

	if _, _, err := p.Analyze(context.Background(), Request{ScriptText: "x", Depth: llm.DepthDeep}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if primary.lastReq.MaxTokens != 16000 {
		t.Fatalf("MaxTokens = %d, want deep budget", primary.lastReq.MaxTokens)
	}
	if !primary.lastReq.ExpectJSON {
		t.Fatal("ExpectJSON should be set")
	}
}

func TestRunPersistsResult(t *testing.T) {
	repo := reports.NewMemoryRepo()
	report := reports.CoverageReport{ID: "report-1", Status: reports.StatusProcessing}
	if err := repo.Create(context.Background(), report); err != nil {
		t.Fatalf("Create: %v", err)
	}

	primary := &fakeClient{id: "moonshot", result: goodRaw()}
	p := newPipeline(primary, nil, repo)

	if err := p.Run(context.Background(), "report-1", Request{ScriptText: "x", Depth: llm.DepthStandard}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), "report-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != reports.StatusCompleted {
		t.Fatalf("status = %v, want completed", stored.Status)
	}
	if stored.Result == nil || stored.Result.TotalScore != 39 {
		t.Fatalf("result = %+v", stored.Result)
	}
	if stored.ModelUsed != "moonshot-model" {
		t.Fatalf("modelUsed = %q", stored.ModelUsed)
	}
	if stored.ExpiresAt == nil {
		t.Fatal("expected retention expiry on completed report")
	}
}

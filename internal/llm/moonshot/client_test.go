package moonshot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"coverage-backend/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("MOONSHOT_BASE_URL", srv.URL+"/v1")

	client, err := NewClient("test-key", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func chatResponse(content string, completionTokens int) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{
			"prompt_tokens":     1200,
			"completion_tokens": completionTokens,
			"total_tokens":      1200 + completionTokens,
		},
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  ", ""); err == nil {
		t.Fatal("expected error for blank API key")
	}
}

func TestAnalyzeScriptParsesResult(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"logline": "A chef opens a haunted restaurant."}`, 900))
	})

	result, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{
		ScriptText: "INT. KITCHEN - NIGHT",
		Prompt:     "Provide coverage.",
		MaxTokens:  8000,
		ExpectJSON: true,
	})
	if err != nil {
		t.Fatalf("AnalyzeScript: %v", err)
	}
	if result["logline"] != "A chef opens a haunted restaurant." {
		t.Fatalf("logline = %v", result["logline"])
	}
	if gotBody["model"] != DefaultModel {
		t.Fatalf("model = %v, want default", gotBody["model"])
	}
	if _, ok := gotBody["response_format"]; !ok {
		t.Fatal("expected response_format for ExpectJSON request")
	}
}

func TestAnalyzeScriptModerationRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "The request was rejected because it is considered high risk",
				"type":    "invalid_request_error",
			},
		})
	})

	_, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{ScriptText: "x", Prompt: "p"})
	if !llm.IsModeration(err) {
		t.Fatalf("err = %v, want moderation classification", err)
	}
}

func TestAnalyzeScriptRateLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Rate limit exceeded", "type": "rate_limit_error"},
		})
	})

	_, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{ScriptText: "x", Prompt: "p"})
	var provErr *llm.Error
	if !errors.As(err, &provErr) || provErr.Kind != llm.KindRateLimit {
		t.Fatalf("err = %v, want rate limit classification", err)
	}
	if llm.IsModeration(err) {
		t.Fatal("rate limit misread as moderation")
	}
}

func TestAnalyzeScriptTruncation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"partial": true`, 8000))
	})

	_, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{
		ScriptText: "x", Prompt: "p", MaxTokens: 8000,
	})
	if !llm.IsTruncated(err) {
		t.Fatalf("err = %v, want truncation classification", err)
	}
}

func TestAnalyzeScriptUnparseableResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("I cannot produce JSON today.", 20))
	})

	_, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{ScriptText: "x", Prompt: "p"})
	var provErr *llm.Error
	if !errors.As(err, &provErr) || provErr.Kind != llm.KindParse {
		t.Fatalf("err = %v, want parse classification", err)
	}
}

package anthropic

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
	t.Setenv("ANTHROPIC_BASE_URL", srv.URL)

	client, err := NewClient("test-key", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func messagesResponse(text, stopReason string, outputTokens int) map[string]any {
	return map[string]any{
		"id":          "msg-test",
		"model":       DefaultModel,
		"stop_reason": stopReason,
		"content":     []map[string]any{{"type": "text", "text": text}},
		"usage":       map[string]any{"input_tokens": 1500, "output_tokens": outputTokens},
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", ""); err == nil {
		t.Fatal("expected error for blank API key")
	}
}

func TestAnalyzeScriptSendsHeadersAndParses(t *testing.T) {
	var gotVersion, gotKey string
	var gotBody messageRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messagesResponse(`{"logline": "A widow rebuilds a vineyard."}`, "end_turn", 700))
	})

	result, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{
		ScriptText: "EXT. VINEYARD - DAWN",
		Prompt:     "Provide coverage.",
		MaxTokens:  8000,
	})
	if err != nil {
		t.Fatalf("AnalyzeScript: %v", err)
	}
	if result["logline"] != "A widow rebuilds a vineyard." {
		t.Fatalf("logline = %v", result["logline"])
	}
	if gotVersion != apiVersion {
		t.Fatalf("anthropic-version = %q", gotVersion)
	}
	if gotKey != "test-key" {
		t.Fatalf("x-api-key = %q", gotKey)
	}
	if gotBody.Model != DefaultModel {
		t.Fatalf("model = %q, want default", gotBody.Model)
	}
	if gotBody.System == "" {
		t.Fatal("expected system context in request")
	}
}

func TestAnalyzeScriptRecoversFencedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		text := "Here is the coverage:\n```json\n{\"logline\": \"A spy retires badly.\"}\n```"
		_ = json.NewEncoder(w).Encode(messagesResponse(text, "end_turn", 300))
	})

	result, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{ScriptText: "x", Prompt: "p"})
	if err != nil {
		t.Fatalf("AnalyzeScript: %v", err)
	}
	if result["logline"] != "A spy retires badly." {
		t.Fatalf("logline = %v", result["logline"])
	}
}

func TestAnalyzeScriptStopReasonMaxTokens(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messagesResponse(`{"partial`, "max_tokens", 800))
	})

	_, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{ScriptText: "x", Prompt: "p", MaxTokens: 8000})
	if !llm.IsTruncated(err) {
		t.Fatalf("err = %v, want truncation classification", err)
	}
}

func TestAnalyzeScriptClassifiesStatuses(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		message string
		want    llm.Kind
	}{
		{"auth", http.StatusUnauthorized, "invalid x-api-key", llm.KindAuth},
		{"rate limit", http.StatusTooManyRequests, "rate limited", llm.KindRateLimit},
		{"server", http.StatusInternalServerError, "overloaded", llm.KindServer},
		{"moderation", http.StatusBadRequest, "request blocked by content policy", llm.KindModeration},
		{"bad request", http.StatusBadRequest, "max_tokens must be positive", llm.KindBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"type": "error", "message": tc.message},
				})
			})

			_, err := client.AnalyzeScript(context.Background(), llm.AnalyzeRequest{ScriptText: "x", Prompt: "p"})
			var provErr *llm.Error
			if !errors.As(err, &provErr) {
				t.Fatalf("err = %v, want provider error", err)
			}
			if provErr.Kind != tc.want {
				t.Fatalf("kind = %v, want %v", provErr.Kind, tc.want)
			}
		})
	}
}

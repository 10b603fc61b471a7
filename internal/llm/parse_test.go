package llm

import (
	"errors"
	"testing"
)

func TestDecodeStructuredDirect(t *testing.T) {
	result, err := DecodeStructured(`{"logline": "A heist goes wrong.", "total_score": 37}`)
	if err != nil {
		t.Fatalf("DecodeStructured: %v", err)
	}
	if result["logline"] != "A heist goes wrong." {
		t.Fatalf("logline = %v", result["logline"])
	}
}

func TestDecodeStructuredFencedBlock(t *testing.T) {
	content := "Here is the coverage you asked for:\n```json\n{\"logline\": \"Two rivals fall in love.\"}\n```\nLet me know if you need more."
	result, err := DecodeStructured(content)
	if err != nil {
		t.Fatalf("DecodeStructured: %v", err)
	}
	if result["logline"] != "Two rivals fall in love." {
		t.Fatalf("logline = %v", result["logline"])
	}
}

func TestDecodeStructuredBraceSpan(t *testing.T) {
	content := `The analysis follows. {"logline": "A town hides a secret.", "subscores": {"concept": {"score": 8}}} End of report.`
	result, err := DecodeStructured(content)
	if err != nil {
		t.Fatalf("DecodeStructured: %v", err)
	}
	if result["logline"] != "A town hides a secret." {
		t.Fatalf("logline = %v", result["logline"])
	}
}

func TestDecodeStructuredNoJSON(t *testing.T) {
	for _, content := range []string{"", "   ", "no json here at all", "{broken"} {
		if _, err := DecodeStructured(content); !errors.Is(err, ErrNoJSON) {
			t.Fatalf("content %q: err = %v, want ErrNoJSON", content, err)
		}
	}
}

func TestLikelyTruncated(t *testing.T) {
	cases := []struct {
		name       string
		completion int
		maxTokens  int
		want       bool
	}{
		{"well under cap", 4000, 8000, false},
		{"just under threshold", 7599, 8000, false},
		{"at threshold", 7600, 8000, true},
		{"at cap", 8000, 8000, true},
		{"no cap", 8000, 0, false},
		{"no usage", 0, 8000, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LikelyTruncated(Usage{CompletionTokens: tc.completion}, tc.maxTokens)
			if got != tc.want {
				t.Fatalf("LikelyTruncated(%d, %d) = %v, want %v", tc.completion, tc.maxTokens, got, tc.want)
			}
		})
	}
}

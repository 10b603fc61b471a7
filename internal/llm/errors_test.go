package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsModerationText(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"The request was rejected because it is high risk", true},
		{"content flagged by moderation system", true},
		{"This request violates our content policy", true},
		{"finish_reason: content_filter", true},
		{"input flagged as unsafe", true},
		{"Invalid API key", false},
		{"Rate limit exceeded", false},
		{"Server error, please retry", false},
		{"model not found", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsModerationText(tc.msg); got != tc.want {
			t.Errorf("IsModerationText(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestErrorClassifiers(t *testing.T) {
	mod := &Error{Provider: "moonshot", Kind: KindModeration, Status: 400, Message: "high risk"}
	wrapped := fmt.Errorf("analyze: %w", mod)
	if !IsModeration(wrapped) {
		t.Fatal("expected IsModeration through wrapping")
	}
	if IsTruncated(wrapped) {
		t.Fatal("moderation error misread as truncated")
	}

	trunc := &Error{Provider: "anthropic", Kind: KindTruncated, Message: "hit token cap"}
	if !IsTruncated(trunc) {
		t.Fatal("expected IsTruncated")
	}
	if IsModeration(errors.New("plain error")) {
		t.Fatal("plain error misread as moderation")
	}
}

func TestErrorStringIncludesProviderAndStatus(t *testing.T) {
	err := &Error{Provider: "moonshot", Kind: KindRateLimit, Status: 429, Message: "slow down"}
	got := err.Error()
	for _, want := range []string{"moonshot", "rate_limit", "429", "slow down"} {
		if !strings.Contains(got, want) {
			t.Fatalf("error string %q missing %q", got, want)
		}
	}
}

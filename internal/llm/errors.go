package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies provider failures so callers can decide between
// fallback, retry, and hard failure.
type Kind string

const (
	KindTransport  Kind = "transport"
	KindAuth       Kind = "auth"
	KindRateLimit  Kind = "rate_limit"
	KindModeration Kind = "moderation"
	KindBadRequest Kind = "bad_request"
	KindParse      Kind = "parse"
	KindTruncated  Kind = "truncated"
	KindServer     Kind = "server"
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Kind     Kind
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsModeration reports whether err is a content-moderation rejection.
func IsModeration(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindModeration
}

// IsTruncated reports whether err indicates a response cut off at the
// completion token limit.
func IsTruncated(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindTruncated
}

var moderationMarkers = []string{
	"high risk",
	"rejected",
	"moderation",
	"content policy",
	"content_filter",
	"flagged as unsafe",
}

// IsModerationText reports whether a provider error message describes a
// content-moderation rejection rather than an operational failure.
// Messages like "Invalid API key" or "Rate limit exceeded" must not match.
func IsModerationText(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range moderationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

package llm

import "time"

const (
	connectFloor   = 10 * time.Second
	perTokenBudget = 25 * time.Millisecond
	minCallTimeout = 60 * time.Second
)

// CallTimeout returns a per-call deadline scaled to the expected
// completion size. Large completions stream slowly, so a flat timeout
// either kills deep analyses or lets cheap calls hang.
func CallTimeout(maxTokens int) time.Duration {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	d := connectFloor + time.Duration(maxTokens)*perTokenBudget
	if d < minCallTimeout {
		return minCallTimeout
	}
	return d
}

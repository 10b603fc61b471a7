package llm

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.txt
var promptFiles embed.FS

// Depth selects how thorough the coverage analysis is.
type Depth string

const (
	DepthQuick    Depth = "quick"
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// NormalizeDepth maps arbitrary input to a supported depth, defaulting
// to standard.
func NormalizeDepth(raw string) Depth {
	switch Depth(strings.ToLower(strings.TrimSpace(raw))) {
	case DepthQuick:
		return DepthQuick
	case DepthDeep:
		return DepthDeep
	default:
		return DepthStandard
	}
}

// MaxTokensForDepth returns the completion budget for a depth.
func MaxTokensForDepth(depth Depth) int {
	switch depth {
	case DepthQuick:
		return 4000
	case DepthDeep:
		return 16000
	default:
		return DefaultMaxTokens
	}
}

var genreContexts = map[string]string{
	"drama":    "Judge against contemporary prestige drama: character interiority and thematic coherence carry the most weight.",
	"comedy":   "Judge against working studio comedy: joke density, escalation, and a premise that sustains the runtime.",
	"thriller": "Judge against commercial thrillers: tension mechanics, reversals, and a ticking-clock engine.",
	"horror":   "Judge against modern horror: sustained dread, set-piece inventiveness, and a rule system the script honors.",
	"sci-fi":   "Judge against produced science fiction: world rules established early, ideas dramatized rather than explained.",
	"action":   "Judge against studio action: set-piece clarity, escalating stakes, and a hero with a readable want.",
	"romance":  "Judge against contemporary romance: chemistry on the page and obstacles that are real rather than contrived.",
}

// BuildPrompt assembles the analysis prompt for a depth, optionally
// seasoned with genre context and comparable titles.
func BuildPrompt(depth Depth, genre string, comps []string) (string, error) {
	data, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.txt", depth))
	if err != nil {
		return "", fmt.Errorf("load prompt for depth %q: %w", depth, err)
	}

	var b strings.Builder
	b.Write(data)

	if g := strings.ToLower(strings.TrimSpace(genre)); g != "" {
		b.WriteString("\n\nGENRE: ")
		b.WriteString(g)
		if ctx, ok := genreContexts[g]; ok {
			b.WriteString("\n")
			b.WriteString(ctx)
		}
	}

	cleaned := make([]string, 0, len(comps))
	for _, comp := range comps {
		if c := strings.TrimSpace(comp); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) > 0 {
		b.WriteString("\n\nCOMPARABLE TITLES: ")
		b.WriteString(strings.Join(cleaned, ", "))
		b.WriteString("\nWeigh market viability against how these comparables performed.")
	}

	return b.String(), nil
}

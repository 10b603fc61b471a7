package reports

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Canonical subscore categories in presentation order.
var canonicalCategories = []string{"concept", "character", "structure", "dialogue", "market"}

// Alternate key names models use for each canonical category.
var categoryAliases = map[string][]string{
	"concept":   {"concept", "premise", "idea", "hook"},
	"character": {"character", "characters", "protagonist", "ensemble"},
	"structure": {"structure", "pacing", "plot", "narrative"},
	"dialogue":  {"dialogue", "writing", "voice", "execution"},
	"market":    {"market", "viability", "commercial", "audience", "timeliness"},
}

const (
	maxSubscore     = 10
	maxQuoteLen     = 500
	maxQuoteContext = 200
)

// NormalizeResult coerces a raw model response into a valid coverage
// payload. It never fails: missing or malformed fields get safe
// defaults, and each repair is reported as a diagnostic.
func NormalizeResult(raw map[string]any) (NormalizedCoverage, []string) {
	var diags []string
	out := NormalizedCoverage{
		Subscores: make(map[string]Subscore, len(canonicalCategories)),
	}

	out.Logline = stringField(raw, "logline", &diags)
	out.Synopsis = stringField(raw, "synopsis", &diags)
	out.OverallComments = stringField(raw, "overall_comments", &diags)
	out.CharacterNotes = stringField(raw, "character_notes", nil)
	out.StructureAnalysis = stringField(raw, "structure_analysis", nil)
	out.MarketPositioning = stringField(raw, "market_positioning", nil)
	out.Strengths = stringList(raw["strengths"])
	out.Weaknesses = stringList(raw["weaknesses"])

	rawScores, _ := raw["subscores"].(map[string]any)
	total := 0.0
	for _, category := range canonicalCategories {
		sub, found := findSubscore(rawScores, categoryAliases[category])
		if !found {
			diags = append(diags, fmt.Sprintf("subscore %q missing, defaulted to 0", category))
		}
		if sub.Score < 0 || sub.Score > maxSubscore {
			diags = append(diags, fmt.Sprintf("subscore %q out of range (%g), clamped", category, sub.Score))
			sub.Score = clamp(sub.Score, 0, maxSubscore)
		}
		out.Subscores[category] = sub
		total += sub.Score
	}

	// The total is always recomputed; model-reported totals drift.
	out.TotalScore = total
	out.Recommendation = RecommendationForScore(total)

	out.EvidenceQuotes = normalizeQuotes(raw["evidence_quotes"], &diags)

	return out, diags
}

func findSubscore(rawScores map[string]any, aliases []string) (Subscore, bool) {
	if rawScores == nil {
		return Subscore{}, false
	}
	for _, alias := range aliases {
		entry, ok := lookupFold(rawScores, alias)
		if !ok {
			continue
		}
		switch v := entry.(type) {
		case map[string]any:
			score, hasScore := numberValue(v["score"])
			rationale, _ := v["rationale"].(string)
			if hasScore || rationale != "" {
				return Subscore{Score: score, Rationale: rationale}, true
			}
		default:
			if score, ok := numberValue(v); ok {
				return Subscore{Score: score}, true
			}
		}
	}
	return Subscore{}, false
}

func normalizeQuotes(raw any, diags *[]string) []EvidenceQuote {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	quotes := make([]EvidenceQuote, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			*diags = append(*diags, "evidence quote with non-object shape dropped")
			continue
		}
		quote, _ := entry["quote"].(string)
		quote = strings.TrimSpace(quote)
		if quote == "" {
			*diags = append(*diags, "evidence quote with empty text dropped")
			continue
		}
		quote = truncateRunes(quote, maxQuoteLen)
		context, _ := entry["context"].(string)
		context = truncateRunes(context, maxQuoteContext)
		page := 0
		if n, ok := numberValue(entry["page"]); ok && n > 0 {
			page = int(n)
		}
		quotes = append(quotes, EvidenceQuote{Quote: quote, Page: page, Context: context})
	}
	return quotes
}

// truncateRunes bounds s to at most limit bytes without splitting a
// multi-byte rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func stringField(raw map[string]any, key string, diags *[]string) string {
	s, _ := raw[key].(string)
	s = strings.TrimSpace(s)
	if s == "" && diags != nil {
		*diags = append(*diags, fmt.Sprintf("field %q missing or empty", key))
	}
	return s
}

func stringList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func numberValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

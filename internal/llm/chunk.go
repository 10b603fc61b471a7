package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Chunking defaults. Sizes are in characters.
const (
	DefaultChunkSize    = 60000
	DefaultChunkOverlap = 5000

	// boundaryWindow is how far around a cut point SplitChunks looks
	// for a newline so chunks break between lines, not mid-sentence.
	boundaryWindow = 100
)

// Chunk is a half-open [Start, End) span of the script text.
type Chunk struct {
	Start int
	End   int
}

// ChunkOptions controls chunked analysis.
type ChunkOptions struct {
	ChunkSize int
	Overlap   int
}

// DefaultChunkOptions returns the standard chunking parameters.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{ChunkSize: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

func (o ChunkOptions) normalized() ChunkOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap < 0 || o.Overlap >= o.ChunkSize {
		o.Overlap = DefaultChunkOverlap
		if o.Overlap >= o.ChunkSize {
			o.Overlap = o.ChunkSize / 10
		}
	}
	return o
}

// SplitChunks splits text into overlapping chunks, preferring newline
// boundaries near each cut point.
func SplitChunks(text string, chunkSize, overlap int) []Chunk {
	opts := ChunkOptions{ChunkSize: chunkSize, Overlap: overlap}.normalized()
	chunkSize, overlap = opts.ChunkSize, opts.Overlap

	length := len(text)
	if length == 0 {
		return nil
	}
	if length <= chunkSize {
		return []Chunk{{Start: 0, End: length}}
	}

	var chunks []Chunk
	start := 0
	for start < length {
		end := start + chunkSize
		if end >= length {
			chunks = append(chunks, Chunk{Start: start, End: length})
			break
		}
		// A snapped cut that lands at or before start would produce a
		// zero-width chunk; keep the exact cut instead.
		if snapped := snapToNewline(text, end); snapped > start {
			end = snapped
		}
		chunks = append(chunks, Chunk{Start: start, End: end})
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// snapToNewline moves a cut point to the nearest newline within the
// boundary window, or leaves it exact when none is found.
func snapToNewline(text string, cut int) int {
	lo := cut - boundaryWindow
	if lo < 0 {
		lo = 0
	}
	hi := cut + boundaryWindow
	if hi > len(text) {
		hi = len(text)
	}
	best := -1
	bestDist := boundaryWindow + 1
	for i := lo; i < hi; i++ {
		if text[i] != '\n' {
			continue
		}
		dist := i - cut
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best < 0 {
		return cut
	}
	return best + 1
}

type partialResult struct {
	Chunk  int            `json:"chunk"`
	Result map[string]any `json:"result"`
}

// RunChunked analyzes an oversized script chunk by chunk, then makes a
// synthesis call that merges the partial results into one report.
// Any chunk failure aborts the whole run.
func RunChunked(ctx context.Context, c Client, req AnalyzeRequest, opts ChunkOptions) (map[string]any, error) {
	opts = opts.normalized()
	chunks := SplitChunks(req.ScriptText, opts.ChunkSize, opts.Overlap)
	if len(chunks) <= 1 {
		return c.AnalyzeScript(ctx, req)
	}

	partials := make([]partialResult, 0, len(chunks))
	for i, ch := range chunks {
		chunkReq := req
		chunkReq.ScriptText = req.ScriptText[ch.Start:ch.End]
		chunkReq.Prompt = fmt.Sprintf(
			"%s\n\nThis is chunk %d of %d of the screenplay. Analyze only this portion.",
			req.Prompt, i+1, len(chunks),
		)
		result, err := c.AnalyzeScript(ctx, chunkReq)
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, partialResult{Chunk: i + 1, Result: result})
	}

	encoded, err := json.Marshal(partials)
	if err != nil {
		return nil, fmt.Errorf("encode partial results: %w", err)
	}

	synthReq := req
	synthReq.ScriptText = ""
	synthReq.Temperature = SynthesisTemperature
	synthReq.Prompt = fmt.Sprintf(
		"%s\n\nBelow are partial coverage analyses of consecutive chunks of one screenplay. "+
			"Synthesize them into a single coherent coverage report in the same JSON format.\n\nPARTIAL ANALYSES:\n%s",
		req.Prompt, encoded,
	)
	return c.AnalyzeScript(ctx, synthReq)
}

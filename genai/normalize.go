package genai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// normalizeGeneration reduces a generation envelope to its candidate texts.
// n == 1 yields exactly the first candidate; otherwise all candidates of the
// first prompt group, in backend order.
func normalizeGeneration(rc RequestContext, env *GenerateTextResult, n int) ([]string, error) {
	if env == nil || len(env.GeneratedTexts) == 0 {
		return nil, malformed(rc, "missing generated_texts")
	}
	group := env.GeneratedTexts[0]
	if len(group) == 0 {
		return nil, malformed(rc, "empty generated_texts[0]")
	}
	if n == 1 {
		return []string{group[0].Text}, nil
	}
	out := make([]string, len(group))
	for i, g := range group {
		out[i] = g.Text
	}
	return out, nil
}

func normalizeSummary(rc RequestContext, env *SummarizeTextResult) (string, error) {
	if env == nil || env.Summary == nil {
		return "", malformed(rc, "missing summary")
	}
	return *env.Summary, nil
}

func normalizeEmbeddings(rc RequestContext, env *EmbedTextResult, want int) ([][]float64, error) {
	if env == nil || env.Embeddings == nil {
		return nil, malformed(rc, "missing embeddings")
	}
	if len(env.Embeddings) != want {
		return nil, malformed(rc, "got %d embeddings for %d inputs", len(env.Embeddings), want)
	}
	return env.Embeddings, nil
}

// normalizeEndpoint reads generated_text from an endpoint response, falling
// back to the raw body text when the field is absent or null.
func normalizeEndpoint(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		if v, ok := obj["generated_text"]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
			return fmt.Sprint(v)
		}
	}
	return strings.TrimSpace(string(body))
}

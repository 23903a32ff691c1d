package budget

import (
	"math"
	"strings"
	"unicode"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string. Han, kana and
// hangul runes are counted as one token each; the remaining characters use the
// four-chars-per-token rule.
func EstimateTokens(s string) int {
	wide, other := 0, 0
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			wide++
			continue
		}
		other++
	}
	return wide + EstimateTokensFromChars(other)
}

// EstimatePromptTokens estimates the tokens of a single-message chat request
// built from a prompt and the page content.
func EstimatePromptTokens(prompt string, content string) int {
	return EstimateTokens(prompt) + EstimateTokens(content)
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to a sensible default.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	// Provider-qualified names such as "THUDM/glm-4-9b-chat".
	if i := strings.LastIndex(name, "/"); i >= 0 {
		if v, ok := knownModelMax[name[i+1:]]; ok {
			return v
		}
	}
	for _, s := range []struct {
		suffix string
		tokens int
	}{
		{"1m", 1_000_000},
		{"128k", 128_000},
		{"32k", 32_768},
		{"8k", 8_192},
	} {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	return 8192
}

// RemainingContext computes the remaining input token budget given a model,
// a desired reservation for output generation, and the estimated prompt tokens.
// The result is never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	maxCtx := ModelContextTokens(modelName)
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := maxCtx - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FitsInContext reports whether the prompt can fit into the model's context
// window when reserving the specified number of output tokens.
func FitsInContext(modelName string, reservedForOutput int, promptTokens int) bool {
	return RemainingContext(modelName, reservedForOutput, promptTokens) > 0
}

// knownModelMax contains rough context sizes for the built-in models and a few
// common OpenAI-compatible identifiers.
var knownModelMax = map[string]int{
	"glm-4-9b":                  32_768,
	"glm-4-9b-0414":             32_768,
	"glm-4-9b-chat":             131_072,
	"glm-4-flash":               128_000,
	"glm-4-flash-250414":        128_000,
	"qwen2.5-7b-instruct":       32_768,
	"qwen2.5-coder-7b-instruct": 32_768,
	"qwen-7b":                   32_768,
	"qwen-coder-7b":             32_768,

	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-3.5-turbo": 16_384,
}

package summarize

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the character ceiling used when a request has none.
const DefaultMaxLength = 8000

// sizeLimitMarkers are matched case-insensitively against provider error
// messages.
var sizeLimitMarkers = []string{
	"token limit", "too long", "exceed", "limit", "maximum context",
	"超出", "过长", "太长", "超过",
}

// IsSizeLimit reports whether a provider error message describes a payload
// that is too large.
func IsSizeLimit(msg string) bool {
	m := strings.ToLower(msg)
	for _, s := range sizeLimitMarkers {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

// BuildPrompt substitutes every {{maxLength}} placeholder in template.
func BuildPrompt(template string, maxLength int) string {
	return strings.ReplaceAll(template, "{{maxLength}}", strconv.Itoa(maxLength))
}

// UserMessage is the single message sent for req: the prompt, a blank line and
// at most MaxLength characters of content.
func UserMessage(req Request) string {
	n := req.MaxLength
	if n <= 0 {
		n = DefaultMaxLength
	}
	return BuildPrompt(req.PromptTemplate, n) + "\n\n" + firstRunes(req.Content, n)
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

package extract

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
)

// Content is the readable part of a page.
type Content struct {
	Title string
	Body  string
}

// Markdown renders the content as a document whose first line is the title
// heading.
func (c Content) Markdown() string {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = "Untitled"
	}
	if strings.TrimSpace(c.Body) == "" {
		return "# " + title
	}
	return "# " + title + "\n\n" + c.Body
}

// RemoveSelectors lists page chrome removed before conversion.
var RemoveSelectors = []string{
	"script", "style", "noscript", "template", "iframe", "nav", "footer",
	"aside", "advertisement", ".ad", ".ads", ".advert",
	".comment", ".comments", "#comments", ".sidebar",
}

// MainContentSelector picks the page region worth keeping; the first match in
// document order wins and <body> is the fallback.
const MainContentSelector = "main, article, .content, .post, .entry, #content, #main"

// Extract produces the readable content of doc. It works on a clone so doc is
// never modified, and it never fails: any error or panic yields a minimal
// document carrying the title and the error text.
func Extract(doc Document) (c Content) {
	title := ""
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("content extraction panicked")
			c = failed(title, fmt.Errorf("%v", r))
		}
	}()
	title = doc.Title()

	clone, err := doc.Clone()
	if err != nil {
		return failed(title, err)
	}
	for _, sel := range RemoveSelectors {
		clone.RemoveMatching(sel)
	}
	root, ok := clone.First(MainContentSelector)
	if !ok {
		root = clone.Body()
	}
	body, err := clone.Render(root)
	if err != nil {
		return failed(title, err)
	}
	return Content{Title: title, Body: normalizeWhitespace(norm.NFC.String(body))}
}

// FromHTML parses input and extracts its readable content.
func FromHTML(input []byte) Content {
	doc, err := ParseHTML(input)
	if err != nil {
		return failed("", err)
	}
	return Extract(doc)
}

func failed(title string, err error) Content {
	log.Warn().Err(err).Str("title", title).Msg("content extraction failed; returning fallback document")
	return Content{Title: title, Body: "Error converting content: " + err.Error()}
}

// normalizeWhitespace collapses space runs, trims lines and keeps at most one
// blank line between blocks. Fenced code blocks pass through untouched.
func normalizeWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			out = append(out, trimmed)
			continue
		}
		if inFence {
			out = append(out, strings.TrimRight(line, " \t\r"))
			continue
		}
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !isListLine(trimmed) {
			indent = ""
		}
		out = append(out, indent+collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func isListLine(s string) bool {
	if strings.HasPrefix(s, "- ") {
		return true
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && strings.HasPrefix(s[i:], ". ")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}

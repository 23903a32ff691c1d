package score

import (
	"regexp"
	"sort"
	"strings"
)

// Segment is one paragraph of a document body together with its importance.
type Segment struct {
	Index int
	Text  string
	Score int
}

var headingRe = regexp.MustCompile(`^#{1,5} `)

var paragraphBreakRe = regexp.MustCompile(`\n[ \t]*\n`)

// keywords mark sections that usually carry the gist of a page.
var keywords = []string{
	"summary", "overview", "introduction", "conclusion",
	"background", "method", "result", "discussion",
	"摘要", "概述", "简介", "引言", "总结", "结论", "背景", "方法", "结果", "讨论",
}

// Score returns the heuristic importance of a paragraph. Rules are additive:
// +3 for a heading, +2 for the first keyword hit, +1 for a body-sized
// paragraph of 11 to 99 tokens.
func Score(segment string) int {
	s := 0
	if headingRe.MatchString(segment) {
		s += 3
	}
	lower := strings.ToLower(segment)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			s += 2
			break
		}
	}
	if n := len(strings.Fields(segment)); n > 10 && n < 100 {
		s++
	}
	return s
}

// Split breaks a body into paragraphs on blank lines and scores each one.
// Empty paragraphs are dropped; Index is the position among kept paragraphs.
func Split(body string) []Segment {
	parts := paragraphBreakRe.Split(strings.ReplaceAll(body, "\r\n", "\n"), -1)
	out := make([]Segment, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "\n")
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, Segment{Index: len(out), Text: p, Score: Score(p)})
	}
	return out
}

// Top selects the n highest scoring segments. Equal scores keep document
// order, and the selection is returned in document order.
func Top(segments []Segment, n int) []Segment {
	if n >= len(segments) {
		return append([]Segment(nil), segments...)
	}
	if n <= 0 {
		return nil
	}
	ranked := append([]Segment(nil), segments...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	picked := ranked[:n]
	sort.Slice(picked, func(i, j int) bool { return picked[i].Index < picked[j].Index })
	return picked
}

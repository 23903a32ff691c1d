package reduce

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/pagedigest/internal/score"
)

// Level selects a reduction strategy. Higher levels retain less.
type Level int

const (
	// LevelTruncate keeps the head of the body.
	LevelTruncate Level = 1
	// LevelImportance keeps the highest scoring paragraphs.
	LevelImportance Level = 2
	// LevelHeadMiddleTail samples the start, middle and end of the body.
	LevelHeadMiddleTail Level = 3
)

// Levels lists every level in escalation order.
var Levels = []Level{LevelTruncate, LevelImportance, LevelHeadMiddleTail}

// Marker is inserted wherever content was dropped.
const Marker = "[... content omitted ...]"

// MinImportanceParagraphs is the floor on paragraphs kept by LevelImportance.
const MinImportanceParagraphs = 5

// Retention returns the fraction of the body a level aims to keep.
func (l Level) Retention() float64 {
	switch l {
	case LevelTruncate:
		return 0.6
	case LevelImportance:
		return 0.4
	case LevelHeadMiddleTail:
		return 0.2
	}
	return 1
}

func (l Level) String() string {
	switch l {
	case LevelTruncate:
		return "truncate"
	case LevelImportance:
		return "importance"
	case LevelHeadMiddleTail:
		return "head-middle-tail"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Reduce shrinks content with the strategy for level. The first line of
// content is treated as the title and is kept verbatim as line 1. Every level
// carries its elision markers, and for the same content a higher level never
// yields a longer result than a lower one, except where the paragraph floor
// of LevelImportance or the two markers of LevelHeadMiddleTail outweigh the
// body being cut.
func Reduce(content string, level Level) string {
	title, rest, ok := splitTitle(content)
	if !ok {
		return content
	}
	body := strings.TrimLeft(rest, "\r\n")
	if strings.TrimSpace(body) == "" {
		return title
	}
	n := utf8.RuneCountInString(body)
	truncated := withMarker(headPrefix(body, n))

	var reduced string
	switch level {
	case LevelTruncate:
		reduced = truncated
	case LevelImportance:
		reduced = importanceBody(body, runeLen(truncated))
	case LevelHeadMiddleTail:
		reduced = headMiddleTailBody(body, n, runeLen(importanceBody(body, runeLen(truncated))))
	default:
		return content
	}
	return join(title, reduced)
}

// SelectParagraphs returns the paragraphs LevelImportance keeps, in document
// order: the top 40% by score but never fewer than MinImportanceParagraphs.
func SelectParagraphs(body string) []score.Segment {
	segs := score.Split(body)
	keep := int(math.Round(float64(len(segs)) * LevelImportance.Retention()))
	if keep < MinImportanceParagraphs {
		keep = MinImportanceParagraphs
	}
	return score.Top(segs, keep)
}

func headPrefix(body string, n int) string {
	keep := int(float64(n) * LevelTruncate.Retention())
	return strings.TrimRight(firstRunes(body, keep), " \t\r\n")
}

// importanceBody joins the selected paragraphs. While the result is longer
// than ceiling and more than MinImportanceParagraphs remain, the lowest
// scoring paragraph is dropped whole; the latest one goes first on ties.
func importanceBody(body string, ceiling int) string {
	picked := SelectParagraphs(body)
	for len(picked) > MinImportanceParagraphs && runeLen(joinSegments(picked)) > ceiling {
		drop := 0
		for i, s := range picked {
			if s.Score <= picked[drop].Score {
				drop = i
			}
		}
		picked = append(picked[:drop], picked[drop+1:]...)
	}
	return joinSegments(picked)
}

func joinSegments(segs []score.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return withMarker(strings.Join(parts, "\n\n"))
}

// headMiddleTailBody always emits both markers; on bodies too short to pay
// for them the sampled parts shrink, down to empty.
func headMiddleTailBody(body string, n int, ceiling int) string {
	sep := "\n\n" + Marker + "\n\n"
	overhead := 2 * runeLen(sep)
	budget := int(float64(n) * LevelHeadMiddleTail.Retention())
	if budget+overhead > ceiling {
		budget = ceiling - overhead
	}
	if budget < 0 {
		budget = 0
	}
	headN := budget * 60 / 100
	midN := budget * 20 / 100
	tailN := budget - headN - midN

	runes := []rune(body)
	midStart := n/2 - midN/2
	if midStart < 0 {
		midStart = 0
	}
	head := strings.TrimSpace(string(runes[:headN]))
	middle := strings.TrimSpace(string(runes[midStart : midStart+midN]))
	tail := strings.TrimSpace(string(runes[n-tailN:]))
	return strings.Trim(head+sep+middle+sep+tail, "\n")
}

func splitTitle(content string) (title, rest string, ok bool) {
	i := strings.IndexByte(content, '\n')
	if i < 0 {
		return content, "", false
	}
	return content[:i], content[i+1:], true
}

func join(title, body string) string {
	if body == "" {
		return title
	}
	return title + "\n\n" + body
}

func withMarker(s string) string {
	if s == "" {
		return Marker
	}
	return s + "\n\n" + Marker
}

func firstRunes(s string, n int) string {
	if n <= 0 {
		return ""
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

func runeLen(s string) int { return utf8.RuneCountInString(s) }

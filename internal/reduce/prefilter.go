package reduce

import (
	"regexp"
	"strings"
)

var headingLineRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

var paragraphSplitRe = regexp.MustCompile(`\n[ \t]*\n`)

// Headings that open a section of page chrome rather than content.
var boilerplateHeadings = []string{
	"comment", "leave a reply", "leave a comment", "related", "you may also like",
	"recommended", "read more", "more from", "share", "subscribe", "newsletter",
	"advertisement", "sponsored",
	"相关", "推荐阅读", "热门", "猜你喜欢", "评论", "留言", "分享", "广告", "版权",
}

// Short paragraphs containing any of these are dropped.
var boilerplatePhrases = []string{
	"all rights reserved", "copyright ©", "this site uses cookies", "we use cookies",
	"accept cookies", "share on", "share this", "follow us", "subscribe to",
	"sign up for our", "advertisement", "back to top",
	"版权所有", "未经授权", "分享到", "扫码关注", "关注我们", "返回顶部", "免责声明",
}

const boilerplateParagraphMaxRunes = 160

// PreFilter removes obvious non-content sections from a Markdown document:
// sections under chrome headings such as "Comments" or "相关文章" up to the
// next heading of the same or higher rank, and short boilerplate lines like
// copyright or share prompts. The title line is kept verbatim.
func PreFilter(content string) string {
	title, rest, ok := splitTitle(content)
	if !ok {
		return content
	}
	paras := paragraphSplitRe.Split(strings.ReplaceAll(rest, "\r\n", "\n"), -1)
	kept := make([]string, 0, len(paras))
	skipRank := 0
	for _, p := range paras {
		p = strings.Trim(p, "\n")
		if strings.TrimSpace(p) == "" {
			continue
		}
		rank, text := headingOf(p)
		if skipRank > 0 {
			if rank == 0 || rank > skipRank {
				continue
			}
			skipRank = 0
		}
		if rank > 0 && isBoilerplateHeading(text) {
			skipRank = rank
			continue
		}
		if rank == 0 && isBoilerplateParagraph(p) {
			continue
		}
		kept = append(kept, p)
	}
	return join(title, strings.Join(kept, "\n\n"))
}

// headingOf reports the rank and text of a heading on the paragraph's first
// line, or rank 0.
func headingOf(p string) (int, string) {
	first := p
	if i := strings.IndexByte(p, '\n'); i >= 0 {
		first = p[:i]
	}
	m := headingLineRe.FindStringSubmatch(strings.TrimSpace(first))
	if m == nil {
		return 0, ""
	}
	return len(m[1]), m[2]
}

func isBoilerplateHeading(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimLeft(t, "*_ ")
	for _, h := range boilerplateHeadings {
		if strings.HasPrefix(t, h) {
			return true
		}
	}
	return false
}

func isBoilerplateParagraph(p string) bool {
	if runeLen(p) > boilerplateParagraphMaxRunes {
		return false
	}
	lower := strings.ToLower(p)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

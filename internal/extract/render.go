package extract

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type listState struct {
	ordered bool
	next    int
}

// renderer walks an HTML subtree and writes Markdown: ATX headings, fenced
// code, "-" bullets, "---" rules, inline emphasis, links and images.
type renderer struct {
	b      strings.Builder
	hidden func(*html.Node) bool
	lists  []listState
}

func renderMarkdown(n *html.Node, hidden func(*html.Node) bool) string {
	r := &renderer{hidden: hidden}
	r.node(n)
	return r.b.String()
}

// inline renders the children of n on a single line.
func (r *renderer) inline(n *html.Node) string {
	sub := &renderer{hidden: r.hidden}
	sub.children(n)
	return strings.TrimSpace(collapseSpaces(strings.ReplaceAll(sub.b.String(), "\n", " ")))
}

func (r *renderer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.node(c)
	}
}

func (r *renderer) block(s string) {
	r.b.WriteString("\n\n")
	r.b.WriteString(s)
	r.b.WriteString("\n\n")
}

func (r *renderer) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.b.WriteString(whitespaceToSpace(n.Data))
		return
	case html.DocumentNode:
		r.children(n)
		return
	case html.ElementNode:
	default:
		return
	}
	if r.hidden != nil && r.hidden(n) {
		return
	}

	switch name := strings.ToLower(n.Data); name {
	case "script", "style", "noscript", "template", "svg", "head", "button", "select", "input":
		return
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if text := r.inline(n); text != "" {
			level := int(name[1] - '0')
			r.block(strings.Repeat("#", level) + " " + text)
		}
	case "p", "div", "section", "header", "figure", "figcaption", "details", "summary", "dl", "dd", "dt", "address":
		r.b.WriteString("\n\n")
		r.children(n)
		r.b.WriteString("\n\n")
	case "br":
		r.b.WriteString("\n")
	case "hr":
		r.block("---")
	case "pre":
		lang := codeLanguage(n)
		code := strings.Trim(textOf(n), "\n")
		r.block("```" + lang + "\n" + code + "\n```")
	case "code", "kbd", "samp":
		if text := strings.TrimSpace(textOf(n)); text != "" {
			r.b.WriteString("`" + text + "`")
		}
	case "strong", "b":
		r.wrap(n, "**")
	case "em", "i":
		r.wrap(n, "*")
	case "del", "s", "strike":
		r.wrap(n, "~~")
	case "a":
		text := r.inline(n)
		href := strings.TrimSpace(attr(n, "href"))
		switch {
		case text == "":
		case href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:"):
			r.b.WriteString(text)
		default:
			r.b.WriteString("[" + text + "](" + href + ")")
		}
	case "img":
		if src := strings.TrimSpace(attr(n, "src")); src != "" {
			r.b.WriteString("![" + strings.TrimSpace(attr(n, "alt")) + "](" + src + ")")
		}
	case "ul", "ol":
		r.lists = append(r.lists, listState{ordered: name == "ol", next: startOf(n)})
		r.b.WriteString("\n\n")
		r.children(n)
		r.b.WriteString("\n\n")
		r.lists = r.lists[:len(r.lists)-1]
	case "li":
		r.listItem(n)
	case "blockquote":
		sub := &renderer{hidden: r.hidden}
		sub.children(n)
		lines := strings.Split(strings.TrimSpace(normalizeWhitespace(sub.b.String())), "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight("> "+l, " ")
		}
		r.block(strings.Join(lines, "\n"))
	case "table":
		r.b.WriteString("\n\n")
		r.children(n)
		r.b.WriteString("\n\n")
	case "tr":
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") && !(r.hidden != nil && r.hidden(c)) {
				cells = append(cells, r.inline(c))
			}
		}
		if len(cells) > 0 {
			r.b.WriteString("\n| " + strings.Join(cells, " | ") + " |\n")
		}
	default:
		r.children(n)
	}
}

func (r *renderer) wrap(n *html.Node, mark string) {
	if text := r.inline(n); text != "" {
		r.b.WriteString(mark + text + mark)
	}
}

func (r *renderer) listItem(n *html.Node) {
	depth := len(r.lists)
	marker := "- "
	if depth > 0 && r.lists[depth-1].ordered {
		marker = strconv.Itoa(r.lists[depth-1].next) + ". "
		r.lists[depth-1].next++
	}
	indent := ""
	if depth > 1 {
		indent = strings.Repeat("  ", depth-1)
	}
	sub := &renderer{hidden: r.hidden, lists: r.lists}
	sub.children(n)
	r.b.WriteString("\n" + indent + marker + strings.TrimSpace(sub.b.String()))
}

func startOf(n *html.Node) int {
	if v, err := strconv.Atoi(strings.TrimSpace(attr(n, "start"))); err == nil {
		return v
	}
	return 1
}

func codeLanguage(pre *html.Node) string {
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "code" {
			continue
		}
		for _, cls := range strings.Fields(attr(c, "class")) {
			if lang, ok := strings.CutPrefix(cls, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// textOf returns the raw text under n with whitespace preserved.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		if c.Type == html.ElementNode && c.Data == "br" {
			b.WriteString("\n")
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return b.String()
}

func whitespaceToSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', '\f':
			return ' '
		}
		return r
	}, s)
}

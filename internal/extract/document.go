package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is an element handle owned by a Document implementation.
type Node any

// Document is the capability surface extraction needs from a page snapshot.
// Implementations must treat the receiver as read-only except through a
// value returned by Clone.
type Document interface {
	Title() string
	// Clone returns an independent copy that may be mutated freely.
	Clone() (Document, error)
	// RemoveMatching detaches every element matching the CSS selector.
	RemoveMatching(selector string)
	// First returns the first element in document order matching selector.
	First(selector string) (Node, bool)
	Body() Node
	IsHidden(n Node) bool
	// Render converts the subtree under n to Markdown, omitting hidden elements.
	Render(n Node) (string, error)
}

// HTMLDocument implements Document over a parsed HTML tree.
type HTMLDocument struct {
	doc *goquery.Document
}

// ParseHTML parses raw HTML into an HTMLDocument.
func ParseHTML(input []byte) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

func (d *HTMLDocument) Title() string {
	t := d.doc.Find("head title").First()
	if t.Length() == 0 {
		t = d.doc.Find("title").First()
	}
	return strings.TrimSpace(collapseSpaces(t.Text()))
}

func (d *HTMLDocument) Clone() (Document, error) {
	if d == nil || d.doc == nil {
		return nil, errors.New("clone: nil document")
	}
	cloned := d.doc.Selection.Clone()
	if cloned.Length() == 0 {
		return nil, errors.New("clone: empty document")
	}
	return &HTMLDocument{doc: goquery.NewDocumentFromNode(cloned.Get(0))}, nil
}

func (d *HTMLDocument) RemoveMatching(selector string) {
	d.doc.Find(selector).Remove()
}

func (d *HTMLDocument) First(selector string) (Node, bool) {
	s := d.doc.Find(selector).First()
	if s.Length() == 0 {
		return nil, false
	}
	return s.Get(0), true
}

func (d *HTMLDocument) Body() Node {
	if s := d.doc.Find("body").First(); s.Length() > 0 {
		return s.Get(0)
	}
	return d.doc.Get(0)
}

func (d *HTMLDocument) IsHidden(n Node) bool {
	node, ok := n.(*html.Node)
	return ok && isHidden(node)
}

func (d *HTMLDocument) Render(n Node) (string, error) {
	node, ok := n.(*html.Node)
	if !ok || node == nil {
		return "", fmt.Errorf("render: unsupported node %T", n)
	}
	return renderMarkdown(node, isHidden), nil
}

// isHidden approximates computed visibility from markup alone: the hidden
// attribute, aria-hidden, hidden inputs, and inline styles that hide the
// element or give it zero height.
func isHidden(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(strings.TrimSpace(a.Val), "true") {
				return true
			}
		case "type":
			if n.Data == "input" && strings.EqualFold(strings.TrimSpace(a.Val), "hidden") {
				return true
			}
		case "style":
			if styleHides(a.Val) {
				return true
			}
		}
	}
	return false
}

func styleHides(style string) bool {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.ToLower(strings.TrimSpace(strings.Replace(v, "!important", "", 1)))
		switch k {
		case "display":
			if v == "none" {
				return true
			}
		case "visibility":
			if v == "hidden" || v == "collapse" {
				return true
			}
		case "height", "max-height":
			if isZeroLength(v) {
				return true
			}
		}
	}
	return false
}

func isZeroLength(v string) bool {
	num := strings.TrimRight(v, "abcdefghijklmnopqrstuvwxyz%")
	return num == "0" || num == "0.0" || num == ".0"
}

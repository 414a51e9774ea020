// Package dom is the minimal document-tree capability the extractors work
// against: descendant search by predicate, attribute lookup and normalized
// text. The only implementation is backed by goquery.
package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Node is one element of a parsed document.
type Node interface {
	// Tag returns the lower-case element name.
	Tag() string

	// Attr returns the attribute value and whether it was present.
	Attr(name string) (string, bool)

	// Text returns the element's text with whitespace collapsed and trimmed.
	Text() string

	// FindDescendants returns every descendant element matching pred,
	// in document order.
	FindDescendants(pred Predicate) []Node

	// First returns the first descendant matching pred.
	First(pred Predicate) (Node, bool)
}

// Predicate selects nodes.
type Predicate func(Node) bool

// Parse builds a tree from markup. The returned node is the document root.
func Parse(markup string) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	return &node{sel: doc.Selection}, nil
}

// FromSelection wraps an existing goquery selection (its first node).
func FromSelection(sel *goquery.Selection) Node {
	return &node{sel: sel.First()}
}

// MatchCSS compiles a CSS selector into a predicate. It panics on an
// invalid selector, so it is meant for package-level vocabularies.
func MatchCSS(selector string) Predicate {
	m := cascadia.MustCompile(selector)
	return func(n Node) bool {
		hn := htmlNode(n)
		return hn != nil && m.Match(hn)
	}
}

// Any matches when at least one of preds matches.
func Any(preds ...Predicate) Predicate {
	return func(n Node) bool {
		for _, p := range preds {
			if p(n) {
				return true
			}
		}
		return false
	}
}

// HasTag matches elements by name.
func HasTag(tags ...string) Predicate {
	return func(n Node) bool {
		t := n.Tag()
		for _, want := range tags {
			if t == want {
				return true
			}
		}
		return false
	}
}

// AttrContainsFold matches elements whose attribute contains substr,
// ignoring case.
func AttrContainsFold(attr, substr string) Predicate {
	substr = strings.ToLower(substr)
	return func(n Node) bool {
		v, ok := n.Attr(attr)
		return ok && strings.Contains(strings.ToLower(v), substr)
	}
}

// NormalizeSpace collapses whitespace runs into single spaces and trims.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type node struct {
	sel *goquery.Selection
}

func (n *node) Tag() string {
	hn := n.raw()
	if hn == nil || hn.Type != html.ElementNode {
		return ""
	}
	return hn.Data
}

func (n *node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n *node) Text() string {
	return NormalizeSpace(n.sel.Text())
}

func (n *node) FindDescendants(pred Predicate) []Node {
	var out []Node
	n.sel.Find("*").Each(func(_ int, s *goquery.Selection) {
		c := &node{sel: s}
		if pred(c) {
			out = append(out, c)
		}
	})
	return out
}

func (n *node) First(pred Predicate) (Node, bool) {
	var found Node
	n.sel.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		c := &node{sel: s}
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}

func (n *node) raw() *html.Node {
	if n.sel == nil || len(n.sel.Nodes) == 0 {
		return nil
	}
	return n.sel.Nodes[0]
}

func htmlNode(n Node) *html.Node {
	if gn, ok := n.(*node); ok {
		return gn.raw()
	}
	return nil
}

package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Block elements each produce one line with
// whitespace collapsed; preformatted blocks keep their line breaks.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var lines []string
	var inline strings.Builder

	flushInline := func() {
		if t := collapseSpace(inline.String()); t != "" {
			lines = append(lines, t)
		}
		inline.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			inline.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return
			case "br":
				flushInline()
				return
			case "pre":
				flushInline()
				for _, l := range strings.Split(textContent(n), "\n") {
					if strings.TrimSpace(l) != "" {
						lines = append(lines, strings.TrimRight(l, " \t\r"))
					}
				}
				return
			}
			if isBlock(n.Data) {
				flushInline()
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				flushInline()
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	flushInline()

	return strings.Join(lines, "\n"), nil
}

// HTMLText reduces an HTML fragment or page to plain text.
func HTMLText(r io.Reader) (string, error) {
	return (&HTMLParser{}).Parse(r)
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "main", "aside", "header", "footer", "nav",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"table", "thead", "tbody", "tr", "td", "th",
		"blockquote", "figure", "figcaption", "hr", "body":
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

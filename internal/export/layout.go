package export

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/resumer/internal/outline"
)

// A4 portrait, in points.
const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	marginX      = 56.0
	marginTop    = 64.0
	marginBottom = 64.0
	contentWidth = pageWidth - 2*marginX
)

// Style selects font and spacing for one rendered line.
type Style int

const (
	StyleBody Style = iota
	StyleTitle
	StyleSubtitle
	StyleSectionTitle
	StyleHeading
	StyleBold
	StyleCode
	StyleRule
	StyleBlank
)

type styleSpec struct {
	font       string
	size       int
	lineHeight float64
	charWidth  float64 // average glyph advance as a fraction of size
}

var styles = map[Style]styleSpec{
	StyleBody:         {"Helvetica", 11, 15, 0.5},
	StyleTitle:        {"Helvetica-Bold", 22, 30, 0.56},
	StyleSubtitle:     {"Helvetica", 10, 14, 0.5},
	StyleSectionTitle: {"Helvetica-Bold", 16, 24, 0.56},
	StyleHeading:      {"Helvetica-Bold", 13, 19, 0.56},
	StyleBold:         {"Helvetica-Bold", 11, 16, 0.55},
	StyleCode:         {"Courier", 10, 13, 0.6},
	StyleRule:         {"Helvetica", 11, 18, 0.5},
	StyleBlank:        {"Helvetica", 11, 7, 0.5},
}

// Line is one unwrapped logical line of output.
type Line struct {
	Text   string
	Style  Style
	Indent float64
}

// PlacedLine is a wrapped line with its baseline position, measured from the
// top-left corner of the page.
type PlacedLine struct {
	Text  string
	Style Style
	X     float64
	Y     float64
}

// Page is the content of one output page.
type Page struct {
	Lines []PlacedLine
}

// Layout paginates the document: the title block opens the first page and
// every section starts on a page of its own.
func Layout(title, subtitle string, sections []outline.Section) []Page {
	b := &pageBuilder{}
	b.newPage()
	b.add(Line{Text: title, Style: StyleTitle})
	if subtitle != "" {
		b.add(Line{Text: subtitle, Style: StyleSubtitle})
	}

	for i, sec := range sections {
		if i > 0 || len(b.cur.Lines) > 0 {
			b.newPage()
		}
		b.add(Line{Text: sec.Title, Style: StyleSectionTitle})
		b.add(Line{Style: StyleBlank})
		for _, l := range MarkdownLines(sec.Summary) {
			b.add(l)
		}
	}
	return b.finish()
}

type pageBuilder struct {
	pages []Page
	cur   *Page
	y     float64
}

func (b *pageBuilder) newPage() {
	if b.cur != nil {
		b.pages = append(b.pages, *b.cur)
	}
	b.cur = &Page{}
	b.y = marginTop
}

func (b *pageBuilder) add(l Line) {
	spec := styles[l.Style]
	if l.Style == StyleBlank {
		if len(b.cur.Lines) > 0 {
			b.y += spec.lineHeight
		}
		return
	}
	if l.Style == StyleRule {
		l.Text = strings.Repeat("_", int(contentWidth/(float64(spec.size)*spec.charWidth)))
	}

	width := contentWidth - l.Indent
	maxChars := int(width / (float64(spec.size) * spec.charWidth))
	for _, w := range wrapText(l.Text, maxChars) {
		if b.y+spec.lineHeight > pageHeight-marginBottom && len(b.cur.Lines) > 0 {
			b.newPage()
		}
		b.y += spec.lineHeight
		b.cur.Lines = append(b.cur.Lines, PlacedLine{
			Text:  w,
			Style: l.Style,
			X:     marginX + l.Indent,
			Y:     b.y,
		})
	}
}

func (b *pageBuilder) finish() []Page {
	if b.cur != nil {
		b.pages = append(b.pages, *b.cur)
		b.cur = nil
	}
	return b.pages
}

// wrapText breaks s into lines of at most maxChars runes, splitting on
// spaces and hard-splitting words that are longer than a line.
func wrapText(s string, maxChars int) []string {
	if maxChars < 1 {
		maxChars = 1
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, w := range words {
		for utf8.RuneCountInString(w) > maxChars {
			if curLen > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
				curLen = 0
			}
			r := []rune(w)
			lines = append(lines, string(r[:maxChars]))
			w = string(r[maxChars:])
		}
		wl := utf8.RuneCountInString(w)
		if wl == 0 {
			continue
		}
		switch {
		case curLen == 0:
			cur.WriteString(w)
			curLen = wl
		case curLen+1+wl <= maxChars:
			cur.WriteByte(' ')
			cur.WriteString(w)
			curLen += 1 + wl
		default:
			lines = append(lines, cur.String())
			cur.Reset()
			cur.WriteString(w)
			curLen = wl
		}
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// MarkdownLines converts a summary written in Markdown into styled lines.
// Inline markup is dropped; a paragraph made only of bold text is rendered
// bold, which is how subsection titles appear in a section summary.
func MarkdownLines(md string) []Line {
	src := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var out []Line
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		out = appendBlock(out, n, src, 0)
	}
	return out
}

const indentStep = 14.0

func appendBlock(out []Line, n ast.Node, src []byte, indent float64) []Line {
	switch node := n.(type) {
	case *ast.Heading:
		out = append(out, Line{Text: inlineText(node, src), Style: StyleHeading, Indent: indent})
		out = append(out, Line{Style: StyleBlank})
	case *ast.Paragraph, *ast.TextBlock:
		style := StyleBody
		if isBoldOnly(n) {
			style = StyleBold
		}
		for _, l := range strings.Split(inlineText(n, src), "\n") {
			if strings.TrimSpace(l) != "" {
				out = append(out, Line{Text: l, Style: style, Indent: indent})
			}
		}
		if _, ok := n.(*ast.Paragraph); ok {
			out = append(out, Line{Style: StyleBlank})
		}
	case *ast.List:
		num := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "-"
			if node.IsOrdered() {
				marker = strconv.Itoa(num) + "."
				num++
			}
			out = appendListItem(out, item, src, indent, marker)
		}
		if indent == 0 {
			out = append(out, Line{Style: StyleBlank})
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			out = append(out, Line{
				Text:   strings.TrimRight(string(seg.Value(src)), "\r\n"),
				Style:  StyleCode,
				Indent: indent + indentStep,
			})
		}
		out = append(out, Line{Style: StyleBlank})
	case *ast.ThematicBreak:
		out = append(out, Line{Style: StyleRule})
		out = append(out, Line{Style: StyleBlank})
	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			out = appendBlock(out, c, src, indent+indentStep)
		}
	case *ast.HTMLBlock:
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			out = appendBlock(out, c, src, indent)
		}
	}
	return out
}

func appendListItem(out []Line, item ast.Node, src []byte, indent float64, marker string) []Line {
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if first {
			switch c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				txt := strings.ReplaceAll(inlineText(c, src), "\n", " ")
				out = append(out, Line{Text: marker + " " + txt, Style: StyleBody, Indent: indent + indentStep})
				first = false
				continue
			}
		}
		out = appendBlock(out, c, src, indent+indentStep)
		first = false
	}
	return out
}

func isBoldOnly(n ast.Node) bool {
	c := n.FirstChild()
	if c == nil || c.NextSibling() != nil {
		return false
	}
	em, ok := c.(*ast.Emphasis)
	return ok && em.Level == 2
}

func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() {
				buf.WriteByte('\n')
			} else if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(src))
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}

package normalizer

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser converts markdown source records into Values using goldmark.
type MarkdownParser struct {
	parser goldmark.Markdown
}

// NewMarkdownParser creates a markdown parser with the table extension enabled.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// section is the content collected under one heading path.
type section struct {
	path  []string
	items []string
}

// headingInfo tracks heading level and text while walking the document.
type headingInfo struct {
	level int
	text  string
}

// Parse returns a Mapping with one entry per heading section, in document order.
// The key is the heading path joined by spaces; the value is a Sequence of the
// section's paragraphs, list items, table rows and code blocks.
// Text before the first heading is keyed by a title derived from filename.
func (p *MarkdownParser) Parse(content []byte, filename string) Value {
	if len(content) == 0 {
		return Mapping()
	}

	doc := p.parser.Parser().Parse(text.NewReader(content))

	var sections []*section
	var headingStack []headingInfo
	var current *section

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if current == nil {
			current = &section{path: []string{titleFromFilename(filename)}}
			sections = append(sections, current)
		}
		current.items = append(current.items, s)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			// Pop headings of equal or deeper level
			for len(headingStack) > 0 && headingStack[len(headingStack)-1].level >= node.Level {
				headingStack = headingStack[:len(headingStack)-1]
			}
			headingStack = append(headingStack, headingInfo{level: node.Level, text: extractTextFromNode(node, content)})

			path := make([]string, 0, len(headingStack))
			for _, h := range headingStack {
				if h.text != "" {
					path = append(path, h.text)
				}
			}
			current = &section{path: path}
			sections = append(sections, current)
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.ListItem:
			add(extractTextFromNode(node, content))
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock, *ast.FencedCodeBlock:
			var b strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(content))
			}
			add(b.String())
			return ast.WalkSkipChildren, nil

		default:
			// Table extension nodes: one item per row, cells joined by " | "
			kindName := n.Kind().String()
			if strings.Contains(kindName, "TableRow") || strings.Contains(kindName, "TableHeader") {
				add(extractTableRowText(n, content))
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		}
	})

	entries := make([]Entry, 0, len(sections))
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		items := make([]Value, len(s.items))
		for i, it := range s.items {
			items[i] = String(it)
		}
		entries = append(entries, Entry{Key: strings.Join(s.path, " "), Value: Sequence(items...)})
	}
	return Mapping(entries...)
}

// titleFromFilename removes the extension and capitalizes each word.
func titleFromFilename(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// extractTextFromNode extracts text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var b strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(content))
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// extractTableRowText extracts text from a table row, formatting cells with pipe separators.
func extractTableRowText(row ast.Node, content []byte) string {
	var b strings.Builder
	cellCount := 0

	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if strings.Contains(node.Kind().String(), "TableCell") {
			if cellCount > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(extractTextFromNode(node, content))
			cellCount++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}

package html

import (
	"context"
	"strings"

	"code.sajari.com/docconv"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/custodia-labs/canvas-sync/internal/core/ports/driven"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// CellSeparator joins table cells within a row.
const CellSeparator = " | "

// removedElements are dropped before text is collected.
const removedElements = "script, style, meta, link, noscript, head, svg"

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Extract converts HTML bytes to text. It never returns an error.
func (e *Extractor) Extract(_ context.Context, content []byte) (string, error) {
	return Extract(string(content)), nil
}

// parser is one stage of the extraction chain.
type parser struct {
	name string
	fn   func(string) (string, error)
}

// parsers are tried in order until one succeeds.
var parsers = []parser{
	{name: "dom", fn: extractDOM},
	{name: "docconv", fn: extractDocconv},
}

// Extract converts an HTML string to whitespace-normalised text.
func Extract(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	for _, p := range parsers {
		text, err := p.fn(src)
		if err == nil {
			return normaliseWhitespace(text)
		}
		logger.Warn("html: %s parser failed, trying next: %v", p.name, err)
	}

	return normaliseWhitespace(stripHTML(src))
}

// extractDOM parses the document, flattens tables and collects every
// text node separated by newlines.
func extractDOM(src string) (string, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", err
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find(removedElements).Remove()

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows []string
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.Join(strings.Fields(cell.Text()), " "))
			})
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, CellSeparator))
			}
		})
		if len(rows) == 0 {
			return
		}
		table.ReplaceWithNodes(&html.Node{
			Type: html.TextNode,
			Data: "\n" + strings.Join(rows, "\n") + "\n",
		})
	})

	return joinText(root, "\n"), nil
}

// extractDocconv uses docconv's HTML converter.
func extractDocconv(src string) (string, error) {
	text, _, err := docconv.ConvertHTML(strings.NewReader(src), false)
	return text, err
}

// joinText concatenates the text nodes under n with sep between them.
func joinText(n *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

// normaliseWhitespace trims every line, splits lines on runs of two
// spaces and drops empty fragments.
func normaliseWhitespace(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				out = append(out, phrase)
			}
		}
	}
	return strings.Join(out, "\n")
}

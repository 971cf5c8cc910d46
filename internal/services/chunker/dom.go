package chunker

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ternarybob/webflux/internal/models"
)

// contentSelectors locate the main content region, tried in priority
// order before falling back to body
var contentSelectors = []string{
	"article",
	"main",
	`[role="main"]`,
	"#content",
	".content",
	"body",
}

// excludedSelectors are removed from the content region before
// traversal
var excludedSelectors = []string{
	"nav", "header", "footer", "aside", "script", "style",
	".ads", ".sidebar",
}

// sectionTags emit one chunk per element when encountered
var sectionTags = map[string]bool{
	"section": true,
	"article": true,
}

// DomStrategy chunks by document structure: it walks the main content
// region maintaining a live heading path, emits one chunk per section
// boundary, and renders pre/code, table and list elements as dedicated
// Code, Table and List chunks.
type DomStrategy struct{}

func (s *DomStrategy) Name() string { return StrategyDomStructure }

func (s *DomStrategy) Description() string {
	return "Splits on DOM section boundaries with heading-path provenance"
}

// domWalker accumulates chunks while traversing the content region
type domWalker struct {
	content     *models.ExtractedContent
	opts        Options
	headingPath []string
	chunks      []models.Chunk
	buffer      strings.Builder
}

func (s *DomStrategy) Chunk(ctx context.Context, content *models.ExtractedContent, opts Options) ([]models.Chunk, error) {
	if content.RawHTML == "" {
		// Without HTML there is no structure to walk
		p := &ParagraphStrategy{}
		chunks, err := p.Chunk(ctx, content, opts)
		if err != nil {
			return nil, err
		}
		for i := range chunks {
			chunks[i].Strategy = StrategyDomStructure
		}
		return chunks, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.RawHTML))
	if err != nil {
		return nil, err
	}

	region := mainRegion(doc)
	for _, selector := range excludedSelectors {
		region.Find(selector).Remove()
	}

	w := &domWalker{content: content, opts: opts}
	region.Each(func(_ int, sel *goquery.Selection) {
		for _, node := range sel.Nodes {
			w.walk(node)
		}
	})
	w.flush()

	chunks := mergeShort(w.chunks, opts.MinChunkSize)
	for i := range chunks {
		chunks[i].Strategy = StrategyDomStructure
		chunks[i].StrategyParams = baseParams(opts)
		chunks[i].Quality = chunkQuality(chunks[i].Content, opts)
	}
	return chunks, nil
}

// mainRegion returns the first selector with a non-trivial text body
func mainRegion(doc *goquery.Document) *goquery.Selection {
	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 && len(strings.TrimSpace(sel.Text())) > 0 {
			return sel
		}
	}
	return doc.Selection
}

func (w *domWalker) walk(node *html.Node) {
	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			if w.buffer.Len() > 0 {
				w.buffer.WriteByte(' ')
			}
			w.buffer.WriteString(text)
		}
		return
	}
	if node.Type != html.ElementNode {
		return
	}

	switch node.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.flush()
		level := int(node.Data[1] - '0')
		w.pushHeading(level, nodeText(node))
		return

	case "pre", "code":
		// Nested code inside pre is handled by the pre
		w.flush()
		w.emit(nodeText(node), models.ChunkTypeCode)
		return

	case "table":
		w.flush()
		w.emit(renderTable(node), models.ChunkTypeTable)
		return

	case "ul", "ol":
		w.flush()
		w.emit(renderList(node), models.ChunkTypeList)
		return

	case "p", "br":
		if w.buffer.Len() > 0 {
			w.buffer.WriteByte('\n')
		}
	}

	isSection := sectionTags[node.Data] || (node.Data == "div" && hasClass(node, "section"))
	if isSection {
		w.flush()
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		w.walk(child)
	}

	if isSection {
		w.flush()
	}
}

// pushHeading updates the live heading path: entering level L pops
// entries at depth >= L, then appends
func (w *domWalker) pushHeading(level int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if level-1 < len(w.headingPath) {
		w.headingPath = w.headingPath[:level-1]
	}
	w.headingPath = append(w.headingPath, text)
}

// flush emits the buffered text as one or more Text chunks, splitting
// oversized sections at sentence boundaries
func (w *domWalker) flush() {
	text := strings.TrimSpace(w.buffer.String())
	w.buffer.Reset()
	if text == "" {
		return
	}
	for _, part := range splitSentences(text, w.opts.MaxChunkSize) {
		w.emit(part, models.ChunkTypeText)
	}
}

func (w *domWalker) emit(text string, chunkType models.ChunkType) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	chunk := models.Chunk{
		Content:   text,
		Type:      chunkType,
		SourceURL: w.content.SourceURL,
	}
	if len(w.headingPath) > 0 {
		chunk.HeadingPath = append([]string(nil), w.headingPath...)
		chunk.SectionTitle = w.headingPath[len(w.headingPath)-1]
	}
	w.chunks = append(w.chunks, chunk)
}

// renderTable flattens a table to one "cell | cell" line per row
func renderTable(node *html.Node) string {
	var rows []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					if text := strings.TrimSpace(nodeText(c)); text != "" {
						cells = append(cells, text)
					}
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(node)
	return strings.Join(rows, "\n")
}

// renderList flattens a list to "• item" lines
func renderList(node *html.Node) string {
	var items []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				items = append(items, "• "+text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(node)
	return strings.Join(items, "\n")
}

// nodeText concatenates all descendant text with single-space joins
func nodeText(node *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(node)
	return sb.String()
}

func hasClass(node *html.Node, class string) bool {
	for _, attr := range node.Attr {
		if attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

package chunker

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/webflux/internal/models"
)

// MarkdownStrategy chunks markdown by its AST: heading sections become
// chunk boundaries with heading-path provenance, and fenced code
// blocks, tables rendered as pipes, and lists keep their chunk type.
// It operates on the extract stage's markdown rendition and falls back
// to paragraph chunking when none is present.
type MarkdownStrategy struct{}

func (s *MarkdownStrategy) Name() string { return StrategyMarkdown }

func (s *MarkdownStrategy) Description() string {
	return "Splits markdown at heading boundaries via the parsed AST"
}

func (s *MarkdownStrategy) Chunk(ctx context.Context, content *models.ExtractedContent, opts Options) ([]models.Chunk, error) {
	source := []byte(content.Markdown)
	if len(strings.TrimSpace(content.Markdown)) == 0 {
		p := &ParagraphStrategy{}
		chunks, err := p.Chunk(ctx, content, opts)
		if err != nil {
			return nil, err
		}
		for i := range chunks {
			chunks[i].Strategy = StrategyMarkdown
		}
		return chunks, nil
	}

	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	w := &markdownWalker{content: content, opts: opts}
	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		w.visit(node, source)
	}
	w.flush()

	chunks := mergeShort(w.chunks, opts.MinChunkSize)
	for i := range chunks {
		chunks[i].Strategy = StrategyMarkdown
		chunks[i].StrategyParams = baseParams(opts)
		chunks[i].Quality = chunkQuality(chunks[i].Content, opts)
	}
	return chunks, nil
}

type markdownWalker struct {
	content     *models.ExtractedContent
	opts        Options
	headingPath []string
	chunks      []models.Chunk
	buffer      strings.Builder
}

func (w *markdownWalker) visit(node ast.Node, source []byte) {
	switch n := node.(type) {
	case *ast.Heading:
		w.flush()
		title := string(n.Text(source))
		if n.Level-1 < len(w.headingPath) {
			w.headingPath = w.headingPath[:n.Level-1]
		}
		if title != "" {
			w.headingPath = append(w.headingPath, title)
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.flush()
		w.emit(blockLines(node, source), models.ChunkTypeCode)

	case *ast.List:
		w.flush()
		var items []string
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			if text := strings.TrimSpace(nodePlainText(item, source)); text != "" {
				items = append(items, "• "+text)
			}
		}
		w.emit(strings.Join(items, "\n"), models.ChunkTypeList)

	default:
		if text := strings.TrimSpace(nodePlainText(node, source)); text != "" {
			if w.buffer.Len() > 0 {
				w.buffer.WriteString("\n\n")
			}
			w.buffer.WriteString(text)
		}
	}
}

func (w *markdownWalker) flush() {
	body := strings.TrimSpace(w.buffer.String())
	w.buffer.Reset()
	if body == "" {
		return
	}
	for _, part := range splitSentences(body, w.opts.MaxChunkSize) {
		w.emit(part, models.ChunkTypeText)
	}
}

func (w *markdownWalker) emit(body string, chunkType models.ChunkType) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	chunk := models.Chunk{
		Content:   body,
		Type:      chunkType,
		SourceURL: w.content.SourceURL,
	}
	if len(w.headingPath) > 0 {
		chunk.HeadingPath = append([]string(nil), w.headingPath...)
		chunk.SectionTitle = w.headingPath[len(w.headingPath)-1]
	}
	w.chunks = append(w.chunks, chunk)
}

// blockLines reconstructs the raw lines of a code block node
func blockLines(node ast.Node, source []byte) string {
	var sb strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
	}
	return sb.String()
}

// nodePlainText renders a node's inline text content
func nodePlainText(node ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

const articleHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Understanding Goroutines</title>
<meta name="description" content="A deep dive into Go concurrency">
<meta name="keywords" content="go, concurrency, goroutines">
<meta name="author" content="Jo Writer">
<meta name="viewport" content="width=device-width">
<link rel="canonical" href="/articles/goroutines">
<link rel="alternate" hreflang="ko" href="/ko/articles/goroutines">
<meta property="og:title" content="Understanding Goroutines">
<meta property="og:description" content="A deep dive into Go concurrency">
<meta property="og:image" content="https://example.com/cover.png">
<meta property="og:image:width" content="1200">
<meta property="og:image:height" content="630">
<meta property="og:type" content="article">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="Understanding Goroutines">
<meta name="DC.creator" content="Jo Writer">
<meta name="dcterms.date" content="2024-03-01">
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"BlogPosting","headline":"Understanding Goroutines","author":{"@type":"Person","name":"Jo Writer"},"datePublished":"2024-03-01T09:00:00Z"}
</script>
</head>
<body>
<h1>Understanding Goroutines</h1>
<p>First paragraph about scheduling.</p>
<h2>The Scheduler</h2>
<p>Second paragraph.</p>
<p>Third paragraph.</p>
<h3>Work Stealing</h3>
<p>Details.</p>
<h2>Channels</h2>
<p>More prose here.</p>
</body>
</html>`

func TestExtract_BasicMetadata(t *testing.T) {
	extractor := NewExtractor(testLogger())

	meta, err := extractor.Extract(articleHTML, "https://example.com/articles/goroutines")
	require.NoError(t, err)

	assert.Equal(t, "Understanding Goroutines", meta.Basic.Title)
	assert.Equal(t, "A deep dive into Go concurrency", meta.Basic.Description)
	assert.Equal(t, []string{"go", "concurrency", "goroutines"}, meta.Basic.Keywords)
	assert.Equal(t, "Jo Writer", meta.Basic.Author)
	assert.Equal(t, "en", meta.Basic.Language)
	assert.Equal(t, "utf-8", meta.Basic.Charset)
	assert.Equal(t, "https://example.com/articles/goroutines", meta.Basic.Canonical, "canonical resolves relative to source")
	assert.Equal(t, "https://example.com/ko/articles/goroutines", meta.Basic.Alternates["ko"])
}

func TestExtract_OpenGraphAndTwitter(t *testing.T) {
	extractor := NewExtractor(testLogger())

	meta, err := extractor.Extract(articleHTML, "https://example.com/articles/goroutines")
	require.NoError(t, err)

	assert.Equal(t, "Understanding Goroutines", meta.OpenGraph.Title)
	assert.Equal(t, "https://example.com/cover.png", meta.OpenGraph.Image)
	assert.Equal(t, 1200, meta.OpenGraph.ImageWidth)
	assert.Equal(t, 630, meta.OpenGraph.ImageHeight)
	assert.Equal(t, "article", meta.OpenGraph.Type)

	assert.Equal(t, "summary_large_image", meta.TwitterCard.Card)
	assert.Equal(t, "Understanding Goroutines", meta.TwitterCard.Title)
}

func TestExtract_DublinCore(t *testing.T) {
	extractor := NewExtractor(testLogger())

	meta, err := extractor.Extract(articleHTML, "https://example.com/articles/goroutines")
	require.NoError(t, err)

	assert.Equal(t, "Jo Writer", meta.DublinCore.Creator)
	assert.Equal(t, "2024-03-01", meta.DublinCore.Date)
}

func TestExtract_SchemaOrgArticleFromAlias(t *testing.T) {
	extractor := NewExtractor(testLogger())

	meta, err := extractor.Extract(articleHTML, "https://example.com/articles/goroutines")
	require.NoError(t, err)

	// BlogPosting dispatches to the article extractor but keeps its
	// original casing as the main entity type
	assert.Equal(t, "BlogPosting", meta.SchemaOrg.MainEntityType)
	require.NotNil(t, meta.SchemaOrg.Article)
	assert.Equal(t, "Understanding Goroutines", meta.SchemaOrg.Article.Headline)
	assert.Equal(t, "Jo Writer", meta.SchemaOrg.Article.Author)
	require.NotNil(t, meta.SchemaOrg.Article.DatePublished)
	assert.Equal(t, 2024, meta.SchemaOrg.Article.DatePublished.Year())
	assert.Len(t, meta.SchemaOrg.RawJSONLD, 1)
}

func TestExtract_SchemaOrgArticleKeepsTypeCasing(t *testing.T) {
	extractor := NewExtractor(testLogger())
	html := `<html><head>
<script type="application/ld+json">{"@type":"Article","headline":"H","datePublished":"2024-01-02T03:04:05Z","author":{"name":"Ada"}}</script>
</head><body><p>text</p></body></html>`

	meta, err := extractor.Extract(html, "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, "Article", meta.SchemaOrg.MainEntityType)
	require.NotNil(t, meta.SchemaOrg.Article)
	assert.Equal(t, "H", meta.SchemaOrg.Article.Headline)
	assert.Equal(t, "Ada", meta.SchemaOrg.Article.Author)
	require.NotNil(t, meta.SchemaOrg.Article.DatePublished)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), meta.SchemaOrg.Article.DatePublished.UTC())
}

func TestExtract_MalformedJSONLDSkipped(t *testing.T) {
	extractor := NewExtractor(testLogger())
	html := `<html><head>
<script type="application/ld+json">{not valid json</script>
<script type="application/ld+json">{"@type":"Organization","name":"Acme"}</script>
</head><body><p>text</p></body></html>`

	meta, err := extractor.Extract(html, "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, "Organization", meta.SchemaOrg.MainEntityType)
	require.NotNil(t, meta.SchemaOrg.Organization)
	assert.Equal(t, "Acme", meta.SchemaOrg.Organization.Name)
}

func TestExtract_HeadingTree(t *testing.T) {
	extractor := NewExtractor(testLogger())

	meta, err := extractor.Extract(articleHTML, "https://example.com/articles/goroutines")
	require.NoError(t, err)

	require.Len(t, meta.Structure.Headings, 4)
	require.Len(t, meta.Structure.HeadingTree, 1)

	root := meta.Structure.HeadingTree[0]
	assert.Equal(t, "Understanding Goroutines", root.Text)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "The Scheduler", root.Children[0].Text)
	assert.Equal(t, "Channels", root.Children[1].Text)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, "Work Stealing", root.Children[0].Children[0].Text)
}

func TestExtract_StructureCounts(t *testing.T) {
	extractor := NewExtractor(testLogger())

	meta, err := extractor.Extract(articleHTML, "https://example.com/articles/goroutines")
	require.NoError(t, err)

	assert.Equal(t, 5, meta.Structure.ParagraphCount)
	assert.Positive(t, meta.Structure.WordCount)
	assert.Equal(t, 1, meta.Structure.ReadingTimeMin, "short pages round up to one minute")
}

func TestExtract_Accessibility(t *testing.T) {
	extractor := NewExtractor(testLogger())
	html := `<html><body>
<a href="#main">Skip to content</a>
<h1>Title</h1>
<h2 aria-label="section">Section</h2>
<img src="a.png" alt="diagram">
<img src="b.png">
</body></html>`

	meta, err := extractor.Extract(html, "https://example.com/")
	require.NoError(t, err)

	acc := meta.Accessibility
	assert.InDelta(t, 0.5, acc.AltTextCoverage, 0.001)
	assert.True(t, acc.ValidHeadingHierarchy)
	assert.True(t, acc.HasSkipNav)
	assert.True(t, acc.UsesARIA)
	// 40*0.5 + 25 + 15 + 20
	assert.InDelta(t, 80.0, acc.Score, 0.001)
}

func TestExtract_AccessibilityNoHeadingsInvalid(t *testing.T) {
	extractor := NewExtractor(testLogger())
	html := `<html><body><p>no headings at all</p></body></html>`

	meta, err := extractor.Extract(html, "https://example.com/")
	require.NoError(t, err)

	assert.False(t, meta.Accessibility.ValidHeadingHierarchy)
	assert.Equal(t, 1.0, meta.Accessibility.AltTextCoverage, "no images counts as full coverage")
}

func TestExtract_AccessibilitySkippedLevelInvalid(t *testing.T) {
	extractor := NewExtractor(testLogger())
	html := `<html><body><h1>Top</h1><h3>Skipped h2</h3></body></html>`

	meta, err := extractor.Extract(html, "https://example.com/")
	require.NoError(t, err)
	assert.False(t, meta.Accessibility.ValidHeadingHierarchy)
}

func TestExtract_CompletenessScore(t *testing.T) {
	extractor := NewExtractor(testLogger())

	rich, err := extractor.Extract(articleHTML, "https://example.com/articles/goroutines")
	require.NoError(t, err)

	bare, err := extractor.Extract(`<html><body><p>hi</p></body></html>`, "https://example.com/")
	require.NoError(t, err)

	assert.Greater(t, rich.Score, 0.5)
	assert.Greater(t, rich.Score, bare.Score)
	assert.LessOrEqual(t, rich.Score, 1.0)
}

package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/webflux/internal/models"
)

const pageHTML = `<html>
<head><title>  Test Page  </title></head>
<body>
<nav>Navigation links here</nav>
<article>
<h1 id="top">Main Heading</h1>
<p>First paragraph of real content.</p>
<h2>Subsection</h2>
<p>Second paragraph with a <a href="/relative">relative link</a> and an
<a href="https://other.example.org/page">external link</a>.</p>
<img src="/img/diagram.png?v=2" alt="architecture diagram" width="640" height="480">
</article>
<footer>Footer boilerplate</footer>
</body>
</html>`

func fetchResultFor(html string) *models.FetchResult {
	return &models.FetchResult{
		URL:          "https://example.com/docs/page",
		EffectiveURL: "https://example.com/docs/page",
		StatusCode:   200,
		Body:         []byte(html),
		ContentType:  "text/html",
	}
}

func TestExtract_MainTextExcludesChrome(t *testing.T) {
	extractor := NewContentExtractor(testLogger())

	content, err := extractor.Extract(fetchResultFor(pageHTML))
	require.NoError(t, err)

	assert.Equal(t, "Test Page", content.Title)
	assert.Contains(t, content.MainText, "First paragraph of real content.")
	assert.NotContains(t, content.MainText, "Navigation links")
	assert.NotContains(t, content.MainText, "Footer boilerplate")
}

func TestExtract_LinksNormalizedAndDeduplicated(t *testing.T) {
	extractor := NewContentExtractor(testLogger())

	content, err := extractor.Extract(fetchResultFor(pageHTML))
	require.NoError(t, err)
	require.Len(t, content.Links, 2)

	assert.Equal(t, "https://example.com/relative", content.Links[0].URL, "relative hrefs resolve against the page")
	assert.True(t, content.Links[0].Internal)
	assert.Equal(t, "https://other.example.org/page", content.Links[1].URL)
	assert.False(t, content.Links[1].Internal)
}

func TestExtract_ManifestLinkResolved(t *testing.T) {
	extractor := NewContentExtractor(testLogger())
	html := `<html>
<head><link rel="manifest" href="/static/app.webmanifest"></head>
<body><article><p>body text</p></article></body>
</html>`

	content, err := extractor.Extract(fetchResultFor(html))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/static/app.webmanifest", content.ManifestURL)

	content, err = extractor.Extract(fetchResultFor(pageHTML))
	require.NoError(t, err)
	assert.Empty(t, content.ManifestURL, "pages without a manifest link leave the field unset")
}

func TestExtract_SkipsNonNavigableLinks(t *testing.T) {
	extractor := NewContentExtractor(testLogger())
	html := `<html><body><article><p>body text</p>
<a href="#section">anchor</a>
<a href="javascript:void(0)">js</a>
<a href="mailto:x@example.com">mail</a>
<a href="/real">real</a>
<a href="/real#frag">same after normalization</a>
</article></body></html>`

	content, err := extractor.Extract(fetchResultFor(html))
	require.NoError(t, err)
	require.Len(t, content.Links, 1)
	assert.Equal(t, "https://example.com/real", content.Links[0].URL)
}

func TestExtract_Images(t *testing.T) {
	extractor := NewContentExtractor(testLogger())

	content, err := extractor.Extract(fetchResultFor(pageHTML))
	require.NoError(t, err)
	require.Len(t, content.Images, 1)

	img := content.Images[0]
	assert.Equal(t, "https://example.com/img/diagram.png?v=2", img.URL)
	assert.Equal(t, "architecture diagram", img.Alt)
	assert.Equal(t, "png", img.Format, "format comes from the extension, query ignored")
	assert.Equal(t, 640, img.Width)
	assert.Equal(t, 480, img.Height)
}

func TestExtract_HeadingsInDocumentOrder(t *testing.T) {
	extractor := NewContentExtractor(testLogger())

	content, err := extractor.Extract(fetchResultFor(pageHTML))
	require.NoError(t, err)
	require.Len(t, content.Headings, 2)
	assert.Equal(t, models.Heading{Level: 1, Text: "Main Heading", Anchor: "top"}, content.Headings[0])
	assert.Equal(t, 2, content.Headings[1].Level)
}

func TestExtract_MarkdownAndQualityPopulated(t *testing.T) {
	extractor := NewContentExtractor(testLogger())

	content, err := extractor.Extract(fetchResultFor(pageHTML))
	require.NoError(t, err)

	assert.Contains(t, content.Markdown, "First paragraph of real content.")
	require.NotNil(t, content.Quality)
	assert.True(t, content.Quality.IsHTTPS)
	require.NotNil(t, content.Metadata)
}

func TestCollapseWhitespace(t *testing.T) {
	in := "  line   one \n\n\n\n  line two  \n\n"
	assert.Equal(t, "line one\n\nline two", collapseWhitespace(in))
}

func TestExtractLinks_Standalone(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><a href="/a">A</a><a href="/a">dup</a><a rel="nofollow" href="/b">B</a></body></html>`))
	require.NoError(t, err)

	links := ExtractLinks(doc, "https://example.com/")
	require.Len(t, links, 2)
	assert.Equal(t, "https://example.com/a", links[0].URL)
	assert.Equal(t, "nofollow", links[1].Rel)
}

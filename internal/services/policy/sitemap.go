package policy

import (
	"encoding/xml"
	"strings"
)

// maxSitemapURLs bounds how many URLs a single sitemap contributes
const maxSitemapURLs = 5000

// sitemapURLSet is the <urlset> document shape
type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// sitemapIndex is the <sitemapindex> document shape
type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// ParseSitemap parses a sitemap body and returns page URLs and nested
// sitemap URLs. Both the urlset and sitemapindex forms are accepted; a
// body that parses as neither yields empty results.
func ParseSitemap(body []byte) (pages []string, nested []string) {
	var urlset sitemapURLSet
	if err := xml.Unmarshal(body, &urlset); err == nil && len(urlset.URLs) > 0 {
		for _, u := range urlset.URLs {
			loc := strings.TrimSpace(u.Loc)
			if loc == "" {
				continue
			}
			pages = append(pages, loc)
			if len(pages) >= maxSitemapURLs {
				break
			}
		}
		return pages, nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil {
		for _, s := range index.Sitemaps {
			loc := strings.TrimSpace(s.Loc)
			if loc != "" {
				nested = append(nested, loc)
			}
		}
	}

	return pages, nested
}

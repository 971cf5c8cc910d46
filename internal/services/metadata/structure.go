package metadata

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/webflux/internal/models"
)

const wordsPerMinute = 250

// extractStructure walks the document and summarizes its shape: the
// flat heading list in document order, a nested heading tree, element
// counts, word count and reading time
func (e *Extractor) extractStructure(doc *goquery.Document) models.DocumentStructure {
	var st models.DocumentStructure

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		level, _ := strconv.Atoi(goquery.NodeName(s)[1:])
		st.Headings = append(st.Headings, models.Heading{
			Level:  level,
			Text:   text,
			Anchor: s.AttrOr("id", ""),
		})
	})
	st.HeadingTree = buildHeadingTree(st.Headings)

	st.SectionCount = doc.Find("section").Length()
	st.ParagraphCount = doc.Find("p").Length()
	st.LinkCount = doc.Find("a[href]").Length()
	st.ImageCount = doc.Find("img").Length()
	st.TableCount = doc.Find("table").Length()
	st.ListCount = doc.Find("ul, ol").Length()
	st.CodeBlockCount = doc.Find("pre, code").Length()

	body := doc.Find("body")
	text := body.Text()
	if body.Length() == 0 {
		text = doc.Text()
	}
	st.WordCount = len(strings.Fields(text))
	st.ReadingTimeMin = (st.WordCount + wordsPerMinute - 1) / wordsPerMinute
	st.Complexity = structuralComplexity(st)

	return st
}

// buildHeadingTree nests the flat heading list: a heading becomes a
// child of the nearest preceding heading with a smaller level
func buildHeadingTree(headings []models.Heading) []models.HeadingNode {
	var roots []models.HeadingNode
	var stack []*models.HeadingNode

	for _, h := range headings {
		node := models.HeadingNode{Level: h.Level, Text: h.Text, Anchor: h.Anchor}

		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, node)
			stack = append(stack, &roots[len(roots)-1])
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			stack = append(stack, &parent.Children[len(parent.Children)-1])
		}
	}

	return roots
}

// structuralComplexity scores how much non-prose structure a page
// carries, in [0,1]
func structuralComplexity(st models.DocumentStructure) float64 {
	var score float64
	if len(st.Headings) > 3 {
		score += 0.25
	} else if len(st.Headings) > 0 {
		score += 0.10
	}
	if st.TableCount > 0 {
		score += 0.25
	}
	if st.CodeBlockCount > 0 {
		score += 0.25
	}
	if st.ListCount > 2 {
		score += 0.15
	} else if st.ListCount > 0 {
		score += 0.05
	}
	if st.SectionCount > 3 {
		score += 0.10
	}
	if score > 1 {
		score = 1
	}
	return score
}

// extractAccessibility scores accessibility signals: alt coverage 40%,
// valid heading hierarchy 25%, skip navigation 15%, ARIA usage 20%
func (e *Extractor) extractAccessibility(doc *goquery.Document) models.AccessibilityInfo {
	info := models.AccessibilityInfo{AltTextCoverage: 1.0}

	images := doc.Find("img")
	if total := images.Length(); total > 0 {
		withAlt := 0
		images.Each(func(_ int, s *goquery.Selection) {
			if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
				withAlt++
			}
		})
		info.AltTextCoverage = float64(withAlt) / float64(total)
	}

	info.ValidHeadingHierarchy = validHierarchy(doc)
	info.HasSkipNav = doc.Find(`a[href^="#"]`).FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		return strings.Contains(text, "skip")
	}).Length() > 0
	info.UsesARIA = doc.Find("[aria-label], [aria-labelledby], [aria-describedby], [role]").Length() > 0

	score := 40*info.AltTextCoverage +
		25*boolScore(info.ValidHeadingHierarchy) +
		15*boolScore(info.HasSkipNav) +
		20*boolScore(info.UsesARIA)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	info.Score = score

	return info
}

// validHierarchy requires the first heading to be an h1 and no level to
// be skipped on the way down
func validHierarchy(doc *goquery.Document) bool {
	valid := true
	first := true
	prev := 0

	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		level, _ := strconv.Atoi(goquery.NodeName(s)[1:])
		if first {
			if level != 1 {
				valid = false
				return false
			}
			first = false
		} else if level > prev+1 {
			valid = false
			return false
		}
		prev = level
		return true
	})

	if first {
		return false
	}
	return valid
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

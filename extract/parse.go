package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Result is everything the extractor could derive from one article
// page. Fields the heuristics cannot resolve stay empty, they are
// never guessed.
type Result struct {
	Title        string
	Author       string
	CanonicalUrl string
	Summary      string
	ContentText  string
	Images       []string
	PressContact string
	Error        string
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Sub-heading marker for a contact block, matched case-insensitively
	// against locale-specific contact keywords.
	contactHeadingRe = regexp.MustCompile(`(?i)\b(pressekontakt|press contact|kontakt|agentur)\b`)
	// Line marker starting a trailing press-contact section.
	contactMarkerRe = regexp.MustCompile(`(?i)\b(pressekontakt|press contact|presse-kontakt|agentur)\b`)
	// Known sign-off markers ending a press-contact section.
	signOffRe = regexp.MustCompile(`(?i)\b(original-content von|ots:|newsroom:|alle meldungen|zum newsroom)\b`)

	bylineRe = regexp.MustCompile(`(?i)(?:Von|Autor(?:in)?)\s*[:\-]\s*([^<\n\r]{3,120})`)
)

const (
	// Lines captured after a contact marker before giving up.
	pressContactFollowLines = 5
	// Rune budget for a summary derived from the body text.
	summaryFallbackRunes = 320
)

func cleanText(raw string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ParsePage runs all extraction heuristics over one HTML document.
// Pure: no I/O, unit-testable with literal fixtures. Heuristics are
// ordered by specificity: structured metadata first, document
// structure as fallback.
func ParsePage(doc *goquery.Document, pageUrl string) Result {
	result := Result{
		Title:        extractTitle(doc),
		Author:       extractAuthor(doc),
		CanonicalUrl: cleanText(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", "")),
		Summary:      metaContent(doc, `meta[name="description"]`),
		Images:       extractImages(doc, pageUrl),
		ContentText:  extractContentText(doc),
	}
	if result.Summary == "" && result.ContentText != "" {
		// Cut on rune boundaries so a multi-byte character on the edge
		// cannot produce invalid UTF-8.
		result.Summary = cleanText(truncateRunes(result.ContentText, summaryFallbackRunes))
	}
	result.PressContact = extractPressContact(result.ContentText)
	return result
}

func metaContent(doc *goquery.Document, selector string) string {
	return cleanText(doc.Find(selector).First().AttrOr("content", ""))
}

func extractTitle(doc *goquery.Document) string {
	if title := metaContent(doc, `meta[property="og:title"]`); title != "" {
		return title
	}
	if title := cleanText(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return cleanText(doc.Find("h1").First().Text())
}

func extractAuthor(doc *goquery.Document) string {
	for _, selector := range []string{
		`meta[name="author"]`,
		`meta[property="article:author"]`,
		`meta[property="og:article:author"]`,
	} {
		if author := metaContent(doc, selector); author != "" {
			return author
		}
	}

	// Byline fallbacks: an explicit "Von:"/"Autor:" marker anywhere in
	// the page, then the first author/byline-classed element.
	if html, err := doc.Html(); err == nil {
		if match := bylineRe.FindStringSubmatch(html); match != nil {
			if author := cleanText(match[1]); author != "" {
				return author
			}
		}
	}
	author := ""
	doc.Find(`[class*="author"], [class*="byline"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := cleanText(sel.Text()); text != "" && len(text) <= 180 {
			author = text
			return false
		}
		return true
	})
	return author
}

func extractImages(doc *goquery.Document, pageUrl string) []string {
	base, baseErr := url.Parse(pageUrl)
	seen := make(map[string]bool)
	var images []string

	appendImage := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		if baseErr == nil {
			if ref, err := url.Parse(src); err == nil {
				src = base.ResolveReference(ref).String()
			}
		}
		if !seen[src] {
			seen[src] = true
			images = append(images, src)
		}
	}

	// Social preview tags first, then document images.
	for _, selector := range []string{
		`meta[property="og:image"]`,
		`meta[property="twitter:image"]`,
		`meta[name="twitter:image"]`,
	} {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			appendImage(sel.AttrOr("content", ""))
		})
	}
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		appendImage(sel.AttrOr("src", ""))
	})
	return images
}

// extractContentText builds the body paragraph list from the most
// specific content container available. Sub-headings are scanned for a
// contact-block marker so a "Pressekontakt" heading survives into the
// text even when the contact details sit outside paragraph tags.
func extractContentText(doc *goquery.Document) string {
	section := doc.Find("article").First()
	if section.Length() == 0 {
		section = doc.Find("main").First()
	}
	if section.Length() == 0 {
		section = doc.Find("body").First()
	}
	if section.Length() == 0 {
		return cleanText(doc.Text())
	}

	var paragraphs []string
	section.Find("h2, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		if text != "" && contactHeadingRe.MatchString(text) {
			paragraphs = append(paragraphs, text)
		}
	})
	section.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		if len(text) > 2 {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n")
	}
	return cleanText(section.Text())
}

// extractPressContact locates a trailing contact section by marker
// scan over the combined body text, capturing the marker line plus up
// to pressContactFollowLines following lines or until a known sign-off
// marker appears.
func extractPressContact(contentText string) string {
	if contentText == "" {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(contentText, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	for idx, line := range lines {
		if !contactMarkerRe.MatchString(line) {
			continue
		}
		chunk := []string{line}
		for _, next := range lines[idx+1:] {
			if len(chunk) > pressContactFollowLines {
				break
			}
			if signOffRe.MatchString(next) {
				break
			}
			chunk = append(chunk, next)
		}
		return cleanText(strings.Join(chunk, " "))
	}
	return ""
}

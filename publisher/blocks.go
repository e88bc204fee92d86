// Package publisher drains the publish job queue into the WordPress
// REST API, converting rewritten article bodies into block markup.
package publisher

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/vanityontour/newspipe/rewrite"
)

var (
	blockElementRe = regexp.MustCompile(`(?is)<h([2-6])[^>]*>[\s\S]*?</h[2-6]>|<p[^>]*>[\s\S]*?</p>|<ul[^>]*>[\s\S]*?</ul>|<ol[^>]*>[\s\S]*?</ol>`)
	leadingTagRe   = regexp.MustCompile(`(?i)^<([a-z0-9]+)`)
	anyTagRe       = regexp.MustCompile(`<[^>]+>`)
	paragraphGapRe = regexp.MustCompile(`\n{2,}`)
	innerNewlineRe = regexp.MustCompile(`\s*\n\s*`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	htmlMarkerRe   = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
)

// SanitizePublishText prepares a raw body for publishing the same way
// the rewrite prompt is prepared: feed boilerplate and the trailing
// press-contact block are stripped.
func SanitizePublishText(text string) string {
	return rewrite.SanitizeSourceText(text)
}

// AsBlockParagraphs wraps plain text into wp:paragraph blocks, one per
// blank-line separated chunk.
func AsBlockParagraphs(text string) string {
	var lines []string
	for _, chunk := range paragraphGapRe.Split(strings.TrimSpace(text), -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		compact := innerNewlineRe.ReplaceAllString(chunk, " ")
		lines = append(lines, fmt.Sprintf("<!-- wp:paragraph --><p>%s</p><!-- /wp:paragraph -->", html.EscapeString(compact)))
	}
	return strings.Join(lines, "\n")
}

// HTMLToBlocks converts rewritten HTML into block-annotated markup.
// Recognized elements (h2-h6, p, ul, ol) get their block wrapper; a
// document without any recognized element degrades to plain paragraph
// blocks over its text content.
func HTMLToBlocks(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	var blocks []string
	for _, blockHtml := range blockElementRe.FindAllString(src, -1) {
		blockHtml = strings.TrimSpace(blockHtml)
		if blockHtml == "" {
			continue
		}
		tag := ""
		if match := leadingTagRe.FindStringSubmatch(blockHtml); match != nil {
			tag = strings.ToLower(match[1])
		}
		switch {
		case tag == "p":
			blocks = append(blocks, fmt.Sprintf("<!-- wp:paragraph -->%s<!-- /wp:paragraph -->", blockHtml))
		case tag == "ul":
			blocks = append(blocks, fmt.Sprintf("<!-- wp:list -->%s<!-- /wp:list -->", blockHtml))
		case tag == "ol":
			blocks = append(blocks, fmt.Sprintf(`<!-- wp:list {"ordered":true} -->%s<!-- /wp:list -->`, blockHtml))
		case len(tag) == 2 && tag[0] == 'h' && tag[1] >= '2' && tag[1] <= '6':
			blocks = append(blocks, fmt.Sprintf(`<!-- wp:heading {"level":%c} -->%s<!-- /wp:heading -->`, tag[1], blockHtml))
		}
	}
	if len(blocks) > 0 {
		return strings.Join(blocks, "\n")
	}
	return AsBlockParagraphs(stripHtmlTags(src))
}

func stripHtmlTags(raw string) string {
	text := anyTagRe.ReplaceAllString(raw, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// BuildPostContent derives the block content to publish for the
// article body. Prefers the rewritten body, falls back to the raw body
// and finally the summary; never returns empty markup.
func BuildPostContent(contentRewritten string, contentRaw string, summary string) string {
	body := strings.TrimSpace(contentRewritten)
	if body == "" {
		body = strings.TrimSpace(contentRaw)
	}
	body = SanitizePublishText(body)
	if body == "" {
		body = strings.TrimSpace(summary)
	}

	var blocks string
	if htmlMarkerRe.MatchString(body) {
		blocks = HTMLToBlocks(body)
	} else {
		blocks = AsBlockParagraphs(body)
	}
	if blocks == "" {
		blocks = "<!-- wp:paragraph --><p>Kein Inhalt verfügbar.</p><!-- /wp:paragraph -->"
	}
	return strings.TrimSpace(blocks)
}

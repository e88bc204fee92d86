package publisher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToBlocksAnnotatesKnownElements(t *testing.T) {
	src := `<h2>Überschrift</h2><p>Erster Absatz.</p><ul><li>eins</li><li>zwei</li></ul><ol><li>a</li></ol>`
	blocks := HTMLToBlocks(src)

	assert.Contains(t, blocks, `<!-- wp:heading {"level":2} --><h2>Überschrift</h2><!-- /wp:heading -->`)
	assert.Contains(t, blocks, `<!-- wp:paragraph --><p>Erster Absatz.</p><!-- /wp:paragraph -->`)
	assert.Contains(t, blocks, `<!-- wp:list --><ul><li>eins</li><li>zwei</li></ul><!-- /wp:list -->`)
	assert.Contains(t, blocks, `<!-- wp:list {"ordered":true} --><ol><li>a</li></ol><!-- /wp:list -->`)
}

func TestHTMLToBlocksDegradesToParagraphs(t *testing.T) {
	blocks := HTMLToBlocks(`<div>Nur ein <b>div</b> ohne Blockelemente.</div>`)

	assert.Contains(t, blocks, "<!-- wp:paragraph -->")
	assert.Contains(t, blocks, "Nur ein div ohne Blockelemente.")
	assert.NotContains(t, blocks, "<div>")
}

func TestAsBlockParagraphsSplitsOnBlankLines(t *testing.T) {
	blocks := AsBlockParagraphs("Erster Absatz\nmit Umbruch.\n\nZweiter Absatz.")

	parts := strings.Split(blocks, "\n")
	assert.Len(t, parts, 2)
	assert.Contains(t, parts[0], "<p>Erster Absatz mit Umbruch.</p>")
	assert.Contains(t, parts[1], "<p>Zweiter Absatz.</p>")
}

func TestAsBlockParagraphsEscapesHtml(t *testing.T) {
	blocks := AsBlockParagraphs("1 < 2 & fertig")
	assert.Contains(t, blocks, "1 &lt; 2 &amp; fertig")
}

func TestBuildPostContentPrefersRewrittenBody(t *testing.T) {
	content := BuildPostContent("<p>Umgeschrieben.</p>", "Roh.", "Zusammenfassung.")
	assert.Contains(t, content, "Umgeschrieben.")
	assert.NotContains(t, content, "Roh.")
}

func TestBuildPostContentFallsBackThroughRawToSummary(t *testing.T) {
	content := BuildPostContent("", "", "Nur die Zusammenfassung.")
	assert.Contains(t, content, "Nur die Zusammenfassung.")
}

func TestBuildPostContentNeverEmpty(t *testing.T) {
	content := BuildPostContent("", "", "")
	assert.Contains(t, content, "Kein Inhalt verfügbar.")
}

func TestBuildPostContentStripsPressContactTail(t *testing.T) {
	raw := "Zeile1\nZeile2\nZeile3\nMeldungstext.\nPressekontakt: Firma GmbH"
	content := BuildPostContent("", raw, "")
	assert.Contains(t, content, "Meldungstext.")
	assert.NotContains(t, content, "Firma GmbH")
}

func TestGuessFilename(t *testing.T) {
	assert.Equal(t, "bild.jpg", guessFilename("https://example.com/media/bild.jpg?x=1", "image/jpeg"))
	assert.Equal(t, "article-image.png", guessFilename("https://example.com/", "image/png"))
}

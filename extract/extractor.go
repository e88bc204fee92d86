// Package extract fetches article pages and heuristically derives
// title, author, canonical url, body text, image candidates and the
// trailing press-contact block.
package extract

import (
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "newspipe/1.0 (+https://news.vanityontour.de)"
)

// Extractor fetches pages with a bounded timeout and a descriptive
// client identity string.
type Extractor struct {
	client    *http.Client
	userAgent string
}

func NewExtractor() *Extractor {
	return NewExtractorWithTimeout(defaultTimeout)
}

func NewExtractorWithTimeout(timeout time.Duration) *Extractor {
	return &Extractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}
}

// Extract fetches the page and runs all parsing heuristics. It never
// returns an error: any network or parse failure comes back as a
// Result carrying only the error, so one broken entry cannot abort a
// feed's ingestion pass.
func (e *Extractor) Extract(pageUrl string) Result {
	req, err := http.NewRequest("GET", pageUrl, nil)
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	res, err := e.client.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer res.Body.Close()

	// An error page parses like any other document; surface it as a
	// failed extraction so feed-supplied values win downstream.
	if res.StatusCode >= 400 {
		return Result{Error: fmt.Sprintf("non-200 page response: %d", res.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return ParsePage(doc, pageUrl)
}

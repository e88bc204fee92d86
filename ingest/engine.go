// Package ingest orchestrates one ingestion invocation: feed fetch
// with conditional requests, page extraction, image ranking, dedup
// resolution and store upsert, with one Run record per invocation.
package ingest

import (
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/vanityontour/newspipe/extract"
	"github.com/vanityontour/newspipe/model"
	"github.com/vanityontour/newspipe/policy"
	"github.com/vanityontour/newspipe/store"
	Logger "github.com/vanityontour/newspipe/utils/log"
)

const (
	maxFeedFetchRetries = 3
	feedFetchTimeout    = 15 * time.Second
	defaultConcurrency  = 4
	fallbackTitle       = "Ohne Titel"
)

// Feed outcome statuses recorded in the Run details.
const (
	FeedOutcomeSuccess = "success"
	FeedOutcomeBlocked = "blocked"
	FeedOutcomeFailed  = "failed"
)

// FeedResult summarizes one feed's pass within a run.
type FeedResult struct {
	FeedId       string   `json:"feed_id"`
	FeedUrl      string   `json:"feed_url"`
	Status       string   `json:"status"`
	PolicyIssues []string `json:"policy_issues,omitempty"`
	Error        string   `json:"error,omitempty"`
	EntriesSeen  int      `json:"entries_seen"`
	Upserts      int      `json:"upserts"`
	EntryErrors  []string `json:"entry_errors,omitempty"`
}

// Stats is the aggregate outcome of one ingestion invocation.
type Stats struct {
	RunId            string       `json:"run_id"`
	FeedsProcessed   int          `json:"feeds_processed"`
	EntriesSeen      int          `json:"entries_seen"`
	ArticlesUpserted int          `json:"articles_upserted"`
	Status           string       `json:"status"`
	Message          string       `json:"message,omitempty"`
	Feeds            []FeedResult `json:"feeds,omitempty"`
}

// Engine runs ingestion across feeds with a bounded worker pool. All
// cross-feed state lives in the store; the engine itself only
// aggregates counters.
type Engine struct {
	DB          *gorm.DB
	Extractor   *extract.Extractor
	Concurrency int

	client     *http.Client
	retryDelay time.Duration
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		DB:          db,
		Extractor:   extract.NewExtractor(),
		Concurrency: defaultConcurrency,
		client:      &http.Client{Timeout: feedFetchTimeout},
		retryDelay:  500 * time.Millisecond,
	}
}

// Run executes one ingestion invocation. With feedId set only that
// feed is processed (and only when enabled); otherwise all enabled
// feeds are, concurrently up to Engine.Concurrency. One feed's failure
// never aborts the run: every outcome lands in the Run record.
func (e *Engine) Run(feedId string) (Stats, error) {
	runId, err := store.CreateRun(e.DB, model.RunTypeIngestion, map[string]string{"state": "started"})
	if err != nil {
		return Stats{}, errors.Wrap(err, "fail to create ingestion run")
	}
	stats := Stats{RunId: runId, Status: model.RunStatusSuccess, Message: "Ingestion abgeschlossen"}

	feeds, err := e.resolveFeeds(feedId)
	if err != nil {
		stats.Status = model.RunStatusFailed
		stats.Message = err.Error()
		store.FinishRun(e.DB, runId, model.RunStatusFailed, stats)
		return stats, err
	}

	concurrency := e.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, concurrency)
	)
	for _, feed := range feeds {
		feed := feed
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			result := e.processFeed(&feed)
			mu.Lock()
			stats.FeedsProcessed++
			stats.EntriesSeen += result.EntriesSeen
			stats.ArticlesUpserted += result.Upserts
			stats.Feeds = append(stats.Feeds, result)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if err := store.FinishRun(e.DB, runId, model.RunStatusSuccess, stats); err != nil {
		Logger.Log.Error("fail to finish ingestion run: ", err)
	}
	return stats, nil
}

func (e *Engine) resolveFeeds(feedId string) ([]model.Feed, error) {
	if feedId == "" {
		return store.ListEnabledFeeds(e.DB)
	}
	feed, err := store.GetFeedById(e.DB, feedId)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to load feed %s", feedId)
	}
	if !feed.IsEnabled {
		return nil, nil
	}
	return []model.Feed{*feed}, nil
}

func (e *Engine) processFeed(feed *model.Feed) FeedResult {
	result := FeedResult{FeedId: feed.Id, FeedUrl: feed.Url}

	// Policy gate before any contact with the origin.
	if issues := policy.Evaluate(feed.Source); len(issues) > 0 {
		result.Status = FeedOutcomeBlocked
		result.PolicyIssues = issues
		Logger.Log.WithFields(logrus.Fields{"feed": feed.Url}).Info("feed blocked by source policy: ", strings.Join(issues, "; "))
		return result
	}

	parsed, etag, lastModified, err := e.fetchFeedWithRetries(feed)
	if err != nil {
		result.Status = FeedOutcomeFailed
		result.Error = err.Error()
		Logger.Log.WithFields(logrus.Fields{"feed": feed.Url}).Error("fail to fetch feed: ", err)
		return result
	}

	// Persist the origin's new conditional-fetch tokens regardless of
	// whether any entries changed.
	if err := store.UpdateFeedFetchState(e.DB, feed.Id, etag, lastModified); err != nil {
		Logger.Log.WithFields(logrus.Fields{"feed": feed.Url}).Error("fail to persist feed fetch state: ", err)
	}

	result.Status = FeedOutcomeSuccess
	if parsed == nil {
		// 304 Not Modified: nothing new.
		return result
	}

	for _, entry := range parsed.Items {
		if entry == nil || entry.Link == "" {
			continue
		}
		result.EntriesSeen++
		upserted, err := e.ingestEntry(feed, entry)
		if err != nil {
			result.EntryErrors = append(result.EntryErrors, err.Error())
			Logger.Log.WithFields(logrus.Fields{"feed": feed.Url, "entry": entry.Link}).Error("fail to ingest entry: ", err)
			continue
		}
		if upserted {
			result.Upserts++
		}
	}
	return result
}

// fetchFeedWithRetries GETs the feed body using the stored
// conditional-fetch tokens, retrying transient failures with a short
// growing delay. A 304 response returns a nil feed with the tokens to
// persist.
func (e *Engine) fetchFeedWithRetries(feed *model.Feed) (parsed *gofeed.Feed, etag string, lastModified string, err error) {
	for attempt := 1; attempt <= maxFeedFetchRetries; attempt++ {
		parsed, etag, lastModified, err = e.fetchFeedOnce(feed)
		if err == nil {
			return parsed, etag, lastModified, nil
		}
		if attempt < maxFeedFetchRetries {
			time.Sleep(e.retryDelay * time.Duration(attempt))
		}
	}
	return nil, "", "", err
}

func (e *Engine) fetchFeedOnce(feed *model.Feed) (*gofeed.Feed, string, string, error) {
	req, err := http.NewRequest("GET", feed.Url, nil)
	if err != nil {
		return nil, "", "", err
	}
	req.Header.Set("User-Agent", "newspipe/1.0 (+https://news.vanityontour.de)")
	if feed.ETag != "" {
		req.Header.Set("If-None-Match", feed.ETag)
	}
	if feed.LastModified != "" {
		req.Header.Set("If-Modified-Since", feed.LastModified)
	}

	res, err := e.client.Do(req)
	if err != nil {
		return nil, "", "", err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotModified {
		return nil, feed.ETag, feed.LastModified, nil
	}
	if res.StatusCode >= 300 {
		return nil, "", "", errors.Errorf("non-200 feed response: %d", res.StatusCode)
	}

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, "", "", err
	}
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, "", "", errors.Wrap(err, "fail to parse feed document")
	}
	return parsed, res.Header.Get("ETag"), res.Header.Get("Last-Modified"), nil
}

// ingestEntry turns one feed entry into an article upsert. Extracted
// fields win over feed-supplied ones when present. Returns whether a
// row was inserted or updated (closed articles skip silently).
func (e *Engine) ingestEntry(feed *model.Feed, entry *gofeed.Item) (bool, error) {
	extracted := e.Extractor.Extract(entry.Link)

	summary, contentRaw := entryText(entry)
	title := entry.Title
	if title == "" {
		title = fallbackTitle
	}

	finalTitle := firstNonEmpty(extracted.Title, title)
	finalAuthor := firstNonEmpty(extracted.Author, entryAuthor(entry))
	finalSummary := firstNonEmpty(extracted.Summary, truncateRunes(summary, 1000))
	finalContentRaw := firstNonEmpty(extracted.ContentText, contentRaw)
	finalCanonical := firstNonEmpty(extracted.CanonicalUrl, entry.Link)

	publishedAt := entryPublishedAt(entry)
	selected, primary, ranked := SelectRelevantImages(entry.Link, finalTitle, extracted.Images)

	entryId := firstNonEmpty(entry.GUID, "")
	sourceHash := EntryFingerprint(feed.Id, entryId, entry.Link, finalTitle, finalSummary, publishedAt)

	sourceName, sourceBaseUrl, sourceTermsUrl, sourceLicense, sourceRisk := "", "", "", "", ""
	if feed.Source != nil {
		sourceName = feed.Source.Name
		sourceBaseUrl = feed.Source.BaseUrl
		sourceTermsUrl = feed.Source.TermsUrl
		sourceLicense = feed.Source.LicenseName
		sourceRisk = feed.Source.RiskLevel
	}

	attribution := &model.Attribution{
		SourceName:        sourceName,
		SourceBaseUrl:     sourceBaseUrl,
		SourceTermsUrl:    sourceTermsUrl,
		SourceLicenseName: sourceLicense,
		SourceRiskLevel:   sourceRisk,
		OriginalLink:      entry.Link,
		FeedName:          feed.Name,
		FeedId:            feed.Id,
		ImportedAt:        time.Now().UTC(),
	}
	extractionMeta := &model.ExtractionMeta{
		Title:           extracted.Title,
		Author:          extracted.Author,
		CanonicalUrl:    extracted.CanonicalUrl,
		Summary:         extracted.Summary,
		Images:          extracted.Images,
		PressContact:    extracted.PressContact,
		ExtractionError: extracted.Error,
		FetchedFrom:     entry.Link,
		ImageSelection: &model.ImageSelection{
			Primary:         primary,
			SelectedCount:   len(selected),
			TotalCandidates: len(extracted.Images),
			Ranked:          ranked,
		},
	}

	feedId := feed.Id
	payload := store.ArticleUpsert{
		FeedID:                    &feedId,
		SourceArticleId:           entryId,
		SourceHash:                sourceHash,
		Title:                     finalTitle,
		SourceUrl:                 entry.Link,
		CanonicalUrl:              finalCanonical,
		PublishedAt:               publishedAt,
		Author:                    finalAuthor,
		Summary:                   finalSummary,
		ContentRaw:                finalContentRaw,
		ImageUrls:                 selected,
		PressContact:              extracted.PressContact,
		SourceNameSnapshot:        sourceName,
		SourceTermsUrlSnapshot:    sourceTermsUrl,
		SourceLicenseNameSnapshot: sourceLicense,
		WordCount:                 len(strings.Fields(finalContentRaw)),
		Status:                    model.ArticleStatusNew,
		Attribution:               attribution,
		Extraction:                extractionMeta,
	}

	id, skipped, err := store.UpsertArticle(e.DB, payload)
	if err != nil {
		return false, err
	}
	return !skipped && id != "", nil
}

func entryText(entry *gofeed.Item) (summary string, content string) {
	summary = entry.Description
	content = entry.Content
	if content == "" {
		content = summary
	}
	return summary, content
}

func entryAuthor(entry *gofeed.Item) string {
	if entry.Author != nil {
		return entry.Author.Name
	}
	return ""
}

// entryPublishedAt prefers the parser's structured timestamps, falling
// back to lenient parsing of the raw date strings.
func entryPublishedAt(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		utc := entry.PublishedParsed.UTC()
		return &utc
	}
	if entry.UpdatedParsed != nil {
		utc := entry.UpdatedParsed.UTC()
		return &utc
	}
	for _, raw := range []string{entry.Published, entry.Updated} {
		if raw == "" {
			continue
		}
		if parsed, err := dateparse.ParseAny(raw); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

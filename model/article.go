package model

import (
	"time"

	"gorm.io/datatypes"
)

// Internal article lifecycle statuses. "error" is the terminal closed
// state; "review" is a legacy value still readable from old rows but
// no longer produced by any transition.
const (
	ArticleStatusNew       = "new"
	ArticleStatusRewrite   = "rewrite"
	ArticleStatusReview    = "review"
	ArticleStatusApproved  = "approved"
	ArticleStatusPublished = "published"
	ArticleStatusError     = "error"
)

/*

Article is the unit of editorial work, created by ingestion and carried
through rewrite, approval and publish.

Id: primary key
CreatedAt: time when entity is created

FeedID:
Feed: feed the article was ingested from, "belongs-to" relation, nullable

SourceArticleId: the id/guid the origin assigned to the entry, dedup key
	together with FeedID
SourceHash: deterministic fingerprint over stable entry attributes,
	dedup fallback key when the link changed
Title: article title, extracted or feed-supplied
SourceUrl: the entry link the article was ingested under, natural
	unique key
CanonicalUrl: canonical link claimed by the page, if any
PublishedAt: publication time claimed by the origin
Author, Summary: extracted or feed-supplied
ContentRaw: extracted or feed-supplied body text
ContentRewritten: editor/LLM rewritten HTML body, never clobbered by
	re-ingestion
ImageUrls: ranked image candidate urls, JSON array of strings
PressContact: trailing contact block captured from the page

SourceNameSnapshot, SourceTermsUrlSnapshot, SourceLicenseNameSnapshot:
	attribution captured at ingestion time; intentionally never
	refreshed when the Source row is edited later

LegalChecked, LegalCheckedAt, LegalNote: operator legal review result

WpPostId, WpPostUrl: linkage to the publish target post, set by the
	publisher and preserved across re-ingestion
PublishAttempts: total publish attempts made for this article
PublishLastError: last publish failure, truncated
PublishedToWpAt: when the last successful publish happened

WordCount: word count of ContentRaw
Status: internal lifecycle status
Meta: typed meta document, see ArticleMeta
*/
type Article struct {
	Id                        string `gorm:"primaryKey"`
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
	FeedID                    *string `gorm:"index:idx_articles_feed_source_article_id;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Feed                      *Feed   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	SourceArticleId           string  `gorm:"index:idx_articles_feed_source_article_id"`
	SourceHash                string  `gorm:"index"`
	Title                     string
	SourceUrl                 string `gorm:"uniqueIndex"`
	CanonicalUrl              string
	PublishedAt               *time.Time
	Author                    string
	Summary                   string
	ContentRaw                string
	ContentRewritten          string
	ImageUrls                 datatypes.JSON
	PressContact              string
	SourceNameSnapshot        string
	SourceTermsUrlSnapshot    string
	SourceLicenseNameSnapshot string
	LegalChecked              bool
	LegalCheckedAt            *time.Time
	LegalNote                 string
	WpPostId                  *int64
	WpPostUrl                 string
	PublishAttempts           int
	PublishLastError          string
	PublishedToWpAt           *time.Time
	WordCount                 int
	Status                    string `gorm:"index;default:new"`
	Meta                      datatypes.JSON
}

// IsClosed reports whether the article reached the terminal closed
// state. Closed articles are skipped by re-ingestion and publishing.
func (a *Article) IsClosed() bool {
	return a.Status == ArticleStatusError
}

// Relevance tiers derived from article age, German labels because they
// face the editorial UI directly.
const (
	RelevanceHigh    = "hoch"
	RelevanceMedium  = "mittel"
	RelevanceLow     = "niedrig"
	RelevanceOld     = "alt"
	RelevanceUnknown = "unbekannt"
)

// RelevanceTierAt buckets the article by age in full days relative to
// now, using the origin's publication time and falling back to
// ingestion time. Future-dated articles count as zero days old.
func (a *Article) RelevanceTierAt(now time.Time) string {
	reference := a.PublishedAt
	if reference == nil {
		if a.CreatedAt.IsZero() {
			return RelevanceUnknown
		}
		reference = &a.CreatedAt
	}
	age := now.Sub(*reference)
	if age < 0 {
		age = 0
	}
	days := int(age.Hours() / 24)
	switch {
	case days <= 2:
		return RelevanceHigh
	case days <= 7:
		return RelevanceMedium
	case days <= 30:
		return RelevanceLow
	default:
		return RelevanceOld
	}
}

// RelevanceTier is RelevanceTierAt against the wall clock.
func (a *Article) RelevanceTier() string {
	return a.RelevanceTierAt(time.Now().UTC())
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRelevanceTierBuckets(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(age time.Duration) *time.Time {
		ts := now.Add(-age)
		return &ts
	}

	assert.Equal(t, RelevanceHigh, (&Article{PublishedAt: at(3 * time.Hour)}).RelevanceTierAt(now))
	assert.Equal(t, RelevanceHigh, (&Article{PublishedAt: at(2 * 24 * time.Hour)}).RelevanceTierAt(now))
	// Partial days round down, so 2.5 days still counts as two.
	assert.Equal(t, RelevanceHigh, (&Article{PublishedAt: at(60 * time.Hour)}).RelevanceTierAt(now))
	// Future-dated entries are treated as fresh.
	assert.Equal(t, RelevanceHigh, (&Article{PublishedAt: at(-time.Hour)}).RelevanceTierAt(now))
	assert.Equal(t, RelevanceMedium, (&Article{PublishedAt: at(3 * 24 * time.Hour)}).RelevanceTierAt(now))
	assert.Equal(t, RelevanceLow, (&Article{PublishedAt: at(10 * 24 * time.Hour)}).RelevanceTierAt(now))
	assert.Equal(t, RelevanceOld, (&Article{PublishedAt: at(60 * 24 * time.Hour)}).RelevanceTierAt(now))
}

func TestRelevanceTierFallsBackToIngestionTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	created := now.Add(-time.Hour)
	assert.Equal(t, RelevanceHigh, (&Article{CreatedAt: created}).RelevanceTierAt(now))
	assert.Equal(t, RelevanceUnknown, (&Article{}).RelevanceTierAt(now))
}

func TestDecodeMetaToleratesCorruptDocument(t *testing.T) {
	article := &Article{Meta: []byte("{not json")}
	meta := article.DecodeMeta()
	assert.Nil(t, meta.Attribution)
	assert.Empty(t, meta.ReviewEvents)
}

func TestIsClosed(t *testing.T) {
	assert.True(t, (&Article{Status: ArticleStatusError}).IsClosed())
	assert.False(t, (&Article{Status: ArticleStatusPublished}).IsClosed())
	assert.False(t, (&Article{Status: ArticleStatusNew}).IsClosed())
}

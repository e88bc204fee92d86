package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanityontour/newspipe/model"
)

func TestCreateSourceDefaultsRiskLevel(t *testing.T) {
	db, _ := CreateTempDB(t)

	source, err := CreateSource(db, SourceInput{Name: "Quelle", IsEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, model.RiskLevelYellow, source.RiskLevel)

	loaded, err := GetSourceById(db, source.Id)
	require.NoError(t, err)
	assert.Equal(t, "Quelle", loaded.Name)
}

func TestListEnabledFeedsSkipsDisabledAndPreloadsSource(t *testing.T) {
	db, _ := CreateTempDB(t)
	source, err := CreateSource(db, SourceInput{Name: "Quelle", IsEnabled: true})
	require.NoError(t, err)

	_, err = CreateFeed(db, FeedInput{Name: "aktiv", Url: "https://example.com/a", SourceID: &source.Id, IsEnabled: true})
	require.NoError(t, err)
	_, err = CreateFeed(db, FeedInput{Name: "inaktiv", Url: "https://example.com/b", SourceID: &source.Id, IsEnabled: false})
	require.NoError(t, err)

	feeds, err := ListEnabledFeeds(db)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "aktiv", feeds[0].Name)
	require.NotNil(t, feeds[0].Source)
	assert.Equal(t, "Quelle", feeds[0].Source.Name)
}

func TestUpdateFeedFetchState(t *testing.T) {
	db, _ := CreateTempDB(t)
	feed, err := CreateFeed(db, FeedInput{Name: "f", Url: "https://example.com/feed", IsEnabled: true})
	require.NoError(t, err)
	before := time.Now().Add(-time.Second)

	require.NoError(t, UpdateFeedFetchState(db, feed.Id, `"v1"`, "Thu, 02 May 2024 09:30:00 GMT"))

	loaded, err := GetFeedById(db, feed.Id)
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, loaded.ETag)
	assert.Equal(t, "Thu, 02 May 2024 09:30:00 GMT", loaded.LastModified)
	require.NotNil(t, loaded.LastCheckedAt)
	assert.True(t, loaded.LastCheckedAt.After(before))
}

func TestUpdateSourceAndFeed(t *testing.T) {
	db, _ := CreateTempDB(t)
	source, err := CreateSource(db, SourceInput{Name: "Alt", IsEnabled: true})
	require.NoError(t, err)
	feed, err := CreateFeed(db, FeedInput{Name: "Alt", Url: "https://example.com/feed", SourceID: &source.Id, IsEnabled: true})
	require.NoError(t, err)

	reviewed := time.Now().UTC()
	require.NoError(t, UpdateSource(db, source.Id, SourceInput{
		Name:           "Neu",
		RiskLevel:      model.RiskLevelGreen,
		IsEnabled:      true,
		TermsUrl:       "https://example.com/terms",
		LastReviewedAt: &reviewed,
	}))
	require.NoError(t, UpdateFeed(db, feed.Id, FeedInput{
		Name:      "Neu",
		Url:       feed.Url,
		SourceID:  &source.Id,
		IsEnabled: false,
	}))

	loadedSource, err := GetSourceById(db, source.Id)
	require.NoError(t, err)
	assert.Equal(t, "Neu", loadedSource.Name)
	assert.Equal(t, model.RiskLevelGreen, loadedSource.RiskLevel)

	loadedFeed, err := GetFeedById(db, feed.Id)
	require.NoError(t, err)
	assert.False(t, loadedFeed.IsEnabled)
}

package workflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vanityontour/newspipe/model"
	"github.com/vanityontour/newspipe/store"
	"github.com/vanityontour/newspipe/utils/dotenv"
)

func init() {
	dotenv.LoadDotEnvsInTests()
}

func seedArticle(t *testing.T, db *gorm.DB) string {
	t.Helper()
	id, _, err := store.UpsertArticle(db, store.ArticleUpsert{
		SourceArticleId: "entry-1",
		SourceHash:      "hash-1",
		Title:           "Titel",
		SourceUrl:       "https://example.com/1",
		ContentRaw:      "Inhalt.",
		Status:          model.ArticleStatusNew,
	})
	require.NoError(t, err)
	return id
}

func TestTransitionHappyPathBothVocabularies(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	id := seedArticle(t, db)

	// External vocabulary.
	require.NoError(t, Transition(db, id, ExternalRewrite, "redaktion", "", ""))
	// Internal vocabulary for the same table.
	require.NoError(t, Transition(db, id, model.ArticleStatusApproved, "redaktion", "", ""))

	article, err := store.GetArticleById(db, id)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusApproved, article.Status)
	assert.Len(t, article.DecodeMeta().ReviewEvents, 2)
}

func TestTransitionInvalidLeavesRowAndAuditUntouched(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	id := seedArticle(t, db)

	err := Transition(db, id, ExternalPublished, "redaktion", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ungueltiger Statuswechsel")

	article, loadErr := store.GetArticleById(db, id)
	require.NoError(t, loadErr)
	assert.Equal(t, model.ArticleStatusNew, article.Status)
	assert.Empty(t, article.DecodeMeta().ReviewEvents)
}

func TestTransitionPublishedRequiresLegalCheck(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	id := seedArticle(t, db)
	require.NoError(t, Transition(db, id, ExternalRewrite, "", "", ""))
	require.NoError(t, Transition(db, id, ExternalPublish, "", "", ""))

	err := Transition(db, id, ExternalPublished, "redaktion", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rechtscheck")

	require.NoError(t, store.SetArticleLegalReview(db, id, true, "ok", "legal"))
	require.NoError(t, Transition(db, id, ExternalPublished, "redaktion", "", ""))

	article, loadErr := store.GetArticleById(db, id)
	require.NoError(t, loadErr)
	assert.Equal(t, model.ArticleStatusPublished, article.Status)
}

func TestTransitionCloseAndReopen(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	id := seedArticle(t, db)

	require.NoError(t, Transition(db, id, ExternalClose, "redaktion", "nicht relevant", ""))
	article, err := store.GetArticleById(db, id)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusError, article.Status)
	assert.True(t, article.IsClosed())

	// close -> rewrite is the only way back.
	require.Error(t, Transition(db, id, ExternalPublish, "", "", ""))
	require.NoError(t, Transition(db, id, ExternalRewrite, "redaktion", "doch relevant", ""))

	article, err = store.GetArticleById(db, id)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusRewrite, article.Status)
}

func TestTransitionConcurrentCloseAlwaysSticks(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	id := seedArticle(t, db)
	require.NoError(t, Transition(db, id, ExternalRewrite, "", "", ""))

	// close and publish race from the same starting state. Whichever
	// order the row lock serializes them in, the article ends closed:
	// either publish lands first and close follows, or close lands
	// first and publish is rejected against the closed row.
	var wg sync.WaitGroup
	for _, target := range []string{ExternalClose, ExternalPublish} {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()
			Transition(db, id, target, "redaktion", "", "")
		}()
	}
	wg.Wait()

	article, err := store.GetArticleById(db, id)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusError, article.Status)
	assert.True(t, article.IsClosed())
}

func TestTransitionLegacyReviewStatusMapsToRewrite(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	id := seedArticle(t, db)
	require.NoError(t, store.UpdateArticleStatus(db, id, model.ArticleStatusReview, "migration", "", ""))

	// A legacy "review" row behaves like rewrite: publish is allowed.
	require.NoError(t, Transition(db, id, ExternalPublish, "redaktion", "", ""))

	article, err := store.GetArticleById(db, id)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusApproved, article.Status)
}

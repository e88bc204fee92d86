package rewrite

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
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

// fakeChat answers the rewrite prompt with canned HTML and the tag
// prompt with a canned JSON array.
type fakeChat struct {
	rewriteCalls int
	tagCalls     int
	failRewrite  bool
	lastUser     string
}

func (f *fakeChat) Complete(system string, user string, temperature float64) (string, error) {
	f.lastUser = user
	if system == rewriteSystemPrompt {
		f.rewriteCalls++
		if f.failRewrite {
			return "", errors.New("backend nicht erreichbar")
		}
		return "<h2>Neu erzählt</h2><p>Umgeschriebener Text.</p>", nil
	}
	f.tagCalls++
	return `["Tourismus", "Wanderroute"]`, nil
}

func seedArticle(t *testing.T, db *gorm.DB, status string, contentRaw string) string {
	t.Helper()
	id, skipped, err := store.UpsertArticle(db, store.ArticleUpsert{
		SourceArticleId: "entry-" + status,
		SourceHash:      "hash-" + status + contentRaw[:min(8, len(contentRaw))],
		Title:           "Neue Wanderroute eröffnet",
		SourceUrl:       "https://example.com/" + status + "/" + contentRaw[:min(4, len(contentRaw))],
		Summary:         "Kurze Zusammenfassung.",
		ContentRaw:      contentRaw,
		Status:          model.ArticleStatusNew,
	})
	require.NoError(t, err)
	require.False(t, skipped)
	if status != model.ArticleStatusNew {
		require.NoError(t, store.UpdateArticleStatus(db, id, status, "test", "", ""))
	}
	return id
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestRewriteArticleAdvancesToApproved(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	chat := &fakeChat{}
	id := seedArticle(t, db, model.ArticleStatusNew, "Zeile1\nZeile2\nZeile3\nMeldungstext hier.\nPressekontakt: Firma")

	require.NoError(t, NewEngine(db, chat).RewriteArticle(id, "redaktion"))

	article, err := store.GetArticleById(db, id)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusApproved, article.Status)
	assert.Contains(t, article.ContentRewritten, "Umgeschriebener Text")

	meta := article.DecodeMeta()
	assert.Equal(t, []string{"Tourismus", "Wanderroute"}, meta.GeneratedTags)
	require.NotEmpty(t, meta.ReviewEvents)
	last := meta.ReviewEvents[len(meta.ReviewEvents)-1]
	assert.Equal(t, "rewrite", last.Event)
	assert.Equal(t, "redaktion", last.Actor)

	// Sanitized source went into the prompt: boilerplate and press
	// contact stripped.
	assert.Contains(t, chat.lastUser, "Meldungstext hier.")
	assert.Equal(t, 1, chat.rewriteCalls)
	assert.Equal(t, 1, chat.tagCalls)
}

func TestRewriteArticlePromptExcludesPressContact(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	chat := &fakeChat{}
	id := seedArticle(t, db, model.ArticleStatusNew, "a\nb\nc\nKerntext.\nPressekontakt: Firma GmbH")

	require.NoError(t, NewEngine(db, chat).RewriteArticle(id, ""))
	assert.False(t, strings.Contains(chat.lastUser, "Firma GmbH"))
}

func TestRewriteArticleBackendFailureLeavesStatus(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	chat := &fakeChat{failRewrite: true}
	id := seedArticle(t, db, model.ArticleStatusNew, "a\nb\nc\nMeldungstext.")

	err := NewEngine(db, chat).RewriteArticle(id, "")
	require.Error(t, err)

	article, loadErr := store.GetArticleById(db, id)
	require.NoError(t, loadErr)
	assert.Equal(t, model.ArticleStatusNew, article.Status)
	assert.Empty(t, article.ContentRewritten)
	assert.Equal(t, 0, chat.tagCalls)
}

func TestRewriteArticleRejectsWrongStatus(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	chat := &fakeChat{}
	id := seedArticle(t, db, model.ArticleStatusApproved, "Inhalt der Meldung.")

	err := NewEngine(db, chat).RewriteArticle(id, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nicht im Umschreib-Status")
	assert.Equal(t, 0, chat.rewriteCalls)
}

func TestRewriteArticleFailsWithoutSourceText(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	chat := &fakeChat{}
	id, _, err := store.UpsertArticle(db, store.ArticleUpsert{
		SourceArticleId: "leer",
		SourceHash:      "hash-leer",
		Title:           "Leer",
		SourceUrl:       "https://example.com/leer",
		Status:          model.ArticleStatusNew,
	})
	require.NoError(t, err)

	err = NewEngine(db, chat).RewriteArticle(id, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Kein Quelltext")
}

func TestRewriteBatchIsolatesFailures(t *testing.T) {
	db, _ := store.CreateTempDB(t)
	good := seedArticle(t, db, model.ArticleStatusRewrite, "a\nb\nc\nGuter Meldungstext.")
	bad, _, err := store.UpsertArticle(db, store.ArticleUpsert{
		SourceArticleId: "leer-batch",
		SourceHash:      "hash-leer-batch",
		Title:           "Leer",
		SourceUrl:       "https://example.com/leer-batch",
		Status:          model.ArticleStatusNew,
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateArticleStatus(db, bad, model.ArticleStatusRewrite, "test", "", ""))

	done, err := NewEngine(db, &fakeChat{}).RewriteBatch("redaktion")
	require.NoError(t, err)
	assert.Equal(t, []string{good}, done)

	article, err := store.GetArticleById(db, bad)
	require.NoError(t, err)
	assert.Equal(t, model.ArticleStatusRewrite, article.Status)
}

package rewrite

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vanityontour/newspipe/model"
	"github.com/vanityontour/newspipe/store"
	Logger "github.com/vanityontour/newspipe/utils/log"
)

const (
	rewriteSystemPrompt = "Du bist ein deutscher News-Redakteur."
	tagSystemPrompt     = "Du extrahierst präzise, kurze News-Tags auf Deutsch."
	maxTagSourceRunes   = 3500
)

var jsonArrayRe = regexp.MustCompile(`\[[\s\S]*\]`)

// Engine rewrites article bodies and generates tags through a
// ChatClient, persisting results via the store.
type Engine struct {
	DB     *gorm.DB
	Client ChatClient
}

func NewEngine(db *gorm.DB, client ChatClient) *Engine {
	return &Engine{DB: db, Client: client}
}

// RewriteArticle rewrites one article. Only articles still in the
// editorial inbox (new or rewrite) are eligible; the result advances
// the article to approved with an audit event.
func (e *Engine) RewriteArticle(articleId string, actor string) error {
	article, err := store.GetArticleById(e.DB, articleId)
	if err != nil {
		return errors.Wrapf(err, "fail to load article %s", articleId)
	}
	if article.Status != model.ArticleStatusNew && article.Status != model.ArticleStatusRewrite {
		return errors.Errorf("Artikel %s ist nicht im Umschreib-Status (status=%s)", articleId, article.Status)
	}

	rewritten, err := e.rewriteText(article)
	if err != nil {
		return err
	}
	tags := e.generateTags(article, rewritten)

	if err := store.SetArticleRewriteResult(e.DB, articleId, rewritten, tags, actor); err != nil {
		return errors.Wrap(err, "fail to persist rewrite result")
	}
	Logger.Log.Info("article rewritten: ", articleId)
	return nil
}

// RewriteBatch rewrites every article currently in rewrite status,
// isolating per-article failures. Returns the ids that succeeded.
func (e *Engine) RewriteBatch(actor string) ([]string, error) {
	articles, err := store.ListArticles(e.DB, 500, model.ArticleStatusRewrite)
	if err != nil {
		return nil, errors.Wrap(err, "fail to list rewrite candidates")
	}

	var done []string
	for _, article := range articles {
		if err := e.RewriteArticle(article.Id, actor); err != nil {
			Logger.Log.Error("fail to rewrite article ", article.Id, ": ", err)
			continue
		}
		done = append(done, article.Id)
	}
	return done, nil
}

func (e *Engine) rewriteText(article *model.Article) (string, error) {
	sourceText := SanitizeSourceText(article.ContentRaw)
	if sourceText == "" {
		sourceText = strings.TrimSpace(article.Summary)
	}
	if sourceText == "" {
		return "", errors.New("Kein Quelltext für Rewrite verfügbar")
	}

	prompt := fmt.Sprintf(
		"Schreibe den folgenden News-Text neu auf Deutsch in persönlicher Du-Form. "+
			"Stil: ausführlich, gut lesbar, ohne Einleitung mit Datum/Uhrzeit/Firma/Ort, "+
			"ohne Pressekontakt, ohne Quellenblock. "+
			"Nutze klare Absätze und Zwischenüberschriften in HTML (<h2>, <p>, <ul><li> falls passend). "+
			"Inhaltlich korrekt bleiben, nichts erfinden.\n\n"+
			"Titel: %s\n\nOriginaltext:\n%s",
		strings.TrimSpace(article.Title), sourceText)

	return e.Client.Complete(rewriteSystemPrompt, prompt, 0.4)
}

// generateTags asks the backend for tags over the rewritten text,
// falling back to the sanitized source. Tag generation is best-effort:
// any failure yields an empty list, never an error.
func (e *Engine) generateTags(article *model.Article, rewritten string) []string {
	sourceText := strings.TrimSpace(rewritten)
	if sourceText == "" {
		sourceText = SanitizeSourceText(article.ContentRaw)
	}
	if sourceText == "" {
		sourceText = strings.TrimSpace(article.Summary)
	}
	if sourceText == "" {
		return nil
	}
	if runes := []rune(sourceText); len(runes) > maxTagSourceRunes {
		sourceText = string(runes[:maxTagSourceRunes])
	}

	prompt := fmt.Sprintf(
		"Erzeuge präzise Schlagwörter für einen deutschen News-Artikel. "+
			"Maximal %d Tags. Nur relevante Begriffe, keine allgemeinen Wörter wie News/Artikel. "+
			"Gib ausschließlich ein JSON-Array mit Strings zurück, ohne Erklärung.\n\n"+
			"Titel: %s\n\nText:\n%s",
		maxTags, strings.TrimSpace(article.Title), sourceText)

	raw, err := e.Client.Complete(tagSystemPrompt, prompt, 0.2)
	if err != nil {
		Logger.Log.Error("fail to generate tags: ", err)
		return nil
	}
	return parseTagResponse(raw)
}

// parseTagResponse accepts a bare JSON array or one wrapped in prose
// or a code fence.
func parseTagResponse(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		return NormalizeTags(tags)
	}
	if match := jsonArrayRe.FindString(raw); match != "" {
		if err := json.Unmarshal([]byte(match), &tags); err == nil {
			return NormalizeTags(tags)
		}
	}
	return nil
}

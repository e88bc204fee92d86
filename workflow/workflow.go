/*
Package workflow owns the article lifecycle vocabulary.

Internally articles move new -> rewrite -> approved -> published, with
the terminal "error" (closed) state reachable from every non-terminal
state and error -> rewrite as the only re-open path.

Callers still speak the legacy five-state vocabulary
(new/rewrite/publish/published/close). The two vocabularies are bridged
by a single bidirectional lookup table (approved<->publish,
error<->close, identity otherwise) and the transition table is keyed by
the external vocabulary, so callers may request transitions in either
one while the store only ever holds internal values.
*/
package workflow

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vanityontour/newspipe/model"
	"github.com/vanityontour/newspipe/store"
	"github.com/vanityontour/newspipe/utils"
)

// External status vocabulary.
const (
	ExternalNew       = "new"
	ExternalRewrite   = "rewrite"
	ExternalPublish   = "publish"
	ExternalPublished = "published"
	ExternalClose     = "close"
)

// ExternalStatuses lists the five external states in lifecycle order.
var ExternalStatuses = []string{ExternalNew, ExternalRewrite, ExternalPublish, ExternalPublished, ExternalClose}

var internalToExternal = map[string]string{
	model.ArticleStatusNew:       ExternalNew,
	model.ArticleStatusRewrite:   ExternalRewrite,
	model.ArticleStatusApproved:  ExternalPublish,
	model.ArticleStatusPublished: ExternalPublished,
	model.ArticleStatusError:     ExternalClose,
	// Legacy value written by older deployments.
	model.ArticleStatusReview: ExternalRewrite,
}

var externalToInternal = map[string]string{
	ExternalNew:       model.ArticleStatusNew,
	ExternalRewrite:   model.ArticleStatusRewrite,
	ExternalPublish:   model.ArticleStatusApproved,
	ExternalPublished: model.ArticleStatusPublished,
	ExternalClose:     model.ArticleStatusError,
}

// allowedTransitions is keyed by the CURRENT external state; values
// are the permitted external successor states.
var allowedTransitions = map[string][]string{
	ExternalNew:       {ExternalRewrite, ExternalClose},
	ExternalRewrite:   {ExternalPublish, ExternalClose},
	ExternalPublish:   {ExternalPublished, ExternalClose},
	ExternalPublished: {ExternalRewrite, ExternalClose},
	ExternalClose:     {ExternalRewrite},
}

// InternalToExternal translates a stored status into the external
// vocabulary. Unknown values pass through; empty maps to "new".
func InternalToExternal(status string) string {
	value := strings.TrimSpace(status)
	if value == "" {
		return ExternalNew
	}
	if external, ok := internalToExternal[value]; ok {
		return external
	}
	return value
}

// ExternalToInternal translates a caller-supplied status into the
// internal vocabulary. Internal values are accepted as-is so callers
// may use either vocabulary.
func ExternalToInternal(status string) string {
	value := strings.TrimSpace(status)
	if internal, ok := externalToInternal[value]; ok {
		return internal
	}
	return value
}

// CanTransition reports whether currentExternal may move to
// targetExternal according to the transition table.
func CanTransition(currentExternal string, targetExternal string) bool {
	return utils.ContainsString(allowedTransitions[currentExternal], targetExternal)
}

// Transition moves the article to the requested target status, given
// in either vocabulary. The request is validated against the table
// keyed by the article's current external state; an attempt to a state
// not in the allowed-successor set fails without mutating the row or
// its audit log. A "published" target additionally requires a passed
// legal review. Every accepted transition appends one audit event.
//
// Validation runs inside the store's locked read-modify-write, against
// the row state the write will actually apply to. Two concurrent
// requests therefore serialize: the second is checked against the
// first one's result, so e.g. a concurrent close cannot be overwritten
// outside the close -> rewrite re-open path.
func Transition(db *gorm.DB, articleId string, target string, actor string, note string, decision string) error {
	targetInternal := ExternalToInternal(target)
	targetExternal := InternalToExternal(targetInternal)

	return store.UpdateArticleStatusGuarded(db, articleId, func(article *model.Article) (string, error) {
		currentExternal := InternalToExternal(article.Status)
		if !CanTransition(currentExternal, targetExternal) {
			return "", errors.Errorf("ungueltiger Statuswechsel: %s -> %s", currentExternal, targetExternal)
		}
		if targetInternal == model.ArticleStatusPublished && !article.LegalChecked {
			return "", errors.New("Publish gesperrt: Rechtscheck wurde noch nicht freigegeben")
		}
		return targetInternal, nil
	}, actor, note, decision)
}

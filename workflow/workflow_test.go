package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanityontour/newspipe/model"
)

func TestInternalToExternal(t *testing.T) {
	assert.Equal(t, ExternalPublish, InternalToExternal(model.ArticleStatusApproved))
	assert.Equal(t, ExternalClose, InternalToExternal(model.ArticleStatusError))
	assert.Equal(t, ExternalRewrite, InternalToExternal(model.ArticleStatusReview))
	assert.Equal(t, ExternalNew, InternalToExternal(model.ArticleStatusNew))
	assert.Equal(t, ExternalPublished, InternalToExternal(model.ArticleStatusPublished))
	assert.Equal(t, ExternalNew, InternalToExternal("  "))
	assert.Equal(t, "weird", InternalToExternal("weird"))
}

func TestExternalToInternal(t *testing.T) {
	assert.Equal(t, model.ArticleStatusApproved, ExternalToInternal(ExternalPublish))
	assert.Equal(t, model.ArticleStatusError, ExternalToInternal(ExternalClose))
	assert.Equal(t, model.ArticleStatusNew, ExternalToInternal(ExternalNew))
	// Internal values pass through so callers may use either vocabulary.
	assert.Equal(t, model.ArticleStatusApproved, ExternalToInternal(model.ArticleStatusApproved))
	assert.Equal(t, model.ArticleStatusError, ExternalToInternal(model.ArticleStatusError))
}

func TestVocabulariesRoundTrip(t *testing.T) {
	for _, external := range ExternalStatuses {
		assert.Equal(t, external, InternalToExternal(ExternalToInternal(external)))
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(ExternalNew, ExternalRewrite))
	assert.True(t, CanTransition(ExternalNew, ExternalClose))
	assert.True(t, CanTransition(ExternalRewrite, ExternalPublish))
	assert.True(t, CanTransition(ExternalPublish, ExternalPublished))
	assert.True(t, CanTransition(ExternalPublished, ExternalRewrite))
	// close -> rewrite is the only re-open path.
	assert.True(t, CanTransition(ExternalClose, ExternalRewrite))
	assert.False(t, CanTransition(ExternalClose, ExternalPublish))
	assert.False(t, CanTransition(ExternalClose, ExternalClose))

	assert.False(t, CanTransition(ExternalNew, ExternalPublish))
	assert.False(t, CanTransition(ExternalNew, ExternalPublished))
	assert.False(t, CanTransition(ExternalRewrite, ExternalPublished))
	assert.False(t, CanTransition(ExternalPublish, ExternalRewrite))
}

package store

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vanityontour/newspipe/model"
	"github.com/vanityontour/newspipe/utils"
)

// Stored error strings are bounded so one giant upstream response
// cannot bloat a row.
const maxStoredErrorLength = 2000

/*
ArticleUpsert is the full set of fields ingestion writes for one entry.

Identity is NOT a single key: the same editorial item may be re-seen
under a changed link, a stable feed-provided id, or neither. Resolution
therefore runs through an ordered chain of lookup strategies, see
articleResolvers.
*/
type ArticleUpsert struct {
	FeedID                    *string
	SourceArticleId           string
	SourceHash                string
	Title                     string
	SourceUrl                 string
	CanonicalUrl              string
	PublishedAt               *time.Time
	Author                    string
	Summary                   string
	ContentRaw                string
	ContentRewritten          string
	ImageUrls                 []string
	PressContact              string
	SourceNameSnapshot        string
	SourceTermsUrlSnapshot    string
	SourceLicenseNameSnapshot string
	WordCount                 int
	Status                    string
	Attribution               *model.Attribution
	Extraction                *model.ExtractionMeta
}

// articleResolver is one identity lookup strategy. Resolve returns the
// matched article id or empty string when the strategy has no match.
type articleResolver interface {
	Resolve(tx *gorm.DB, payload *ArticleUpsert) (string, error)
}

type bySourceUrl struct{}

func (bySourceUrl) Resolve(tx *gorm.DB, payload *ArticleUpsert) (string, error) {
	return resolveArticleId(tx, "source_url = ?", payload.SourceUrl)
}

type byFeedSourceArticleId struct{}

func (byFeedSourceArticleId) Resolve(tx *gorm.DB, payload *ArticleUpsert) (string, error) {
	if payload.FeedID == nil || payload.SourceArticleId == "" {
		return "", nil
	}
	return resolveArticleId(tx, "feed_id = ? AND source_article_id = ?", *payload.FeedID, payload.SourceArticleId)
}

type bySourceHash struct{}

func (bySourceHash) Resolve(tx *gorm.DB, payload *ArticleUpsert) (string, error) {
	if payload.SourceHash == "" {
		return "", nil
	}
	return resolveArticleId(tx, "source_hash = ?", payload.SourceHash)
}

// Identity resolution chain, strongest key first. Adding a fourth key
// is appending one strategy here, call sites stay untouched.
var articleResolvers = []articleResolver{
	bySourceUrl{},
	byFeedSourceArticleId{},
	bySourceHash{},
}

func resolveArticleId(tx *gorm.DB, query string, args ...interface{}) (string, error) {
	var article model.Article
	err := tx.Select("id").Where(query, args...).Take(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return article.Id, nil
}

// ResolveExistingArticleId runs the identity chain in order and
// returns the first match, or empty string when the entry is new.
func ResolveExistingArticleId(tx *gorm.DB, payload *ArticleUpsert) (string, error) {
	for _, resolver := range articleResolvers {
		id, err := resolver.Resolve(tx, payload)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}

// FindExistingArticleForUpsert loads the full row the chain resolves
// to, or nil for a brand new entry.
func FindExistingArticleForUpsert(db *gorm.DB, payload *ArticleUpsert) (*model.Article, error) {
	id, err := ResolveExistingArticleId(db, payload)
	if err != nil || id == "" {
		return nil, err
	}
	return GetArticleById(db, id)
}

/*
UpsertArticle inserts or updates the article the identity chain
resolves the payload to, inside one transaction.

Merge rules on an existing row: freshly extracted fields win, but
rewrite text, publish linkage and attempt counters, legal review
fields, and the operator-owned meta sub-documents (image review, tags,
audit log) are carried forward — a re-ingested article never loses
human or publish progress. The attribution and extraction meta
sub-keys are replaced, not the whole document.

A row in the terminal closed state is never touched: the returned id
is empty and skipped=true, preserving operator intent to exclude it.
*/
func UpsertArticle(db *gorm.DB, payload ArticleUpsert) (id string, skipped bool, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		existingId, resolveErr := ResolveExistingArticleId(tx, &payload)
		if resolveErr != nil {
			return resolveErr
		}

		if existingId == "" {
			article := model.Article{
				Id:                        uuid.New().String(),
				FeedID:                    payload.FeedID,
				SourceArticleId:           payload.SourceArticleId,
				SourceHash:                payload.SourceHash,
				Title:                     payload.Title,
				SourceUrl:                 payload.SourceUrl,
				CanonicalUrl:              payload.CanonicalUrl,
				PublishedAt:               payload.PublishedAt,
				Author:                    payload.Author,
				Summary:                   payload.Summary,
				ContentRaw:                payload.ContentRaw,
				ContentRewritten:          payload.ContentRewritten,
				PressContact:              payload.PressContact,
				SourceNameSnapshot:        payload.SourceNameSnapshot,
				SourceTermsUrlSnapshot:    payload.SourceTermsUrlSnapshot,
				SourceLicenseNameSnapshot: payload.SourceLicenseNameSnapshot,
				WordCount:                 payload.WordCount,
				Status:                    payload.Status,
			}
			if article.Status == "" {
				article.Status = model.ArticleStatusNew
			}
			if encodeErr := article.EncodeImageUrls(payload.ImageUrls); encodeErr != nil {
				return encodeErr
			}
			meta := model.ArticleMeta{
				Attribution: payload.Attribution,
				Extraction:  payload.Extraction,
			}
			if encodeErr := article.EncodeMeta(meta); encodeErr != nil {
				return encodeErr
			}
			if createErr := tx.Create(&article).Error; createErr != nil {
				return errors.Wrap(createErr, "fail to insert article")
			}
			id = article.Id
			return nil
		}

		var existing model.Article
		if loadErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", existingId).Error; loadErr != nil {
			return loadErr
		}
		if existing.IsClosed() {
			// Explicitly closed article: ignore on subsequent ingestion runs.
			skipped = true
			return nil
		}

		existing.FeedID = payload.FeedID
		existing.SourceArticleId = payload.SourceArticleId
		existing.SourceHash = payload.SourceHash
		existing.Title = payload.Title
		existing.SourceUrl = payload.SourceUrl
		existing.CanonicalUrl = payload.CanonicalUrl
		existing.PublishedAt = payload.PublishedAt
		existing.Author = payload.Author
		existing.Summary = payload.Summary
		existing.ContentRaw = payload.ContentRaw
		if payload.PressContact != "" {
			existing.PressContact = payload.PressContact
		}
		existing.SourceNameSnapshot = payload.SourceNameSnapshot
		existing.SourceTermsUrlSnapshot = payload.SourceTermsUrlSnapshot
		existing.SourceLicenseNameSnapshot = payload.SourceLicenseNameSnapshot
		existing.WordCount = payload.WordCount
		if encodeErr := existing.EncodeImageUrls(payload.ImageUrls); encodeErr != nil {
			return encodeErr
		}

		meta := existing.DecodeMeta()
		meta.Attribution = payload.Attribution
		meta.Extraction = payload.Extraction
		if encodeErr := existing.EncodeMeta(meta); encodeErr != nil {
			return encodeErr
		}

		if saveErr := tx.Save(&existing).Error; saveErr != nil {
			return errors.Wrap(saveErr, "fail to update article")
		}
		id = existing.Id
		return nil
	})
	return id, skipped, err
}

func GetArticleById(db *gorm.DB, id string) (*model.Article, error) {
	var article model.Article
	if err := db.First(&article, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// ListArticles returns up to limit articles, newest first, optionally
// filtered by internal status.
func ListArticles(db *gorm.DB, limit int, statusFilter string) ([]model.Article, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := db.Order("created_at DESC").Limit(limit)
	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}
	var articles []model.Article
	if err := query.Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// StatusGuard decides, from the locked row's current state, which
// status the article may move to. Returning an error rejects the move.
type StatusGuard func(article *model.Article) (string, error)

// UpdateArticleStatusGuarded locks the article row, lets guard pick the
// target status from the row's actual current state, then applies the
// move and appends one audit event, all in the same transaction. A
// guard rejection leaves the row and its audit log untouched. Running
// the guard under the row lock is what keeps concurrent transitions
// serialized: the second caller sees the first caller's status, not a
// stale read.
func UpdateArticleStatusGuarded(db *gorm.DB, articleId string, guard StatusGuard, actor string, note string, decision string) error {
	if actor == "" {
		actor = "system"
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var article model.Article
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&article, "id = ?", articleId).Error; err != nil {
			return err
		}

		newStatus, err := guard(&article)
		if err != nil {
			return err
		}

		meta := article.DecodeMeta()
		meta.ReviewEvents = append(meta.ReviewEvents, model.ReviewEvent{
			Timestamp:  time.Now().UTC(),
			FromStatus: article.Status,
			ToStatus:   newStatus,
			Actor:      actor,
			Note:       note,
			Decision:   decision,
		})
		if err := article.EncodeMeta(meta); err != nil {
			return err
		}
		article.Status = newStatus
		return tx.Save(&article).Error
	})
}

// UpdateArticleStatus moves the article to newStatus unconditionally
// and appends one audit event. Validated transitions go through
// UpdateArticleStatusGuarded, that's the workflow package's job.
func UpdateArticleStatus(db *gorm.DB, articleId string, newStatus string, actor string, note string, decision string) error {
	return UpdateArticleStatusGuarded(db, articleId, func(*model.Article) (string, error) {
		return newStatus, nil
	}, actor, note, decision)
}

// SetArticleRewriteResult stores the rewritten body and generated tags
// and advances the article to approved, with one audit event.
func SetArticleRewriteResult(db *gorm.DB, articleId string, rewritten string, tags []string, actor string) error {
	if actor == "" {
		actor = "system"
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var article model.Article
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&article, "id = ?", articleId).Error; err != nil {
			return err
		}

		meta := article.DecodeMeta()
		meta.GeneratedTags = tags
		meta.ReviewEvents = append(meta.ReviewEvents, model.ReviewEvent{
			Timestamp:  time.Now().UTC(),
			Event:      "rewrite",
			FromStatus: article.Status,
			ToStatus:   model.ArticleStatusApproved,
			Actor:      actor,
		})
		if err := article.EncodeMeta(meta); err != nil {
			return err
		}
		article.ContentRewritten = rewritten
		article.Status = model.ArticleStatusApproved
		return tx.Save(&article).Error
	})
}

// SetArticleLegalReview records the operator's legal review decision
// and appends an audit event.
func SetArticleLegalReview(db *gorm.DB, articleId string, approved bool, note string, actor string) error {
	if actor == "" {
		actor = "system"
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var article model.Article
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&article, "id = ?", articleId).Error; err != nil {
			return err
		}

		meta := article.DecodeMeta()
		meta.ReviewEvents = append(meta.ReviewEvents, model.ReviewEvent{
			Timestamp: time.Now().UTC(),
			Event:     "legal_review",
			Actor:     actor,
			Note:      note,
			Approved:  &approved,
		})
		if err := article.EncodeMeta(meta); err != nil {
			return err
		}
		now := time.Now().UTC()
		article.LegalChecked = approved
		article.LegalCheckedAt = &now
		article.LegalNote = note
		return tx.Save(&article).Error
	})
}

// Image decision actions.
const (
	ImageActionSelect  = "select"
	ImageActionExclude = "exclude"
	ImageActionRestore = "restore"
)

// SetArticleImageDecision applies one operator decision to the
// article's image review state. Selecting a url clears it from the
// excluded set; excluding the selected url unselects it.
func SetArticleImageDecision(db *gorm.DB, articleId string, imageUrl string, action string, actor string) error {
	if imageUrl == "" {
		return errors.New("image url is empty")
	}
	if action != ImageActionSelect && action != ImageActionExclude && action != ImageActionRestore {
		return errors.Errorf("unknown image action: %s", action)
	}
	if actor == "" {
		actor = "system"
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var article model.Article
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&article, "id = ?", articleId).Error; err != nil {
			return err
		}

		meta := article.DecodeMeta()
		review := meta.ImageReview
		if review == nil {
			review = &model.ImageReview{}
		}
		excluded := make(map[string]bool)
		for _, url := range review.ExcludedUrls {
			excluded[url] = true
		}

		switch action {
		case ImageActionSelect:
			review.SelectedUrl = imageUrl
			delete(excluded, imageUrl)
		case ImageActionExclude:
			excluded[imageUrl] = true
			if review.SelectedUrl == imageUrl {
				review.SelectedUrl = ""
			}
		case ImageActionRestore:
			delete(excluded, imageUrl)
		}

		urls := make([]string, 0, len(excluded))
		for url := range excluded {
			urls = append(urls, url)
		}
		sort.Strings(urls)
		review.ExcludedUrls = urls
		review.UpdatedAt = time.Now().UTC()
		review.UpdatedBy = actor
		meta.ImageReview = review

		if err := article.EncodeMeta(meta); err != nil {
			return err
		}
		return tx.Save(&article).Error
	})
}

// MarkArticlePublishResult records the outcome of one publish attempt
// on the article row.
func MarkArticlePublishResult(db *gorm.DB, articleId string, wpPostId *int64, wpPostUrl string, publishErr string, setPublished bool) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var article model.Article
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&article, "id = ?", articleId).Error; err != nil {
			return err
		}

		article.WpPostId = wpPostId
		article.WpPostUrl = wpPostUrl
		article.PublishAttempts++
		article.PublishLastError = utils.TruncateString(publishErr, maxStoredErrorLength)
		if wpPostId != nil {
			now := time.Now().UTC()
			article.PublishedToWpAt = &now
		}
		if setPublished {
			article.Status = model.ArticleStatusPublished
		}
		return tx.Save(&article).Error
	})
}

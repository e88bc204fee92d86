package publisher

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vanityontour/newspipe/model"
	"github.com/vanityontour/newspipe/store"
	Logger "github.com/vanityontour/newspipe/utils/log"
)

const defaultMaxAttempts = 3

// PostPublisher is the outbound side of the processor. Tests plug in a
// canned implementation instead of a live WordPress site.
type PostPublisher interface {
	PublishArticleDraft(article *model.Article) (int64, string, error)
}

// Stats aggregates one queue-draining pass.
type Stats struct {
	RunId     string `json:"run_id"`
	Processed int    `json:"processed"`
	Success   int    `json:"success"`
	Failed    int    `json:"failed"`
	Requeued  int    `json:"requeued"`
}

// Processor leases publish jobs and pushes their articles to the
// publish target. All retry bookkeeping lives on the job rows, so any
// number of processors can drain the same queue.
type Processor struct {
	DB *gorm.DB
	WP PostPublisher
}

func NewProcessor(db *gorm.DB, wp PostPublisher) *Processor {
	return &Processor{DB: db, WP: wp}
}

// Enqueue queues the article for publishing. Idempotent per article
// while a job is outstanding.
func (p *Processor) Enqueue(articleId string) (string, error) {
	return store.EnqueuePublishJob(p.DB, articleId, defaultMaxAttempts)
}

// canPublish checks the article against the publish preconditions.
// Returns the operator-facing reason when publishing is not allowed.
func canPublish(article *model.Article) (bool, string) {
	if article.Status != model.ArticleStatusApproved && article.Status != model.ArticleStatusPublished {
		return false, "Artikelstatus muss 'publish' sein"
	}
	meta := article.DecodeMeta()
	if meta.ImageReview == nil || strings.TrimSpace(meta.ImageReview.SelectedUrl) == "" {
		return false, "Hauptbild nicht gesetzt"
	}
	return true, ""
}

// Run drains up to maxJobs leased jobs. Precondition violations fail
// the job terminally; publish errors requeue while the job has retry
// budget left. Every pass leaves a Run record behind.
func (p *Processor) Run(maxJobs int) (Stats, error) {
	if maxJobs < 1 {
		maxJobs = 1
	}

	runId, err := store.CreateRun(p.DB, model.RunTypePublish, map[string]interface{}{"max_jobs": maxJobs})
	if err != nil {
		return Stats{}, errors.Wrap(err, "fail to create publish run")
	}
	stats := Stats{RunId: runId}

	for i := 0; i < maxJobs; i++ {
		job, err := store.LeaseNextPublishJob(p.DB)
		if err != nil {
			store.FinishRun(p.DB, runId, model.RunStatusFailed, stats)
			return stats, errors.Wrap(err, "fail to lease publish job")
		}
		if job == nil {
			break
		}
		stats.Processed++
		p.processJob(job, &stats)
	}

	if err := store.FinishRun(p.DB, runId, model.RunStatusSuccess, stats); err != nil {
		Logger.Log.Error("fail to finish publish run: ", err)
	}
	return stats, nil
}

func (p *Processor) processJob(job *model.PublishJob, stats *Stats) {
	article, err := store.GetArticleById(p.DB, job.ArticleID)
	if err != nil {
		p.failTerminal(job, article, "Artikel nicht gefunden")
		stats.Failed++
		return
	}

	if allowed, reason := canPublish(article); !allowed {
		p.failTerminal(job, article, reason)
		stats.Failed++
		return
	}

	wpPostId, wpPostUrl, err := p.WP.PublishArticleDraft(article)
	if err != nil {
		requeue := job.Attempts < job.MaxAttempts
		if failErr := store.FailPublishJob(p.DB, job.Id, err.Error(), requeue); failErr != nil {
			Logger.Log.Error("fail to record publish job failure: ", failErr)
		}
		if markErr := store.MarkArticlePublishResult(p.DB, article.Id, article.WpPostId, article.WpPostUrl, err.Error(), false); markErr != nil {
			Logger.Log.Error("fail to record article publish failure: ", markErr)
		}
		Logger.Log.Error("fail to publish article ", article.Id, ": ", err)
		if requeue {
			stats.Requeued++
		} else {
			stats.Failed++
		}
		return
	}

	if err := store.CompletePublishJob(p.DB, job.Id, wpPostId, wpPostUrl); err != nil {
		Logger.Log.Error("fail to complete publish job: ", err)
	}
	if err := store.MarkArticlePublishResult(p.DB, article.Id, &wpPostId, wpPostUrl, "", true); err != nil {
		Logger.Log.Error("fail to record article publish success: ", err)
	}
	Logger.Log.Info("article published: ", article.Id, " post=", wpPostId)
	stats.Success++
}

// failTerminal fails the job without requeue and records the reason on
// the article when it exists.
func (p *Processor) failTerminal(job *model.PublishJob, article *model.Article, reason string) {
	if err := store.FailPublishJob(p.DB, job.Id, reason, false); err != nil {
		Logger.Log.Error("fail to record publish job failure: ", err)
	}
	if article != nil {
		if err := store.MarkArticlePublishResult(p.DB, article.Id, article.WpPostId, article.WpPostUrl, reason, false); err != nil {
			Logger.Log.Error("fail to record article publish failure: ", err)
		}
	}
}

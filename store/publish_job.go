package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vanityontour/newspipe/model"
	"github.com/vanityontour/newspipe/utils"
)

// EnqueuePublishJob creates a queued publish job for the article.
// Idempotent: if a queued or running job already exists for the
// article, its id is returned and nothing is created, so at most one
// publish attempt can ever be outstanding per article.
func EnqueuePublishJob(db *gorm.DB, articleId string, maxAttempts int) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var jobId string
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing model.PublishJob
		err := tx.
			Where("article_id = ? AND status IN ?", articleId, []string{model.PublishJobStatusQueued, model.PublishJobStatusRunning}).
			Order("cursor DESC").
			Take(&existing).Error
		if err == nil {
			jobId = existing.Id
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		job := model.PublishJob{
			Id:          uuid.New().String(),
			ArticleID:   articleId,
			Status:      model.PublishJobStatusQueued,
			MaxAttempts: maxAttempts,
		}
		if err := tx.Create(&job).Error; err != nil {
			return errors.Wrap(err, "fail to create publish job")
		}
		jobId = job.Id
		return nil
	})
	return jobId, err
}

// LeaseNextPublishJob atomically claims the oldest queued job that
// still has retry budget, flipping it to running and incrementing its
// attempt counter. Returns nil when no leasable job remains. The row
// lock makes concurrent workers serialize on the same candidate so a
// job can never be double-leased.
func LeaseNextPublishJob(db *gorm.DB) (*model.PublishJob, error) {
	var leased *model.PublishJob
	err := db.Transaction(func(tx *gorm.DB) error {
		var job model.PublishJob
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND attempts < max_attempts", model.PublishJobStatusQueued).
			Order("cursor ASC").
			Take(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		job.Status = model.PublishJobStatusRunning
		job.Attempts++
		job.StartedAt = &now
		job.FinishedAt = nil
		if err := tx.Save(&job).Error; err != nil {
			return errors.Wrap(err, "fail to lease publish job")
		}
		leased = &job
		return nil
	})
	return leased, err
}

// CompletePublishJob marks the job successful with the resulting post
// linkage.
func CompletePublishJob(db *gorm.DB, jobId string, wpPostId int64, wpPostUrl string) error {
	now := time.Now().UTC()
	return db.Model(&model.PublishJob{}).Where("id = ?", jobId).Updates(map[string]interface{}{
		"status":        model.PublishJobStatusSuccess,
		"wp_post_id":    wpPostId,
		"wp_post_url":   wpPostUrl,
		"error_message": "",
		"finished_at":   &now,
	}).Error
}

// FailPublishJob records a failure. With requeue the job goes back to
// queued for another lease; otherwise it is terminally failed.
func FailPublishJob(db *gorm.DB, jobId string, errorMessage string, requeue bool) error {
	nextStatus := model.PublishJobStatusFailed
	if requeue {
		nextStatus = model.PublishJobStatusQueued
	}
	now := time.Now().UTC()
	return db.Model(&model.PublishJob{}).Where("id = ?", jobId).Updates(map[string]interface{}{
		"status":        nextStatus,
		"error_message": utils.TruncateString(errorMessage, maxStoredErrorLength),
		"finished_at":   &now,
	}).Error
}

func GetPublishJobById(db *gorm.DB, id string) (*model.PublishJob, error) {
	var job model.PublishJob
	if err := db.First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListPublishJobs returns up to limit jobs, newest first.
func ListPublishJobs(db *gorm.DB, limit int) ([]model.PublishJob, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var jobs []model.PublishJob
	if err := db.Order("cursor DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

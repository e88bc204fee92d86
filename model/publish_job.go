package model

import (
	"time"
)

// Publish job statuses.
const (
	PublishJobStatusQueued  = "queued"
	PublishJobStatusRunning = "running"
	PublishJobStatusSuccess = "success"
	PublishJobStatusFailed  = "failed"
)

/*

PublishJob is a leasable unit of publish work bound to one article.

Id: primary key
ArticleID:
Article: the article to publish, "belongs-to" relation

Status: queued/running/success/failed
Attempts: lease counter, incremented atomically on every lease
MaxAttempts: retry budget; a job whose attempts reach this after a
	failure stays failed
ErrorMessage: last failure, truncated
WpPostId, WpPostUrl: resulting post linkage on success
StartedAt, FinishedAt: last lease window

Cursor: auto-inc global-unique index keeping the relative order of
	jobs, leases go to the oldest queued job first

Invariant: at most one queued-or-running job exists per article at a
time; enqueue returns the outstanding job instead of duplicating it.
*/
type PublishJob struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ArticleID    string   `gorm:"index"`
	Article      *Article `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Status       string   `gorm:"index;default:queued"`
	Attempts     int
	MaxAttempts  int
	ErrorMessage string
	WpPostId     *int64
	WpPostUrl    string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	Cursor       int64 `gorm:"autoIncrement"`
}

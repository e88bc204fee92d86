package model

import (
	"time"

	"gorm.io/datatypes"
)

// Run types and statuses.
const (
	RunTypeIngestion = "ingestion"
	RunTypePublish   = "publish"

	RunStatusQueued  = "queued"
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

/*

Run is an append-only audit record of one ingestion or publish
invocation.

Id: primary key
RunType: "ingestion" or "publish"
Status: queued/running/success/failed
StartedAt, FinishedAt: invocation window
Details: free-form JSON document with per-feed counts, policy blocks
	and errors
*/
type Run struct {
	Id         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	RunType    string `gorm:"index"`
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Details    datatypes.JSON
}

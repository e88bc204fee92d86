package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vanityontour/newspipe/model"
)

// CreateRun opens one audit record for an ingestion or publish
// invocation and returns its id.
func CreateRun(db *gorm.DB, runType string, details interface{}) (string, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return "", err
	}
	run := model.Run{
		Id:        uuid.New().String(),
		RunType:   runType,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
		Details:   datatypes.JSON(raw),
	}
	if err := db.Create(&run).Error; err != nil {
		return "", errors.Wrap(err, "fail to create run")
	}
	return run.Id, nil
}

// FinishRun closes the run with a final status and details document.
func FinishRun(db *gorm.DB, runId string, status string, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return db.Model(&model.Run{}).Where("id = ?", runId).Updates(map[string]interface{}{
		"status":      status,
		"details":     datatypes.JSON(raw),
		"finished_at": &now,
	}).Error
}

func GetRunById(db *gorm.DB, id string) (*model.Run, error) {
	var run model.Run
	if err := db.First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns up to limit runs, newest first.
func ListRuns(db *gorm.DB, limit int) ([]model.Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var runs []model.Run
	if err := db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

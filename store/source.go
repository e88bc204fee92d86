package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vanityontour/newspipe/model"
)

// SourceInput carries operator-editable source fields.
type SourceInput struct {
	Name           string
	BaseUrl        string
	TermsUrl       string
	LicenseName    string
	RiskLevel      string
	IsEnabled      bool
	Notes          string
	LastReviewedAt *time.Time
}

// FeedInput carries operator-editable feed fields.
type FeedInput struct {
	Name      string
	Url       string
	SourceID  *string
	IsEnabled bool
}

func CreateSource(db *gorm.DB, input SourceInput) (*model.Source, error) {
	source := model.Source{
		Id:             uuid.New().String(),
		Name:           input.Name,
		BaseUrl:        input.BaseUrl,
		TermsUrl:       input.TermsUrl,
		LicenseName:    input.LicenseName,
		RiskLevel:      input.RiskLevel,
		IsEnabled:      input.IsEnabled,
		Notes:          input.Notes,
		LastReviewedAt: input.LastReviewedAt,
	}
	if source.RiskLevel == "" {
		source.RiskLevel = model.RiskLevelYellow
	}
	if err := db.Create(&source).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create source")
	}
	return &source, nil
}

func UpdateSource(db *gorm.DB, id string, input SourceInput) error {
	res := db.Model(&model.Source{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":             input.Name,
		"base_url":         input.BaseUrl,
		"terms_url":        input.TermsUrl,
		"license_name":     input.LicenseName,
		"risk_level":       input.RiskLevel,
		"is_enabled":       input.IsEnabled,
		"notes":            input.Notes,
		"last_reviewed_at": input.LastReviewedAt,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "fail to update source")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func GetSourceById(db *gorm.DB, id string) (*model.Source, error) {
	var source model.Source
	if err := db.First(&source, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

func ListSources(db *gorm.DB) ([]model.Source, error) {
	var sources []model.Source
	if err := db.Order("created_at DESC").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func CreateFeed(db *gorm.DB, input FeedInput) (*model.Feed, error) {
	feed := model.Feed{
		Id:        uuid.New().String(),
		Name:      input.Name,
		Url:       input.Url,
		SourceID:  input.SourceID,
		IsEnabled: input.IsEnabled,
	}
	if err := db.Create(&feed).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create feed")
	}
	return &feed, nil
}

func UpdateFeed(db *gorm.DB, id string, input FeedInput) error {
	res := db.Model(&model.Feed{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":       input.Name,
		"url":        input.Url,
		"source_id":  input.SourceID,
		"is_enabled": input.IsEnabled,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "fail to update feed")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetFeedById loads one feed with its owning source preloaded.
func GetFeedById(db *gorm.DB, id string) (*model.Feed, error) {
	var feed model.Feed
	if err := db.Preload("Source").First(&feed, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &feed, nil
}

// ListEnabledFeeds returns all enabled feeds with sources preloaded,
// oldest first so ingestion order is stable.
func ListEnabledFeeds(db *gorm.DB) ([]model.Feed, error) {
	var feeds []model.Feed
	if err := db.Preload("Source").Where("is_enabled = ?", true).Order("created_at ASC").Find(&feeds).Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

// UpdateFeedFetchState persists the origin's conditional-fetch tokens
// and stamps the last check time. Called by ingestion only.
func UpdateFeedFetchState(db *gorm.DB, feedId string, etag string, lastModified string) error {
	now := time.Now().UTC()
	return db.Model(&model.Feed{}).Where("id = ?", feedId).Updates(map[string]interface{}{
		"e_tag":           etag,
		"last_modified":   lastModified,
		"last_checked_at": &now,
	}).Error
}

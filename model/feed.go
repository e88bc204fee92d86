package model

import (
	"time"

	"gorm.io/gorm"
)

/*

Feed is one fetchable syndication endpoint, optionally owned by a Source.

Id: primary key
CreatedAt: time when entity is created
DeletedAt: time when entity is deleted

SourceID:
Source: origin this feed belongs to, "belongs-to" relation, nullable

Name: feed's display name
Url: fetch endpoint, unique
IsEnabled: disabled feeds are skipped by ingestion
ETag: last entity tag returned by the origin, echoed back as If-None-Match
LastModified: last Last-Modified returned, echoed back as If-Modified-Since
LastCheckedAt: when ingestion last contacted the origin

The fetch-state fields (ETag/LastModified/LastCheckedAt) are mutated
only by the ingestion engine; name/url/enable only by operator edits.
*/
type Feed struct {
	Id            string `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt
	SourceID      *string `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Source        *Source `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Name          string
	Url           string `gorm:"uniqueIndex"`
	IsEnabled     bool   `gorm:"default:true"`
	ETag          string
	LastModified  string
	LastCheckedAt *time.Time
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// Risk levels an operator can assign to a source. Only green sources
// pass policy evaluation.
const (
	RiskLevelGreen  = "green"
	RiskLevelYellow = "yellow"
	RiskLevelRed    = "red"
)

/*

Source is a syndication origin under editorial governance.

Example: a press portal or newsroom whose feeds we are licensed to reuse.

Id: primary key
CreatedAt: time when entity is created
DeletedAt: time when entity is deleted

Name: display name of the origin
BaseUrl: origin's home page
TermsUrl: link to the reuse terms the editor reviewed
LicenseName: name of the license covering reuse
RiskLevel: editorial trust tier, one of green/yellow/red
IsEnabled: operator on/off switch, disabled sources never ingest
Notes: free-text operator notes
LastReviewedAt: when an editor last reviewed the terms
Feeds: fetchable endpoints owned by this source, "has-many" relation

Sources are created and edited by operators only. The pipeline reads
them through the policy evaluator and snapshots their attribution
fields onto each ingested article.
*/
type Source struct {
	Id             string `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt
	Name           string
	BaseUrl        string
	TermsUrl       string
	LicenseName    string
	RiskLevel      string `gorm:"default:yellow"`
	IsEnabled      bool
	Notes          string
	LastReviewedAt *time.Time
	Feeds          []Feed `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

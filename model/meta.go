package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Attribution is the snapshot of the owning source and feed captured
// at ingestion time. It is written on every ingestion of the article
// so published attribution reflects the terms in force at capture.
type Attribution struct {
	SourceName        string    `json:"source_name,omitempty"`
	SourceBaseUrl     string    `json:"source_base_url,omitempty"`
	SourceTermsUrl    string    `json:"source_terms_url,omitempty"`
	SourceLicenseName string    `json:"source_license_name,omitempty"`
	SourceRiskLevel   string    `json:"source_risk_level,omitempty"`
	OriginalLink      string    `json:"original_link,omitempty"`
	FeedName          string    `json:"feed_name,omitempty"`
	FeedId            string    `json:"feed_id,omitempty"`
	ImportedAt        time.Time `json:"imported_at,omitempty"`
}

// RankedImage is one scored image candidate with the reasons that
// produced the score, kept for operator inspection.
type RankedImage struct {
	Url     string   `json:"url"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// ImageSelection records what the ranker kept out of the extracted
// candidates of one ingestion pass.
type ImageSelection struct {
	Primary         string        `json:"primary,omitempty"`
	SelectedCount   int           `json:"selected_count"`
	TotalCandidates int           `json:"total_candidates"`
	Ranked          []RankedImage `json:"ranked,omitempty"`
}

// ExtractionMeta carries the raw extractor output for diagnostics.
type ExtractionMeta struct {
	Title           string          `json:"title,omitempty"`
	Author          string          `json:"author,omitempty"`
	CanonicalUrl    string          `json:"canonical_url,omitempty"`
	Summary         string          `json:"summary,omitempty"`
	Images          []string        `json:"images,omitempty"`
	PressContact    string          `json:"press_contact,omitempty"`
	ExtractionError string          `json:"extraction_error,omitempty"`
	FetchedFrom     string          `json:"fetched_from,omitempty"`
	ImageSelection  *ImageSelection `json:"image_selection,omitempty"`
}

// ImageReview holds the operator's featured-image decisions.
type ImageReview struct {
	SelectedUrl  string    `json:"selected_url,omitempty"`
	ExcludedUrls []string  `json:"excluded_urls,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
	UpdatedBy    string    `json:"updated_by,omitempty"`
}

// ReviewEvent is one entry of the append-only audit log on an article.
type ReviewEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Event      string    `json:"event,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note,omitempty"`
	Decision   string    `json:"decision,omitempty"`
	Approved   *bool     `json:"approved,omitempty"`
}

/*

ArticleMeta is the open-ended per-article metadata document, stored as
a JSON column. It is a typed sum of well-known sub-structures so the
merge-on-re-ingest rules stay explicit:

	Attribution, Extraction: replaced on every ingestion pass
	ImageReview: operator state, only mutated by image decisions
	GeneratedTags: replaced by each tag generation
	ReviewEvents: append-only audit log

Unknown keys written by older versions survive round-trips only within
the known sub-structures; the document is versioned by its sub-keys
rather than a global version number.
*/
type ArticleMeta struct {
	Attribution   *Attribution    `json:"attribution,omitempty"`
	Extraction    *ExtractionMeta `json:"extraction,omitempty"`
	ImageReview   *ImageReview    `json:"image_review,omitempty"`
	GeneratedTags []string        `json:"generated_tags,omitempty"`
	ReviewEvents  []ReviewEvent   `json:"review_events,omitempty"`
}

// DecodeMeta parses the article's meta column. A missing or corrupt
// document decodes to the zero value so callers never branch on JSON
// errors.
func (a *Article) DecodeMeta() ArticleMeta {
	var meta ArticleMeta
	if len(a.Meta) == 0 {
		return meta
	}
	if err := json.Unmarshal(a.Meta, &meta); err != nil {
		return ArticleMeta{}
	}
	return meta
}

// EncodeMeta serializes the document back into the meta column.
func (a *Article) EncodeMeta(meta ArticleMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	a.Meta = datatypes.JSON(raw)
	return nil
}

// DecodeImageUrls parses the ranked image url list.
func (a *Article) DecodeImageUrls() []string {
	if len(a.ImageUrls) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(a.ImageUrls, &urls); err != nil {
		return nil
	}
	return urls
}

// EncodeImageUrls serializes the ranked image url list.
func (a *Article) EncodeImageUrls(urls []string) error {
	raw, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	a.ImageUrls = datatypes.JSON(raw)
	return nil
}

package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanityontour/newspipe/utils"
)

// EntryFingerprint computes the deterministic dedup fingerprint over
// the stable attributes of one feed entry. Two different links for the
// same editorial content still collide here as long as the feed keeps
// id, title, summary and publish time stable.
func EntryFingerprint(feedId string, entryId string, link string, title string, summary string, publishedAt *time.Time) string {
	published := ""
	if publishedAt != nil {
		published = publishedAt.UTC().Format(time.RFC3339)
	}
	fingerprint := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		feedId, entryId, link, strings.TrimSpace(title), strings.TrimSpace(summary), published)
	return utils.TextToSha256Hash(fingerprint)
}

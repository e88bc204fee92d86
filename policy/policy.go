// Package policy gates ingestion per source. Evaluation is a pure
// function so it can run before any network contact with the origin.
package policy

import (
	"fmt"
	"strings"

	"github.com/vanityontour/newspipe/model"
)

// Evaluate returns one human-readable issue per violated compliance
// invariant. An empty result means the source's feeds may be ingested.
// A nil source is itself a violation: feeds without an owning source
// are never ingested.
func Evaluate(source *model.Source) []string {
	var issues []string
	if source == nil {
		return append(issues, "Keine Quelle zugeordnet")
	}

	riskLevel := strings.ToLower(strings.TrimSpace(source.RiskLevel))
	if riskLevel != model.RiskLevelGreen {
		if riskLevel == "" {
			riskLevel = "unset"
		}
		issues = append(issues, fmt.Sprintf("Quelle nicht freigegeben (risk_level=%s)", riskLevel))
	}

	if strings.TrimSpace(source.TermsUrl) == "" {
		issues = append(issues, "terms_url fehlt")
	}

	if strings.TrimSpace(source.LicenseName) == "" {
		issues = append(issues, "license_name fehlt")
	}

	if source.LastReviewedAt == nil || source.LastReviewedAt.IsZero() {
		issues = append(issues, "last_reviewed_at fehlt")
	}

	if !source.IsEnabled {
		issues = append(issues, "Quelle ist deaktiviert")
	}

	return issues
}

// IsAllowed reports whether the source passes all policy checks.
func IsAllowed(source *model.Source) bool {
	return len(Evaluate(source)) == 0
}

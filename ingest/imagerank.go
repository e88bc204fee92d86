package ingest

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/vanityontour/newspipe/model"
)

// Candidates kept per article when any score positive.
const maxKeptImages = 3

// Url substrings that mark an image as irrelevant for a news article
// (chrome, branding, tracking).
var blockedImagePatterns = []string{
	"logo", "badge", "app-store", "google-play", "na-logo",
	"sprite", "icon", "favicon", "tracking", "pixel",
}

// originPathBonus is one origin-specific known-good (or known-bad)
// thumbnail path shape. Origins get matched by host substring so
// subdomains qualify too.
type originPathBonus struct {
	hostContains string
	pathContains string
	bonus        int
	reason       string
}

// Configurable per origin: path shapes observed on origins we ingest
// from. First matching row wins per candidate.
var originPathBonuses = []originPathBonus{
	{"presseportal.de", "/thumbnail/story_big/", 120, "presseportal-story-big"},
	{"presseportal.de", "/thumbnail/highlight/", 45, "presseportal-highlight"},
	{"presseportal.de", "/thumbnail/liste/", -40, "presseportal-list"},
}

var nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeTokens lowercases the text and keeps tokens of at least 4
// characters, the minimum for a meaningful title/path overlap.
func normalizeTokens(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, token := range strings.Fields(nonAlphanumericRe.ReplaceAllString(strings.ToLower(text), " ")) {
		if len(token) >= 4 {
			tokens[token] = true
		}
	}
	return tokens
}

// RankImages scores every candidate against the article. Deterministic
// and free of I/O. Scores start at 0: blocked patterns subtract a
// large penalty, origin-specific thumbnail shapes add their configured
// bonus, shared title/path tokens add up to a moderate bonus, and
// crop-query preview variants get a small penalty. The result is
// sorted descending by score, candidate order breaking ties.
func RankImages(sourceUrl string, title string, images []string) []model.RankedImage {
	sourceHost := ""
	if parsed, err := url.Parse(sourceUrl); err == nil {
		sourceHost = strings.ToLower(parsed.Hostname())
	}
	titleTokens := normalizeTokens(title)

	ranked := make([]model.RankedImage, 0, len(images))
	for _, image := range images {
		score := 0
		var reasons []string

		parsed, err := url.Parse(image)
		path := ""
		query := ""
		host := ""
		if err == nil {
			if unescaped, unescapeErr := url.PathUnescape(parsed.Path); unescapeErr == nil {
				path = strings.ToLower(unescaped)
			} else {
				path = strings.ToLower(parsed.Path)
			}
			query = strings.ToLower(parsed.RawQuery)
			host = strings.ToLower(parsed.Host)
		}
		full := host + path

		for _, pattern := range blockedImagePatterns {
			if strings.Contains(full, pattern) {
				score -= 150
				reasons = append(reasons, "blocked-pattern")
				break
			}
		}

		for _, bonus := range originPathBonuses {
			if strings.Contains(sourceHost, bonus.hostContains) && strings.Contains(path, bonus.pathContains) {
				score += bonus.bonus
				reasons = append(reasons, bonus.reason)
				break
			}
		}

		if strings.Contains(query, "crop=") {
			score -= 10
			reasons = append(reasons, "cropped-preview")
		}

		pathTokens := normalizeTokens(strings.ReplaceAll(path, "-", " "))
		overlap := 0
		for token := range pathTokens {
			if titleTokens[token] {
				overlap++
			}
		}
		if overlap > 0 {
			bonus := overlap * 6
			if bonus > 30 {
				bonus = 30
			}
			score += bonus
			reasons = append(reasons, fmt.Sprintf("title-match:%d", overlap))
		}

		ranked = append(ranked, model.RankedImage{Url: image, Score: score, Reasons: reasons})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// SelectRelevantImages dedupes the candidates preserving first-seen
// order, ranks them, and keeps up to maxKeptImages positive-scoring
// entries. If none score positively the single highest-scoring
// candidate is kept as fallback, so an article never ends with zero
// image candidates when at least one image existed.
func SelectRelevantImages(sourceUrl string, title string, images []string) (kept []string, primary string, ranked []model.RankedImage) {
	seen := make(map[string]bool)
	var deduped []string
	for _, image := range images {
		if image != "" && !seen[image] {
			seen[image] = true
			deduped = append(deduped, image)
		}
	}

	ranked = RankImages(sourceUrl, title, deduped)
	for _, item := range ranked {
		if item.Score > 0 && len(kept) < maxKeptImages {
			kept = append(kept, item.Url)
		}
	}
	if len(kept) == 0 && len(ranked) > 0 {
		kept = []string{ranked[0].Url}
	}
	if len(kept) > 0 {
		primary = kept[0]
	}
	return kept, primary, ranked
}

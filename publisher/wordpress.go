package publisher

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vanityontour/newspipe/model"
	Logger "github.com/vanityontour/newspipe/utils/log"
)

const (
	wpRequestTimeout   = 20 * time.Second
	wpMediaTimeout     = 30 * time.Second
	wpUserAgent        = "newspipe/1.0 (+https://news.vanityontour.de)"
	defaultPostStatus  = "draft"
	maxPublishTagCount = 12
)

// WordPressClient talks to a WordPress site through its REST API using
// application-password basic auth.
type WordPressClient struct {
	BaseUrl       string
	Username      string
	AppPassword   string
	DefaultStatus string

	client      *http.Client
	mediaClient *http.Client
}

// NewWordPressClientFromEnv reads WORDPRESS_BASE_URL,
// WORDPRESS_USERNAME, WORDPRESS_APP_PASSWORD and
// WORDPRESS_DEFAULT_STATUS.
func NewWordPressClientFromEnv() *WordPressClient {
	status := os.Getenv("WORDPRESS_DEFAULT_STATUS")
	if status == "" {
		status = defaultPostStatus
	}
	return &WordPressClient{
		BaseUrl:       os.Getenv("WORDPRESS_BASE_URL"),
		Username:      os.Getenv("WORDPRESS_USERNAME"),
		AppPassword:   os.Getenv("WORDPRESS_APP_PASSWORD"),
		DefaultStatus: status,
		client:        &http.Client{Timeout: wpRequestTimeout},
		mediaClient:   &http.Client{Timeout: wpMediaTimeout},
	}
}

func (c *WordPressClient) httpClient() *http.Client {
	if c.client == nil {
		c.client = &http.Client{Timeout: wpRequestTimeout}
	}
	return c.client
}

func (c *WordPressClient) mediaHttpClient() *http.Client {
	if c.mediaClient == nil {
		c.mediaClient = &http.Client{Timeout: wpMediaTimeout}
	}
	return c.mediaClient
}

func (c *WordPressClient) authHeader() string {
	token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.AppPassword))
	return "Basic " + token
}

func (c *WordPressClient) endpointUrl(endpoint string) string {
	return strings.TrimRight(c.BaseUrl, "/") + "/wp-json/wp/v2/" + strings.TrimLeft(endpoint, "/")
}

// request performs one JSON API call and decodes the response body.
func (c *WordPressClient) request(method string, endpoint string, payload interface{}) (json.RawMessage, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.endpointUrl(endpoint), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", wpUserAgent)

	res, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, errors.Errorf("WordPress %s %s failed with status %d: %s", method, endpoint, res.StatusCode, string(raw))
	}
	return json.RawMessage(raw), nil
}

// ResolveTagIds turns tag names into WordPress term ids, searching for
// an existing term first and creating one when none matches. A failure
// on one tag skips that tag only.
func (c *WordPressClient) ResolveTagIds(tags []string) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, tag := range tags {
		name := strings.TrimSpace(tag)
		if name == "" {
			continue
		}
		id, err := c.resolveOneTag(name)
		if err != nil {
			Logger.Log.Error("fail to resolve tag '", name, "': ", err)
			continue
		}
		if id > 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *WordPressClient) resolveOneTag(name string) (int64, error) {
	raw, err := c.request("GET", fmt.Sprintf("tags?search=%s&per_page=20", url.QueryEscape(name)), nil)
	if err != nil {
		return 0, err
	}

	var rows []struct {
		Id   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, errors.Wrap(err, "unexpected tag search response")
	}
	for _, row := range rows {
		if row.Id > 0 && strings.EqualFold(row.Name, name) {
			return row.Id, nil
		}
	}
	for _, row := range rows {
		if row.Id > 0 {
			return row.Id, nil
		}
	}

	created, err := c.request("POST", "tags", map[string]string{"name": name})
	if err != nil {
		return 0, err
	}
	var tag struct {
		Id int64 `json:"id"`
	}
	if err := json.Unmarshal(created, &tag); err != nil || tag.Id <= 0 {
		return 0, errors.Errorf("tag creation returned no id: %s", string(created))
	}
	return tag.Id, nil
}

// downloadImage fetches the selected image and rejects anything whose
// content type is not image/*.
func (c *WordPressClient) downloadImage(imageUrl string, referer string) ([]byte, string, error) {
	req, err := http.NewRequest("GET", imageUrl, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", wpUserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	res, err := c.mediaHttpClient().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, "", errors.Errorf("image download failed with status %d", res.StatusCode)
	}
	raw, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := strings.TrimSpace(strings.Split(res.Header.Get("Content-Type"), ";")[0])
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, "", errors.Errorf("Ausgewählte Bild-URL liefert kein Bild (%s)", contentType)
	}
	return raw, contentType, nil
}

// guessFilename derives an upload filename from the image url, adding
// an extension from the content type when the path carries none.
func guessFilename(imageUrl string, contentType string) string {
	stem := "article-image"
	if parsed, err := url.Parse(imageUrl); err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "." && name != "/" {
			stem = name
		}
	}
	if !strings.Contains(stem, ".") {
		exts, _ := mime.ExtensionsByType(contentType)
		ext := ".jpg"
		if len(exts) > 0 {
			ext = exts[0]
		}
		stem += ext
	}
	return stem
}

// UploadFeaturedMedia downloads the selected image and uploads it as a
// media attachment, then best-effort annotates it with title, caption
// and alt text pointing back at the source.
func (c *WordPressClient) UploadFeaturedMedia(imageUrl string, articleTitle string, sourceUrl string) (int64, error) {
	imageBytes, contentType, err := c.downloadImage(imageUrl, sourceUrl)
	if err != nil {
		return 0, err
	}
	filename := guessFilename(imageUrl, contentType)

	req, err := http.NewRequest("POST", c.endpointUrl("media"), bytes.NewReader(imageBytes))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", wpUserAgent)

	res, err := c.mediaHttpClient().Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	raw, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return 0, err
	}
	if res.StatusCode >= 300 {
		return 0, errors.Errorf("WordPress Media-Upload fehlgeschlagen (status %d): %s", res.StatusCode, string(raw))
	}
	var media struct {
		Id int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &media); err != nil || media.Id <= 0 {
		return 0, errors.Errorf("WordPress Media-Upload ohne id: %s", string(raw))
	}

	// Traceability metadata; failure here does not fail the upload.
	if _, err := c.request("POST", fmt.Sprintf("media/%d", media.Id), map[string]string{
		"title":    truncateRunes(articleTitle, 120) + " - Bild",
		"caption":  "Quelle: " + sourceUrl,
		"alt_text": truncateRunes(articleTitle, 200),
	}); err != nil {
		Logger.Log.Error("fail to update media metadata: ", err)
	}
	return media.Id, nil
}

// PublishArticleDraft creates or updates the WordPress post for the
// article. Re-publishing an article that already carries a post id
// updates that post instead of creating a duplicate.
func (c *WordPressClient) PublishArticleDraft(article *model.Article) (int64, string, error) {
	if c.BaseUrl == "" || c.Username == "" || c.AppPassword == "" {
		return 0, "", errors.New("WordPress Konfiguration fehlt (base_url, username, app_password)")
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Ohne Titel"
	}
	meta := article.DecodeMeta()

	var featuredMediaId int64
	if meta.ImageReview != nil && strings.TrimSpace(meta.ImageReview.SelectedUrl) != "" {
		id, err := c.UploadFeaturedMedia(meta.ImageReview.SelectedUrl, title, article.SourceUrl)
		if err != nil {
			return 0, "", err
		}
		featuredMediaId = id
	}

	status := c.DefaultStatus
	if status == "" {
		status = defaultPostStatus
	}
	payload := map[string]interface{}{
		"title":   title,
		"content": BuildPostContent(article.ContentRewritten, article.ContentRaw, article.Summary),
		"status":  status,
	}
	if featuredMediaId > 0 {
		payload["featured_media"] = featuredMediaId
	}
	if tagIds := c.ResolveTagIds(capTags(meta.GeneratedTags, maxPublishTagCount)); len(tagIds) > 0 {
		payload["tags"] = tagIds
	}

	endpoint := "posts"
	if article.WpPostId != nil && *article.WpPostId > 0 {
		endpoint = fmt.Sprintf("posts/%d", *article.WpPostId)
	}
	raw, err := c.request("POST", endpoint, payload)
	if err != nil {
		return 0, "", err
	}

	var post struct {
		Id   int64  `json:"id"`
		Link string `json:"link"`
	}
	if err := json.Unmarshal(raw, &post); err != nil {
		return 0, "", errors.Wrap(err, "WordPress Antwort im unerwarteten Format")
	}
	if post.Id <= 0 {
		return 0, "", errors.Errorf("WordPress Antwort ohne Post-ID: %s", string(raw))
	}
	return post.Id, post.Link, nil
}

func capTags(tags []string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tag := range tags {
		value := strings.TrimSpace(tag)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
		if len(out) >= max {
			break
		}
	}
	return out
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

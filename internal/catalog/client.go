// Package catalog implements the Modrinth-compatible REST collaborators:
// search, version listing, and project-id extraction.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/modseek/internal/config"
	"github.com/soyeahso/modseek/internal/domain"
	"github.com/soyeahso/modseek/internal/logging"
)

// APIError is a non-200 response from the catalog API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: HTTP %d: %s", e.Status, e.Body)
}

// ParseError reports an unrecognized detail URL shape.
type ParseError struct {
	URL string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog: cannot extract project id from %q", e.URL)
}

// pathSegments maps canonical category names to the site's singular path
// segment, used both for detail URLs and for the project_type search facet.
var pathSegments = map[string]string{
	"mods":          "mod",
	"resourcepacks": "resourcepack",
	"datapacks":     "datapack",
	"shaders":       "shader",
	"modpacks":      "modpack",
	"plugins":       "plugin",
}

// Client talks to the catalog REST API. It implements domain.CatalogAPI and
// domain.Searcher; the Searcher side produces item lists without captures,
// which suits text-only transports.
type Client struct {
	baseURL    string
	apiBaseURL string
	userAgent  string
	limits     map[string]int
	httpClient *http.Client
	log        *logging.Logger
	now        func() time.Time
}

// NewClient creates a catalog client from configuration.
func NewClient(cfg config.CatalogConfig, limits map[string]int, log *logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		userAgent:  cfg.UserAgent,
		limits:     limits,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:        log.Sub("catalog"),
		now:        time.Now,
	}
}

// searchHit is one project in an API search response.
type searchHit struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	ProjectType string `json:"project_type"`
}

type searchResponse struct {
	Hits      []searchHit `json:"hits"`
	TotalHits int         `json:"total_hits"`
}

// apiVersion mirrors one element of the project version list response.
type apiVersion struct {
	Name          string    `json:"name"`
	VersionNumber string    `json:"version_number"`
	VersionType   string    `json:"version_type"`
	GameVersions  []string  `json:"game_versions"`
	Loaders       []string  `json:"loaders"`
	DatePublished time.Time `json:"date_published"`
	Downloads     int64     `json:"downloads"`
	Files         []apiFile `json:"files"`
}

type apiFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Primary  bool   `json:"primary"`
}

// Search fetches one page of results for a category and query. Paging is
// server-driven via limit/offset; the per-category limit controls how many
// results fit a page.
func (c *Client) Search(ctx context.Context, category, query string, page int) (*domain.SearchResult, error) {
	segment, ok := pathSegments[category]
	if !ok {
		return nil, &ParseError{URL: category}
	}

	limit := c.limits[category]
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa((page-1)*limit))
	params.Set("facets", fmt.Sprintf(`[["project_type:%s"]]`, segment))

	var resp searchResponse
	if err := c.getJSON(ctx, c.apiBaseURL+"/search?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	items := make([]domain.SearchItem, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		items = append(items, domain.SearchItem{
			Name:      hit.Title,
			DetailURL: fmt.Sprintf("%s/%s/%s", c.baseURL, segment, hit.Slug),
		})
	}

	c.log.Debug().
		Str("category", category).
		Str("query", query).
		Int("page", page).
		Int("items", len(items)).
		Msg("search completed")

	return &domain.SearchResult{Items: items}, nil
}

// DetailScreenshot is a no-op for the API-backed searcher: there is no
// rendered capture, so detail messages fall back to their text card.
func (c *Client) DetailScreenshot(_ context.Context, _ string) ([]byte, error) {
	return nil, nil
}

// DetailURL builds the site URL for a resource named directly by the user,
// slugging the name the way the site does.
func (c *Client) DetailURL(category, name string) (string, error) {
	segment, ok := pathSegments[category]
	if !ok {
		return "", &ParseError{URL: category}
	}
	slug := strings.Join(strings.Fields(strings.ToLower(name)), "-")
	return fmt.Sprintf("%s/%s/%s", c.baseURL, segment, slug), nil
}

// ListVersions fetches every version of a project and shapes the records
// for presentation. The file lists ride along and are never re-fetched.
func (c *Client) ListVersions(ctx context.Context, projectID string) ([]domain.VersionRecord, error) {
	var versions []apiVersion
	endpoint := fmt.Sprintf("%s/project/%s/version", c.apiBaseURL, url.PathEscape(projectID))
	if err := c.getJSON(ctx, endpoint, &versions); err != nil {
		return nil, fmt.Errorf("list versions for %s: %w", projectID, err)
	}

	now := c.now()
	records := make([]domain.VersionRecord, 0, len(versions))
	for _, v := range versions {
		records = append(records, shapeVersion(v, now))
	}

	c.log.Debug().Str("project", projectID).Int("versions", len(records)).Msg("versions fetched")
	return records, nil
}

func shapeVersion(v apiVersion, now time.Time) domain.VersionRecord {
	channel := "R"
	switch v.VersionType {
	case "beta":
		channel = "B"
	case "alpha":
		channel = "A"
	}

	gameVersion := "Unknown"
	if len(v.GameVersions) > 0 {
		gameVersion = v.GameVersions[len(v.GameVersions)-1]
	}

	platforms := "Unknown"
	if len(v.Loaders) > 0 {
		names := make([]string, len(v.Loaders))
		for i, l := range v.Loaders {
			names[i] = capitalize(l)
		}
		platforms = strings.Join(names, ", ")
	}

	name := v.Name
	if name == "" {
		name = v.VersionNumber
	}

	files := make([]domain.VersionFile, 0, len(v.Files))
	for _, f := range v.Files {
		files = append(files, domain.VersionFile{URL: f.URL, Filename: f.Filename, Primary: f.Primary})
	}

	return domain.VersionRecord{
		Name:        name,
		Channel:     channel,
		GameVersion: gameVersion,
		Platforms:   platforms,
		Published:   TimeAgo(v.DatePublished, now),
		Downloads:   FormatDownloads(v.Downloads),
		Files:       files,
	}
}

// ExtractProjectID parses the project slug out of a detail URL. Accepted
// shapes: https://host/<type>/<slug> and https://host/<type>/<slug>/versions.
func (c *Client) ExtractProjectID(detailURL string) (string, error) {
	u, err := url.Parse(detailURL)
	if err != nil {
		return "", &ParseError{URL: detailURL}
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", &ParseError{URL: detailURL}
	}
	return parts[1], nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

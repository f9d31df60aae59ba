package domain

import (
	"context"
	"time"
)

// SearchItem is one entry on a search-result page.
type SearchItem struct {
	Name      string `json:"name"`
	DetailURL string `json:"detailUrl"`
}

// SearchResult is what the search collaborator produces for one page:
// a rendered capture of the result view plus the ordered item list.
type SearchResult struct {
	Screenshot []byte       `json:"-"`
	Items      []SearchItem `json:"items"`
}

// VersionFile is a downloadable artifact attached to a version.
type VersionFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Primary  bool   `json:"primary"`
}

// VersionRecord is one release of a catalog project. The file list is
// fetched together with the version and never re-fetched for download.
type VersionRecord struct {
	Name        string        `json:"name"`
	Channel     string        `json:"channel"` // "R" release, "B" beta, "A" alpha
	GameVersion string        `json:"gameVersion"`
	Platforms   string        `json:"platforms"`
	Published   string        `json:"published"` // "3 days ago"
	Downloads   string        `json:"downloads"` // "12.3k"
	Files       []VersionFile `json:"files"`
}

// Searcher renders catalog search results and detail views.
type Searcher interface {
	// Search fetches one page of results for a category and query.
	Search(ctx context.Context, category, query string, page int) (*SearchResult, error)

	// DetailScreenshot captures the detail view of a single resource.
	DetailScreenshot(ctx context.Context, url string) ([]byte, error)
}

// CatalogAPI is the REST side of the catalog.
type CatalogAPI interface {
	// ListVersions fetches every version of a project, newest first.
	ListVersions(ctx context.Context, projectID string) ([]VersionRecord, error)

	// ExtractProjectID parses the project id or slug out of a detail URL.
	ExtractProjectID(detailURL string) (string, error)

	// DetailURL builds the site URL for a resource named directly by the
	// user (the "s" search form), slugging the name the way the site does.
	DetailURL(category, name string) (string, error)
}

// FileStore downloads artifacts to local temp storage and cleans them up.
type FileStore interface {
	// DownloadToTemp fetches url into a temp file and returns its path.
	DownloadToTemp(ctx context.Context, url, filename string) (string, error)

	// SaveTemp writes data to a fresh temp file with the given extension.
	SaveTemp(data []byte, ext string) (string, error)

	// DeleteAfter removes the file once the delay elapses. Fire-and-forget.
	DeleteAfter(path string, delay time.Duration)
}

// Package files downloads catalog artifacts to local temp storage and
// handles their delayed cleanup after delivery.
package files

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/modseek/internal/logging"
)

// Store implements domain.FileStore on the local filesystem.
type Store struct {
	dir        string
	userAgent  string
	httpClient *http.Client
	log        *logging.Logger
}

// NewStore creates a file store rooted at dir. The directory is created
// on first download.
func NewStore(dir, userAgent string, log *logging.Logger) *Store {
	return &Store{
		dir:        dir,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        log.Sub("files"),
	}
}

// DownloadToTemp fetches url into the temp directory and returns the local
// path. The original filename is kept for delivery; a random prefix keeps
// concurrent downloads of the same file from colliding.
func (s *Store) DownloadToTemp(ctx context.Context, url, filename string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	name := sanitizeFilename(filename)
	path := filepath.Join(s.dir, uuid.New().String()[:8]+"-"+name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: HTTP %d", filename, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	written, err := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", filename, err)
	}

	s.log.Info().Str("file", name).Int64("bytes", written).Msg("download complete")
	return path, nil
}

// SaveTemp writes data to a fresh temp file with the given extension and
// returns the local path.
func (s *Store) SaveTemp(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(s.dir, uuid.New().String()[:8]+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return path, nil
}

/// DeleteAfter removes the file once the delay elapses. Fire-and-forget:
// the timer outlives the request that scheduled it, and failures are only
// logged.
func (s *Store) DeleteAfter(path string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", path).Msg("temp file cleanup failed")
			return
		}
		s.log.Debug().Str("path", path).Msg("temp file removed")
	})
}

// sanitizeFilename strips path separators so a hostile filename cannot
// escape the temp directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}

// Package session holds per-user conversational state for the catalog bot:
// the current search, every detail view sent, and the cached version list,
// all addressable later by replying to the messages that carried them.
package session

import (
	"strings"
	"time"

	"github.com/soyeahso/modseek/internal/domain"
)

// SearchState is the search-result track of a session. Query and Category
// are fixed for the session's lifetime; Page and Items follow the page the
// user most recently requested.
type SearchState struct {
	Category        string
	Query           string
	Page            int
	ResultMessageID string // last result message sent; empty until the first send completes
	PromptMessageID string // last loading prompt; never set for the session's first search
	Items           []domain.SearchItem
}

// DetailEntry records which resource a detail message showed.
type DetailEntry struct {
	URL   string
	Name  string
	Index int // 0-based ordinal on the search page it was opened from
}

// VersionState is the version-list track. AllVersions is fetched once per
// resource and sliced client-side; PageSlice mirrors the page the user saw
// last so a download ordinal can be resolved against it.
type VersionState struct {
	ProjectID    string
	ResourceName string
	AllVersions  []domain.VersionRecord
	PageSize     int
	CurrentPage  int
	PageSlice    []domain.VersionRecord
	MessageIDs   []string // every version-list message sent, oldest first
}

// Session is the whole conversational state for one user. The detail map
// and version message ids only grow while the session is alive; they are
// discarded wholesale when the session expires or is replaced.
type Session struct {
	LastActivity time.Time
	Search       SearchState
	Detail       map[string]DetailEntry // outbound message id → entry
	Version      VersionState
}

// New builds a session around an initial search.
func New(search SearchState) *Session {
	return &Session{
		LastActivity: time.Now(),
		Search:       search,
		Detail:       make(map[string]DetailEntry),
	}
}

// TrackDetail records that messageID carried a detail view. Entries are
// never evicted: any previously sent detail message stays a valid reply
// target until the session itself goes away.
func (s *Session) TrackDetail(messageID string, entry DetailEntry) {
	if s.Detail == nil {
		s.Detail = make(map[string]DetailEntry)
	}
	s.Detail[NormalizeID(messageID)] = entry
}

// TrackVersionMessage records that messageID carried a version-list page.
func (s *Session) TrackVersionMessage(messageID string) {
	s.Version.MessageIDs = append(s.Version.MessageIDs, NormalizeID(messageID))
}

// NormalizeID canonicalizes user and message identifiers at the store
// boundary so lookups never miss on incidental whitespace. Transports that
// report numeric ids must already render them as decimal strings.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

package session

// Domain names the interaction track a reply continues.
type Domain int

const (
	DomainNone Domain = iota
	DomainSearch
	DomainDetail
	DomainVersion
)

func (d Domain) String() string {
	switch d {
	case DomainSearch:
		return "search"
	case DomainDetail:
		return "detail"
	case DomainVersion:
		return "version"
	default:
		return "none"
	}
}

// Resolve classifies which domain the replied-to message belongs to. It is
// a pure lookup against the session snapshot and never mutates state.
//
// Detail is checked first, then version, then the current search result.
// Detail and version replies carry the more specific follow-on grammar
// (v/vN/dN), so resolving them first keeps a reply in those flows from
// being read as a search-page command. Only the current result and prompt
// message count as search targets, not older search history.
func Resolve(s *Session, repliedToMessageID string) (Domain, *DetailEntry) {
	if s == nil || repliedToMessageID == "" {
		return DomainNone, nil
	}
	id := NormalizeID(repliedToMessageID)

	if entry, ok := s.Detail[id]; ok {
		return DomainDetail, &entry
	}

	for _, versionID := range s.Version.MessageIDs {
		if versionID == id {
			return DomainVersion, nil
		}
	}

	if id == s.Search.ResultMessageID || (s.Search.PromptMessageID != "" && id == s.Search.PromptMessageID) {
		return DomainSearch, nil
	}

	return DomainNone, nil
}

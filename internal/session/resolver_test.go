package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolverSession() *Session {
	s := New(SearchState{Query: "sodium"})
	s.Search.ResultMessageID = "m3"
	s.TrackDetail("m1", DetailEntry{URL: "https://example.test/mod/sodium", Name: "Sodium", Index: 0})
	s.TrackVersionMessage("m2")
	return s
}

func TestResolvePriorityTable(t *testing.T) {
	s := resolverSession()

	d, entry := Resolve(s, "m1")
	assert.Equal(t, DomainDetail, d)
	require.NotNil(t, entry)
	assert.Equal(t, "Sodium", entry.Name)

	d, entry = Resolve(s, "m2")
	assert.Equal(t, DomainVersion, d)
	assert.Nil(t, entry)

	d, _ = Resolve(s, "m3")
	assert.Equal(t, DomainSearch, d)

	d, _ = Resolve(s, "m9")
	assert.Equal(t, DomainNone, d)
}

func TestResolveDetailWinsOverLaterDomains(t *testing.T) {
	// Transports assign unique ids in practice, but the resolver must not
	// rely on that: a colliding id resolves by fixed priority.
	s := resolverSession()
	s.TrackVersionMessage("m1")
	s.Search.ResultMessageID = "m1"

	d, entry := Resolve(s, "m1")
	assert.Equal(t, DomainDetail, d)
	assert.NotNil(t, entry)
}

func TestResolveVersionWinsOverSearch(t *testing.T) {
	s := resolverSession()
	s.Search.ResultMessageID = "m2"

	d, _ := Resolve(s, "m2")
	assert.Equal(t, DomainVersion, d)
}

func TestResolvePromptCountsAsSearch(t *testing.T) {
	s := resolverSession()
	s.Search.PromptMessageID = "m4"

	d, _ := Resolve(s, "m4")
	assert.Equal(t, DomainSearch, d)
}

func TestResolveEmptyPromptNeverMatches(t *testing.T) {
	s := resolverSession()
	s.Search.PromptMessageID = ""

	d, _ := Resolve(s, "")
	assert.Equal(t, DomainNone, d)
}

func TestResolveOldVersionPagesRemainTargets(t *testing.T) {
	s := resolverSession()
	s.TrackVersionMessage("m5")
	s.TrackVersionMessage("m6")

	for _, id := range []string{"m2", "m5", "m6"} {
		d, _ := Resolve(s, id)
		assert.Equal(t, DomainVersion, d, "id %s", id)
	}
}

func TestResolveNormalizesReplyID(t *testing.T) {
	s := resolverSession()

	d, _ := Resolve(s, " m1 ")
	assert.Equal(t, DomainDetail, d)
}

func TestResolveNilSession(t *testing.T) {
	d, entry := Resolve(nil, "m1")
	assert.Equal(t, DomainNone, d)
	assert.Nil(t, entry)
}

func TestResolveReturnsEntryCopy(t *testing.T) {
	s := resolverSession()

	_, entry := Resolve(s, "m1")
	require.NotNil(t, entry)
	entry.Name = "mutated"

	_, again := Resolve(s, "m1")
	assert.Equal(t, "Sodium", again.Name)
}

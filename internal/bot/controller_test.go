package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/modseek/internal/config"
	"github.com/soyeahso/modseek/internal/domain"
	"github.com/soyeahso/modseek/internal/hooks"
	"github.com/soyeahso/modseek/internal/logging"
	"github.com/soyeahso/modseek/internal/session"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

type sentMessage struct {
	ID  string
	Out domain.Outbound
}

// stubChannel records everything the controller sends and recalls, and
// hands out sequential message ids.
type stubChannel struct {
	nextID      int
	sent        []sentMessage
	recalled    []string
	canModerate bool
	moderators  map[string]bool
	sendErr     error
}

func (s *stubChannel) ID() string { return "test" }
func (s *stubChannel) Capabilities() domain.ChannelCapabilities {
	return domain.ChannelCapabilities{
		ChatTypes: []domain.ChatType{domain.ChatTypeGroup},
		Recall:    true,
		Reply:     true,
	}
}
func (s *stubChannel) Start(_ context.Context) error            { return nil }
func (s *stubChannel) Stop(_ context.Context) error             { return nil }
func (s *stubChannel) OnMessage(_ func(domain.InboundMessage)) {}
func (s *stubChannel) Send(_ context.Context, _ domain.ChatRef, out domain.Outbound) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.nextID++
	id := fmt.Sprintf("m%d", s.nextID)
	s.sent = append(s.sent, sentMessage{ID: id, Out: out})
	return id, nil
}
func (s *stubChannel) Recall(_ context.Context, _ domain.ChatRef, messageID string) error {
	s.recalled = append(s.recalled, messageID)
	return nil
}
func (s *stubChannel) CanModerate(_ context.Context, _ domain.ChatRef) bool { return s.canModerate }
func (s *stubChannel) IsModerator(_ context.Context, _ domain.ChatRef, userID string) bool {
	return s.moderators[userID]
}

func (s *stubChannel) lastText() string {
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1].Out.Text
}

type searchCall struct {
	Category string
	Query    string
	Page     int
}

type stubSearcher struct {
	calls     []searchCall
	itemCount int
	err       error
}

func (s *stubSearcher) Search(_ context.Context, category, query string, page int) (*domain.SearchResult, error) {
	s.calls = append(s.calls, searchCall{Category: category, Query: query, Page: page})
	if s.err != nil {
		return nil, s.err
	}
	items := make([]domain.SearchItem, s.itemCount)
	for i := range items {
		items[i] = domain.SearchItem{
			Name:      fmt.Sprintf("%s-p%d-%d", query, page, i+1),
			DetailURL: fmt.Sprintf("https://example.com/mod/%s-p%d-%d", query, page, i+1),
		}
	}
	return &domain.SearchResult{Items: items}, nil
}

func (s *stubSearcher) DetailScreenshot(_ context.Context, _ string) ([]byte, error) {
	return nil, nil
}

type stubAPI struct {
	versions []domain.VersionRecord
	listErr  error
}

func (a *stubAPI) ListVersions(_ context.Context, _ string) ([]domain.VersionRecord, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	return a.versions, nil
}
func (a *stubAPI) ExtractProjectID(_ string) (string, error) { return "proj", nil }
func (a *stubAPI) DetailURL(category, name string) (string, error) {
	return fmt.Sprintf("https://example.com/%s/%s", category, name), nil
}

type stubFiles struct {
	downloaded []string
	deleted    []string
}

func (f *stubFiles) DownloadToTemp(_ context.Context, _, filename string) (string, error) {
	path := "/tmp/" + filename
	f.downloaded = append(f.downloaded, path)
	return path, nil
}
func (f *stubFiles) SaveTemp(_ []byte, ext string) (string, error) {
	return "/tmp/capture" + ext, nil
}
func (f *stubFiles) DeleteAfter(path string, _ time.Duration) {
	f.deleted = append(f.deleted, path)
}

type fixture struct {
	ctrl     *Controller
	ch       *stubChannel
	searcher *stubSearcher
	api      *stubAPI
	files    *stubFiles
	store    *session.MemoryStore
	cfg      config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Defaults()
	ch := &stubChannel{moderators: map[string]bool{}}
	searcher := &stubSearcher{itemCount: 5}
	api := &stubAPI{versions: makeVersions(25)}
	fs := &stubFiles{}
	store := session.NewMemoryStore(5 * time.Minute)
	hm := hooks.NewManager(testLogger())
	ctrl := NewController(&cfg, store, searcher, api, fs, hm, testLogger())
	return &fixture{ctrl: ctrl, ch: ch, searcher: searcher, api: api, files: fs, store: store, cfg: cfg}
}

func makeVersions(n int) []domain.VersionRecord {
	versions := make([]domain.VersionRecord, n)
	for i := range versions {
		versions[i] = domain.VersionRecord{
			Name:        fmt.Sprintf("v1.%d", n-i),
			Channel:     "R",
			GameVersion: "1.21",
			Platforms:   "Fabric",
			Published:   "3 days ago",
			Downloads:   "1.2k",
			Files: []domain.VersionFile{
				{URL: fmt.Sprintf("https://cdn.example.com/v1.%d.jar", n-i), Filename: fmt.Sprintf("v1.%d.jar", n-i)},
			},
		}
	}
	return versions
}

func cmd(user, msgID, replyTo string) Command {
	return Command{
		UserID:    user,
		Chat:      domain.ChatRef{ChannelID: "test", ChatID: "room", ChatType: domain.ChatTypeGroup},
		MessageID: msgID,
		ReplyToID: replyTo,
	}
}

func TestSearchCreatesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	handled, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	assert.True(t, handled)
	require.NoError(t, err)

	sess, ok := f.store.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "mods", sess.Search.Category)
	assert.Equal(t, "sodium", sess.Search.Query)
	assert.Equal(t, 1, sess.Search.Page)
	assert.Len(t, sess.Search.Items, 5)

	// Prompt first, then the result. Only the result becomes a reply
	// target; the opening prompt is never recorded.
	require.Len(t, f.ch.sent, 2)
	assert.Equal(t, f.ch.sent[1].ID, sess.Search.ResultMessageID)
	assert.Empty(t, sess.Search.PromptMessageID)
}

func TestSearchInvalidCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.HandleSearch(context.Background(), f.ch, cmd("alice", "u1", ""), "nonsense sodium")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, f.cfg.Messages.InvalidCategory, f.ch.lastText())

	_, ok := f.store.Get("alice")
	assert.False(t, ok)
}

func TestSearchMissingQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.HandleSearch(context.Background(), f.ch, cmd("alice", "u1", ""), "mods")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, ok := f.store.Get("alice")
	assert.False(t, ok)
}

func TestSearchFailureLeavesNoSession(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = assert.AnError

	_, err := f.ctrl.HandleSearch(context.Background(), f.ch, cmd("alice", "u1", ""), "mods sodium")
	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, f.ch.lastText(), f.cfg.Messages.SearchFailed)

	_, ok := f.store.Get("alice")
	assert.False(t, ok)
}

func TestSearchReplacesPreviousSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)
	first, _ := f.store.Get("alice")
	firstResult := first.Search.ResultMessageID

	_, err = f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u2", ""), "shaders bsl")
	require.NoError(t, err)

	sess, ok := f.store.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "shaders", sess.Search.Category)
	assert.Equal(t, "bsl", sess.Search.Query)
	assert.Empty(t, sess.Detail)
	assert.NotEqual(t, firstResult, sess.Search.ResultMessageID)

	// The old result message no longer resolves.
	dom, _ := session.Resolve(sess, firstResult)
	assert.Equal(t, session.DomainNone, dom)
}

// Runs the whole conversation: search, page, open a result, list
// versions, page them, and hit the page bound.
func TestConversationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)
	sess, _ := f.store.Get("alice")
	resultID := sess.Search.ResultMessageID

	// p2 replying to the result page.
	_, err = f.ctrl.HandlePageSearch(ctx, f.ch, cmd("alice", "u2", resultID), 2)
	require.NoError(t, err)

	sess, ok := f.store.Get("alice")
	require.True(t, ok)
	assert.Equal(t, 2, sess.Search.Page)
	assert.Equal(t, searchCall{Category: "mods", Query: "sodium", Page: 2}, f.searcher.calls[1])
	// The superseded result and the user's command were recalled.
	assert.Contains(t, f.ch.recalled, resultID)
	assert.Contains(t, f.ch.recalled, "u2")
	// The new loading prompt is now a valid reply target.
	assert.NotEmpty(t, sess.Search.PromptMessageID)

	// g1 replying to the new result.
	_, err = f.ctrl.HandleViewDetail(ctx, f.ch, cmd("alice", "u3", sess.Search.ResultMessageID), 1)
	require.NoError(t, err)

	sess, _ = f.store.Get("alice")
	require.Len(t, sess.Detail, 1)
	var detailID string
	for id, entry := range sess.Detail {
		detailID = id
		assert.Equal(t, "sodium-p2-1", entry.Name)
		assert.Equal(t, 0, entry.Index)
	}

	// v replying to the detail view: 25 versions, page size 20.
	_, err = f.ctrl.HandleViewVersions(ctx, f.ch, cmd("alice", "u4", detailID))
	require.NoError(t, err)

	sess, _ = f.store.Get("alice")
	assert.Len(t, sess.Version.AllVersions, 25)
	assert.Equal(t, 1, sess.Version.CurrentPage)
	assert.Len(t, sess.Version.PageSlice, 20)
	require.Len(t, sess.Version.MessageIDs, 1)
	versionMsg := sess.Version.MessageIDs[0]

	// v2 replying to the version list: the tail slice.
	_, err = f.ctrl.HandlePageVersions(ctx, f.ch, cmd("alice", "u5", versionMsg), 2)
	require.NoError(t, err)

	sess, _ = f.store.Get("alice")
	assert.Equal(t, 2, sess.Version.CurrentPage)
	assert.Len(t, sess.Version.PageSlice, 5)
	assert.Equal(t, sess.Version.AllVersions[20], sess.Version.PageSlice[0])
	assert.Len(t, sess.Version.MessageIDs, 2)

	// v3 is past the end: rejected, state unchanged.
	_, err = f.ctrl.HandlePageVersions(ctx, f.ch, cmd("alice", "u6", versionMsg), 3)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	sess, _ = f.store.Get("alice")
	assert.Equal(t, 2, sess.Version.CurrentPage)
}

func TestPageSearchWithoutReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)

	handled, err := f.ctrl.HandlePageSearch(ctx, f.ch, cmd("alice", "u2", ""), 2)
	assert.True(t, handled)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, f.cfg.Messages.NoReplyContext, f.ch.lastText())
}

func TestPageSearchExpiredSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.HandlePageSearch(context.Background(), f.ch, cmd("alice", "u1", "m99"), 2)
	var se *SessionExpiredError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, f.cfg.Messages.SessionExpired, f.ch.lastText())
}

func TestMismatchedDomainIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)
	sess, _ := f.store.Get("alice")
	resultID := sess.Search.ResultMessageID

	_, err = f.ctrl.HandleViewDetail(ctx, f.ch, cmd("alice", "u2", resultID), 1)
	require.NoError(t, err)
	sess, _ = f.store.Get("alice")
	var detailID string
	for id := range sess.Detail {
		detailID = id
	}

	// p2 replying to a detail message belongs to another flow: dropped
	// without any reply.
	before := len(f.ch.sent)
	_, err = f.ctrl.HandlePageSearch(ctx, f.ch, cmd("alice", "u3", detailID), 2)
	var wc *WrongContextError
	require.ErrorAs(t, err, &wc)
	assert.True(t, wc.Silent)
	assert.Len(t, f.ch.sent, before)
}

func TestUnresolvableReplyReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)

	_, err = f.ctrl.HandlePageSearch(ctx, f.ch, cmd("alice", "u2", "m999"), 2)
	var wc *WrongContextError
	require.ErrorAs(t, err, &wc)
	assert.False(t, wc.Silent)
	assert.Equal(t, f.cfg.Messages.WrongContext, f.ch.lastText())
}

func TestRecallSkippedPastGraceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)
	sess, _ := f.store.Get("alice")
	resultID := sess.Search.ResultMessageID
	// Older than the recall grace but inside the session timeout.
	sess.LastActivity = time.Now().Add(-3 * time.Minute)

	_, err = f.ctrl.HandlePageSearch(ctx, f.ch, cmd("alice", "u2", resultID), 2)
	require.NoError(t, err)
	assert.Empty(t, f.ch.recalled)
}

func TestModeratorBotRecallsPastGrace(t *testing.T) {
	f := newFixture(t)
	f.ch.canModerate = true
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)
	sess, _ := f.store.Get("alice")
	resultID := sess.Search.ResultMessageID
	sess.LastActivity = time.Now().Add(-3 * time.Minute)

	_, err = f.ctrl.HandlePageSearch(ctx, f.ch, cmd("alice", "u2", resultID), 2)
	require.NoError(t, err)
	assert.Contains(t, f.ch.recalled, resultID)
}

func TestModeratorUserCommandNotRecalled(t *testing.T) {
	f := newFixture(t)
	f.ch.moderators["alice"] = true
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)
	sess, _ := f.store.Get("alice")
	resultID := sess.Search.ResultMessageID

	_, err = f.ctrl.HandlePageSearch(ctx, f.ch, cmd("alice", "u2", resultID), 2)
	require.NoError(t, err)
	assert.Contains(t, f.ch.recalled, resultID)
	assert.NotContains(t, f.ch.recalled, "u2")
}

func TestViewDetailOrdinalOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)
	sess, _ := f.store.Get("alice")

	_, err = f.ctrl.HandleViewDetail(ctx, f.ch, cmd("alice", "u2", sess.Search.ResultMessageID), 6)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "5")
}

func TestDownloadPicksPrimaryFile(t *testing.T) {
	f := newFixture(t)
	f.api.versions = []domain.VersionRecord{{
		Name: "v1.0",
		Files: []domain.VersionFile{
			{URL: "https://cdn.example.com/a.jar", Filename: "a.jar"},
			{URL: "https://cdn.example.com/x.jar", Filename: "x.jar", Primary: true},
			{URL: "https://cdn.example.com/b.jar", Filename: "b.jar"},
		},
	}}
	versionMsg := setupVersionList(t, f)

	_, err := f.ctrl.HandleDownload(context.Background(), f.ch, cmd("alice", "u9", versionMsg), 1)
	require.NoError(t, err)
	require.Len(t, f.files.downloaded, 1)
	assert.Equal(t, "/tmp/x.jar", f.files.downloaded[0])
	// Delivered and queued for delayed deletion.
	assert.Equal(t, "/tmp/x.jar", f.ch.sent[len(f.ch.sent)-1].Out.FilePath)
	assert.Contains(t, f.files.deleted, "/tmp/x.jar")
}

func TestDownloadFallsBackToFirstFile(t *testing.T) {
	f := newFixture(t)
	f.api.versions = []domain.VersionRecord{{
		Name: "v1.0",
		Files: []domain.VersionFile{
			{URL: "https://cdn.example.com/x.jar", Filename: "x.jar"},
			{URL: "https://cdn.example.com/y.jar", Filename: "y.jar"},
		},
	}}
	versionMsg := setupVersionList(t, f)

	_, err := f.ctrl.HandleDownload(context.Background(), f.ch, cmd("alice", "u9", versionMsg), 1)
	require.NoError(t, err)
	require.Len(t, f.files.downloaded, 1)
	assert.Equal(t, "/tmp/x.jar", f.files.downloaded[0])
}

func TestDownloadOrdinalOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.api.versions = makeVersions(3)
	versionMsg := setupVersionList(t, f)

	_, err := f.ctrl.HandleDownload(context.Background(), f.ch, cmd("alice", "u9", versionMsg), 4)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, f.files.downloaded)
}

func TestDownloadWithoutReplyNotConsumed(t *testing.T) {
	f := newFixture(t)

	handled, err := f.ctrl.HandleDownload(context.Background(), f.ch, cmd("alice", "u1", ""), 1)
	assert.False(t, handled)
	assert.NoError(t, err)
	assert.Empty(t, f.ch.sent)
}

func TestPageVersionsWithoutReplyNotConsumed(t *testing.T) {
	f := newFixture(t)

	handled, err := f.ctrl.HandlePageVersions(context.Background(), f.ch, cmd("alice", "u1", ""), 2)
	assert.False(t, handled)
	assert.NoError(t, err)
}

func TestDirectDetailLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	handled, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "s mods Sodium")
	assert.True(t, handled)
	require.NoError(t, err)

	sess, ok := f.store.Get("alice")
	require.True(t, ok)
	require.Len(t, sess.Detail, 1)
	for _, entry := range sess.Detail {
		assert.Equal(t, "Sodium", entry.Name)
	}

	// The detail message supports v directly.
	var detailID string
	for id := range sess.Detail {
		detailID = id
	}
	_, err = f.ctrl.HandleViewVersions(ctx, f.ch, cmd("alice", "u2", detailID))
	require.NoError(t, err)
	sess, _ = f.store.Get("alice")
	assert.Len(t, sess.Version.AllVersions, 25)
}

func TestHelp(t *testing.T) {
	f := newFixture(t)

	handled, err := f.ctrl.HandleHelp(context.Background(), f.ch, cmd("alice", "u1", ""))
	assert.True(t, handled)
	require.NoError(t, err)
	require.Len(t, f.ch.sent, 1)
	assert.Contains(t, f.ch.sent[0].Out.Text, f.cfg.Search.CommandPrefix)
}

// setupVersionList walks a fresh fixture to the point where a version
// list has been sent, returning its message id.
func setupVersionList(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()

	_, err := f.ctrl.HandleSearch(ctx, f.ch, cmd("alice", "u1", ""), "mods sodium")
	require.NoError(t, err)
	sess, _ := f.store.Get("alice")

	_, err = f.ctrl.HandleViewDetail(ctx, f.ch, cmd("alice", "u2", sess.Search.ResultMessageID), 1)
	require.NoError(t, err)
	sess, _ = f.store.Get("alice")
	var detailID string
	for id := range sess.Detail {
		detailID = id
	}

	_, err = f.ctrl.HandleViewVersions(ctx, f.ch, cmd("alice", "u3", detailID))
	require.NoError(t, err)
	sess, _ = f.store.Get("alice")
	require.NotEmpty(t, sess.Version.MessageIDs)
	return sess.Version.MessageIDs[len(sess.Version.MessageIDs)-1]
}

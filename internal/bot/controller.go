// Package bot implements the catalog-search conversation: searching,
// paging, detail views, version lists, and downloads, all driven by the
// user replying to the bot's own earlier messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/soyeahso/modseek/internal/config"
	"github.com/soyeahso/modseek/internal/domain"
	"github.com/soyeahso/modseek/internal/hooks"
	"github.com/soyeahso/modseek/internal/logging"
	"github.com/soyeahso/modseek/internal/paging"
	"github.com/soyeahso/modseek/internal/session"
)

// Command carries the transport-independent facts of one user command.
type Command struct {
	UserID    string
	Chat      domain.ChatRef
	MessageID string // the user's own message carrying the command
	ReplyToID string // message the user replied to, empty for none
}

// Controller executes commands against the session store and the catalog
// collaborators. All handlers return whether the command was consumed;
// an unconsumed command is ordinary chat the host should ignore.
type Controller struct {
	cfg      *config.Config
	sessions session.Store
	searcher domain.Searcher
	api      domain.CatalogAPI
	files    domain.FileStore
	hooks    *hooks.Manager
	log      *logging.Logger
}

// NewController wires the bot core.
func NewController(cfg *config.Config, sessions session.Store, searcher domain.Searcher,
	api domain.CatalogAPI, files domain.FileStore, hm *hooks.Manager, log *logging.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		sessions: sessions,
		searcher: searcher,
		api:      api,
		files:    files,
		hooks:    hm,
		log:      log.Sub("bot"),
	}
}

// HandleSearch starts a new session from a prefixed search command.
// rawArgs is everything after the command prefix.
func (c *Controller) HandleSearch(ctx context.Context, ch domain.Channel, cmd Command, rawArgs string) (bool, error) {
	err := c.search(ctx, ch, cmd, rawArgs)
	return true, c.report(ctx, ch, cmd.Chat, "search", err)
}

// HandlePageSearch re-runs the session's search on another page. The
// command must be a reply to the current result or loading prompt.
func (c *Controller) HandlePageSearch(ctx context.Context, ch domain.Channel, cmd Command, page int) (bool, error) {
	err := c.pageSearch(ctx, ch, cmd, page)
	return true, c.report(ctx, ch, cmd.Chat, "page_search", err)
}

// HandleViewDetail opens the ordinal-th result of the replied-to page.
func (c *Controller) HandleViewDetail(ctx context.Context, ch domain.Channel, cmd Command, ordinal int) (bool, error) {
	err := c.viewDetail(ctx, ch, cmd, ordinal)
	return true, c.report(ctx, ch, cmd.Chat, "view_detail", err)
}

// HandleViewVersions lists the versions of the replied-to detail view.
func (c *Controller) HandleViewVersions(ctx context.Context, ch domain.Channel, cmd Command) (bool, error) {
	err := c.viewVersions(ctx, ch, cmd)
	return true, c.report(ctx, ch, cmd.Chat, "view_versions", err)
}

// HandlePageVersions shows another page of the cached version list. A bare
// v<n> with no reply is indistinguishable from chat, so it is not consumed.
func (c *Controller) HandlePageVersions(ctx context.Context, ch domain.Channel, cmd Command, page int) (bool, error) {
	if cmd.ReplyToID == "" {
		return false, nil
	}
	err := c.pageVersions(ctx, ch, cmd, page)
	return true, c.report(ctx, ch, cmd.Chat, "page_versions", err)
}

// HandleDownload fetches the ordinal-th file of the replied-to version
// page and delivers it. Like v<n>, a bare d<n> is not consumed.
func (c *Controller) HandleDownload(ctx context.Context, ch domain.Channel, cmd Command, ordinal int) (bool, error) {
	if cmd.ReplyToID == "" {
		return false, nil
	}
	err := c.download(ctx, ch, cmd, ordinal)
	return true, c.report(ctx, ch, cmd.Chat, "download", err)
}

// HandleHelp sends the command reference.
func (c *Controller) HandleHelp(ctx context.Context, ch domain.Channel, cmd Command) (bool, error) {
	prefix := c.cfg.Search.CommandPrefix
	var b strings.Builder
	fmt.Fprintf(&b, "%s <category> <query> - search the catalog\n", prefix)
	fmt.Fprintf(&b, "%s s <category> <name> - open a resource directly\n", prefix)
	b.WriteString("Reply to my messages with:\n")
	b.WriteString("p<n> - another result page\n")
	b.WriteString("g<n> - open the n-th result\n")
	b.WriteString("v - list versions, v<n> - another version page\n")
	b.WriteString("d<n> - download the n-th version\n")
	b.WriteString("Categories: " + strings.Join(c.categoryAliases(), ", "))
	if _, err := ch.Send(ctx, cmd.Chat, domain.Outbound{Text: b.String()}); err != nil {
		c.log.Warn().Err(err).Msg("help message failed")
	}
	return true, nil
}

func (c *Controller) search(ctx context.Context, ch domain.Channel, cmd Command, rawArgs string) error {
	args := strings.Fields(rawArgs)
	if len(args) >= 1 && strings.EqualFold(args[0], "s") {
		return c.directDetail(ctx, ch, cmd, args[1:])
	}
	if len(args) < 2 {
		return &ValidationError{Message: c.cfg.Messages.EmptyQuery}
	}

	category, ok := c.canonicalCategory(args[0])
	if !ok {
		return &ValidationError{Message: c.cfg.Messages.InvalidCategory}
	}
	query := strings.Join(args[1:], " ")

	// The first loading prompt is never recorded: it predates the session
	// and must not become a reply target.
	c.sendPrompt(ctx, ch, cmd.Chat, c.cfg.Messages.Loading)

	res, err := c.searcher.Search(ctx, category, query, 1)
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}

	resultID, err := c.sendResult(ctx, ch, cmd.Chat, category, query, 1, res)
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}

	c.sessions.Create(cmd.UserID, session.SearchState{
		Category:        category,
		Query:           query,
		Page:            1,
		ResultMessageID: session.NormalizeID(resultID),
		Items:           res.Items,
	})

	c.log.Info().Str("user", cmd.UserID).Str("category", category).Str("query", query).Msg("search session started")
	c.hooks.Emit(ctx, hooks.EventSearch, map[string]any{
		"user": cmd.UserID, "category": category, "query": query,
	})
	return nil
}

// directDetail is the "s <category> <name>" form: skip the result page and
// open the named resource immediately.
func (c *Controller) directDetail(ctx context.Context, ch domain.Channel, cmd Command, args []string) error {
	if len(args) < 2 {
		return &ValidationError{Message: c.cfg.Messages.EmptyQuery}
	}
	category, ok := c.canonicalCategory(args[0])
	if !ok {
		return &ValidationError{Message: c.cfg.Messages.InvalidCategory}
	}
	name := strings.Join(args[1:], " ")

	url, err := c.api.DetailURL(category, name)
	if err != nil {
		return &ValidationError{Message: c.cfg.Messages.InvalidCategory}
	}

	c.sendPrompt(ctx, ch, cmd.Chat, c.cfg.Messages.Loading)

	msgID, err := c.sendDetail(ctx, ch, cmd.Chat, name, url)
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}

	c.sessions.Create(cmd.UserID, session.SearchState{Category: category, Query: name, Page: 1})
	c.sessions.Mutate(cmd.UserID, func(s *session.Session) {
		s.TrackDetail(msgID, session.DetailEntry{URL: url, Name: name})
	})

	c.hooks.Emit(ctx, hooks.EventDetailViewed, map[string]any{
		"user": cmd.UserID, "resource": name, "direct": true,
	})
	return nil
}

func (c *Controller) pageSearch(ctx context.Context, ch domain.Channel, cmd Command, page int) error {
	if cmd.ReplyToID == "" {
		return &ValidationError{Message: c.cfg.Messages.NoReplyContext}
	}
	sess, ok := c.sessions.Get(cmd.UserID)
	if !ok {
		return &SessionExpiredError{}
	}
	if err := requireDomain(sess, cmd.ReplyToID, session.DomainSearch); err != nil {
		return err
	}
	if page < 1 {
		return &ValidationError{Message: c.cfg.Messages.InvalidPage}
	}

	// Snapshot before the fetch: the recall targets the messages the user
	// replied past, not whatever the mutate below installs.
	prevResult := sess.Search.ResultMessageID
	prevPrompt := sess.Search.PromptMessageID
	lastActivity := sess.LastActivity
	category, query := sess.Search.Category, sess.Search.Query

	c.recallSuperseded(ctx, ch, cmd, lastActivity, prevResult, prevPrompt)

	promptText := strings.ReplaceAll(c.cfg.Messages.PageLoading, "{page}", fmt.Sprintf("%d", page))
	promptID := c.sendPrompt(ctx, ch, cmd.Chat, promptText)

	res, err := c.searcher.Search(ctx, category, query, page)
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}

	resultID, err := c.sendResult(ctx, ch, cmd.Chat, category, query, page, res)
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}

	if !c.sessions.Mutate(cmd.UserID, func(s *session.Session) {
		s.Search.Page = page
		s.Search.Items = res.Items
		s.Search.ResultMessageID = session.NormalizeID(resultID)
		s.Search.PromptMessageID = session.NormalizeID(promptID)
	}) {
		return &SessionExpiredError{}
	}

	c.hooks.Emit(ctx, hooks.EventSearchPaged, map[string]any{
		"user": cmd.UserID, "page": page,
	})
	return nil
}

func (c *Controller) viewDetail(ctx context.Context, ch domain.Channel, cmd Command, ordinal int) error {
	if cmd.ReplyToID == "" {
		return &ValidationError{Message: c.cfg.Messages.NoReplyContext}
	}
	sess, ok := c.sessions.Get(cmd.UserID)
	if !ok {
		return &SessionExpiredError{}
	}
	if err := requireDomain(sess, cmd.ReplyToID, session.DomainSearch); err != nil {
		return err
	}

	items := sess.Search.Items
	if len(items) == 0 {
		return &ValidationError{Message: "No results on the current page"}
	}
	if ordinal < 1 || ordinal > len(items) {
		return &ValidationError{Message: fmt.Sprintf("Only %d results on this page", len(items))}
	}
	item := items[ordinal-1]

	c.sendPrompt(ctx, ch, cmd.Chat, c.cfg.Messages.Loading)

	msgID, err := c.sendDetail(ctx, ch, cmd.Chat, item.Name, item.DetailURL)
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}

	if !c.sessions.Mutate(cmd.UserID, func(s *session.Session) {
		s.TrackDetail(msgID, session.DetailEntry{URL: item.DetailURL, Name: item.Name, Index: ordinal - 1})
	}) {
		return &SessionExpiredError{}
	}

	c.hooks.Emit(ctx, hooks.EventDetailViewed, map[string]any{
		"user": cmd.UserID, "resource": item.Name,
	})
	return nil
}

func (c *Controller) viewVersions(ctx context.Context, ch domain.Channel, cmd Command) error {
	if cmd.ReplyToID == "" {
		return &ValidationError{Message: c.cfg.Messages.NoReplyContext}
	}
	sess, ok := c.sessions.Get(cmd.UserID)
	if !ok {
		return &SessionExpiredError{}
	}
	dom, entry := session.Resolve(sess, cmd.ReplyToID)
	switch dom {
	case session.DomainDetail:
	case session.DomainNone:
		return &WrongContextError{}
	default:
		return &WrongContextError{Silent: true}
	}

	c.sendPrompt(ctx, ch, cmd.Chat, "Loading version list...")

	projectID, err := c.api.ExtractProjectID(entry.URL)
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}
	records, err := c.api.ListVersions(ctx, projectID)
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}
	if len(records) == 0 {
		return &ValidationError{Message: "This resource has no published versions"}
	}

	pageSize := c.cfg.Search.VersionPageSize
	win := paging.Compute(len(records), pageSize, 1)
	slice := records[win.Start:win.End]

	msgID, err := ch.Send(ctx, cmd.Chat, domain.Outbound{Bundle: versionBundle(entry.Name, slice)})
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}

	if !c.sessions.Mutate(cmd.UserID, func(s *session.Session) {
		s.Version.ProjectID = projectID
		s.Version.ResourceName = entry.Name
		s.Version.AllVersions = records
		s.Version.PageSize = pageSize
		s.Version.CurrentPage = 1
		s.Version.PageSlice = slice
		s.TrackVersionMessage(msgID)
	}) {
		return &SessionExpiredError{}
	}

	if win.TotalPages > 1 {
		c.sendPrompt(ctx, ch, cmd.Chat, versionFooter(1, win.TotalPages, win.Start, win.End, len(records)))
	}

	c.hooks.Emit(ctx, hooks.EventVersionsListed, map[string]any{
		"user": cmd.UserID, "resource": entry.Name, "versions": len(records),
	})
	return nil
}

func (c *Controller) pageVersions(ctx context.Context, ch domain.Channel, cmd Command, page int) error {
	sess, ok := c.sessions.Get(cmd.UserID)
	if !ok {
		return &SessionExpiredError{}
	}
	if err := requireDomain(sess, cmd.ReplyToID, session.DomainVersion); err != nil {
		return err
	}
	all := sess.Version.AllVersions
	if len(all) == 0 {
		return &WrongContextError{}
	}

	win := paging.Compute(len(all), sess.Version.PageSize, page)
	if !win.Valid {
		return &ValidationError{Message: fmt.Sprintf("%s (1-%d)", c.cfg.Messages.InvalidPage, win.TotalPages)}
	}

	promptText := strings.ReplaceAll(c.cfg.Messages.PageLoading, "{page}", fmt.Sprintf("%d", page))
	c.sendPrompt(ctx, ch, cmd.Chat, promptText)

	slice := all[win.Start:win.End]
	msgID, err := ch.Send(ctx, cmd.Chat, domain.Outbound{Bundle: versionBundle(sess.Version.ResourceName, slice)})
	if err != nil {
		return &CollaboratorError{UserMessage: c.cfg.Messages.SearchFailed, Err: err}
	}

	if !c.sessions.Mutate(cmd.UserID, func(s *session.Session) {
		s.Version.CurrentPage = page
		s.Version.PageSlice = slice
		s.TrackVersionMessage(msgID)
	}) {
		return &SessionExpiredError{}
	}

	c.sendPrompt(ctx, ch, cmd.Chat, versionFooter(page, win.TotalPages, win.Start, win.End, len(all)))

	c.hooks.Emit(ctx, hooks.EventVersionsPaged, map[string]any{
		"user": cmd.UserID, "page": page,
	})
	return nil
}

func (c *Controller) download(ctx context.Context, ch domain.Channel, cmd Command, ordinal int) error {
	sess, ok := c.sessions.Get(cmd.UserID)
	if !ok {
		return &SessionExpiredError{}
	}
	if err := requireDomain(sess, cmd.ReplyToID, session.DomainVersion); err != nil {
		return err
	}

	slice := sess.Version.PageSlice
	if ordinal < 1 || ordinal > len(slice) {
		return &ValidationError{Message: fmt.Sprintf("Only %d versions on this page", len(slice))}
	}
	ver := slice[ordinal-1]
	if len(ver.Files) == 0 {
		return &ValidationError{Message: "This version has no downloadable files"}
	}
	file := pickFile(ver.Files)

	c.sendPrompt(ctx, ch, cmd.Chat, fmt.Sprintf("Downloading %s...", file.Filename))

	path, err := c.files.DownloadToTemp(ctx, file.URL, file.Filename)
	if err != nil {
		return &CollaboratorError{UserMessage: "Download failed", Err: err}
	}
	// The local copy goes away whether or not delivery succeeds.
	defer c.files.DeleteAfter(path, c.tempFileDelay())

	if _, err := ch.Send(ctx, cmd.Chat, domain.Outbound{FilePath: path}); err != nil {
		return &CollaboratorError{UserMessage: "Upload failed", Err: err}
	}

	c.sessions.Touch(cmd.UserID)

	c.log.Info().Str("user", cmd.UserID).Str("file", file.Filename).Msg("file delivered")
	c.hooks.Emit(ctx, hooks.EventDownload, map[string]any{
		"user": cmd.UserID, "file": file.Filename, "version": ver.Name,
	})
	return nil
}

// recallSuperseded removes the previous result and prompt messages once a
// new page supersedes them, then the user's own command message. Without
// elevated privilege the transport only honors recalls for a short window,
// so the attempt is gated on the session's last activity timestamp. Every
// failure here is logged and swallowed.
func (c *Controller) recallSuperseded(ctx context.Context, ch domain.Channel, cmd Command, lastActivity time.Time, messageIDs ...string) {
	grace := time.Duration(c.cfg.Cleanup.RecallGraceSeconds) * time.Second
	canRecall := ch.CanModerate(ctx, cmd.Chat) || time.Since(lastActivity) < grace
	if !canRecall {
		c.log.Debug().Str("user", cmd.UserID).Msg("recall window elapsed, leaving old messages")
		return
	}

	for _, id := range messageIDs {
		if id == "" {
			continue
		}
		if err := ch.Recall(ctx, cmd.Chat, id); err != nil {
			c.log.Warn().Err(err).Str("message", id).Msg("recall failed")
		}
	}

	// Moderators' own messages are left alone.
	if cmd.MessageID != "" && !ch.IsModerator(ctx, cmd.Chat, cmd.UserID) {
		if err := ch.Recall(ctx, cmd.Chat, cmd.MessageID); err != nil {
			c.log.Warn().Err(err).Str("message", cmd.MessageID).Msg("command recall failed")
		}
	}
}

// sendResult delivers one page of search results: a screenshot with
// caption when the searcher produced one, a text card otherwise. Returns
// the transport message id.
func (c *Controller) sendResult(ctx context.Context, ch domain.Channel, chat domain.ChatRef, category, query string, page int, res *domain.SearchResult) (string, error) {
	out := domain.Outbound{Text: searchResultText(c.displayName(category), query, page, res.Items)}
	if len(res.Screenshot) > 0 {
		path, err := c.files.SaveTemp(res.Screenshot, ".png")
		if err != nil {
			return "", err
		}
		defer c.files.DeleteAfter(path, c.tempFileDelay())
		out.ImagePath = path
	}
	return ch.Send(ctx, chat, out)
}

// sendDetail delivers a detail view, with a rendered capture when the
// searcher can produce one.
func (c *Controller) sendDetail(ctx context.Context, ch domain.Channel, chat domain.ChatRef, name, url string) (string, error) {
	out := domain.Outbound{Text: detailText(name, url)}
	shot, err := c.searcher.DetailScreenshot(ctx, url)
	if err != nil {
		return "", err
	}
	if len(shot) > 0 {
		path, err := c.files.SaveTemp(shot, ".png")
		if err != nil {
			return "", err
		}
		defer c.files.DeleteAfter(path, c.tempFileDelay())
		out.ImagePath = path
	}
	return ch.Send(ctx, chat, out)
}

// sendPrompt delivers a transient status line. Prompt failures never
// abort the command.
func (c *Controller) sendPrompt(ctx context.Context, ch domain.Channel, chat domain.ChatRef, text string) string {
	id, err := ch.Send(ctx, chat, domain.Outbound{Text: text})
	if err != nil {
		c.log.Warn().Err(err).Msg("prompt send failed")
		return ""
	}
	return id
}

// report turns a handler error into the user-facing reply. Collaborator
// errors carry their own message with the cause appended; silent wrong-
// context drops are only logged.
func (c *Controller) report(ctx context.Context, ch domain.Channel, chat domain.ChatRef, op string, err error) error {
	if err == nil {
		return nil
	}

	var text string
	var ve *ValidationError
	var se *SessionExpiredError
	var wc *WrongContextError
	var ce *CollaboratorError
	switch {
	case errors.As(err, &ve):
		text = ve.Message
	case errors.As(err, &se):
		text = c.cfg.Messages.SessionExpired
		c.hooks.Emit(ctx, hooks.EventSessionExpired, map[string]any{"op": op})
	case errors.As(err, &wc):
		if wc.Silent {
			c.log.Debug().Str("op", op).Msg("reply outside command context, ignoring")
			return err
		}
		text = c.cfg.Messages.WrongContext
	case errors.As(err, &ce):
		text = fmt.Sprintf("%s\nError: %v", ce.UserMessage, ce.Err)
	default:
		text = c.cfg.Messages.SearchFailed
	}

	c.log.Warn().Err(err).Str("op", op).Msg("command failed")
	if _, sendErr := ch.Send(ctx, chat, domain.Outbound{Text: text}); sendErr != nil {
		c.log.Error().Err(sendErr).Str("op", op).Msg("error reply failed")
	}
	return err
}

// requireDomain resolves the reply target and demands it belong to want.
// A resolvable reply in a different domain is a silent drop; an
// unresolvable one with a live session is reported.
func requireDomain(sess *session.Session, replyToID string, want session.Domain) error {
	dom, _ := session.Resolve(sess, replyToID)
	switch dom {
	case want:
		return nil
	case session.DomainNone:
		return &WrongContextError{}
	default:
		return &WrongContextError{Silent: true}
	}
}

func (c *Controller) canonicalCategory(alias string) (string, bool) {
	canonical, ok := c.cfg.Search.Categories[strings.ToLower(alias)]
	return canonical, ok
}

func (c *Controller) displayName(category string) string {
	if name, ok := c.cfg.Search.DisplayNames[category]; ok {
		return name
	}
	return category
}

func (c *Controller) categoryAliases() []string {
	seen := make(map[string]bool, len(c.cfg.Search.Categories))
	aliases := make([]string, 0, len(c.cfg.Search.Categories))
	for _, canonical := range c.cfg.Search.Categories {
		if !seen[canonical] {
			seen[canonical] = true
			aliases = append(aliases, canonical)
		}
	}
	sort.Strings(aliases)
	return aliases
}

func (c *Controller) tempFileDelay() time.Duration {
	return time.Duration(c.cfg.Cleanup.TempFileDelaySeconds) * time.Second
}

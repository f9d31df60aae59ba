// Package routing parses inbound chat messages into bot commands and
// dispatches them to the controller.
package routing

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/soyeahso/modseek/internal/bot"
	"github.com/soyeahso/modseek/internal/channel"
	"github.com/soyeahso/modseek/internal/domain"
	"github.com/soyeahso/modseek/internal/logging"
)

// Command grammar. Search is prefixed; everything else is a short token
// the user sends while replying to one of the bot's messages.
var (
	rePageSearch   = regexp.MustCompile(`^p(\d+)$`)
	reViewDetail   = regexp.MustCompile(`^g(\d+)$`)
	reViewVersions = regexp.MustCompile(`^(?:v|version|versions)$`)
	rePageVersions = regexp.MustCompile(`^v(\d+)$`)
	reDownload     = regexp.MustCompile(`^d(\d+)$`)
)

// Handlers is the controller surface the router dispatches into.
type Handlers interface {
	HandleSearch(ctx context.Context, ch domain.Channel, cmd bot.Command, rawArgs string) (bool, error)
	HandlePageSearch(ctx context.Context, ch domain.Channel, cmd bot.Command, page int) (bool, error)
	HandleViewDetail(ctx context.Context, ch domain.Channel, cmd bot.Command, ordinal int) (bool, error)
	HandleViewVersions(ctx context.Context, ch domain.Channel, cmd bot.Command) (bool, error)
	HandlePageVersions(ctx context.Context, ch domain.Channel, cmd bot.Command, page int) (bool, error)
	HandleDownload(ctx context.Context, ch domain.Channel, cmd bot.Command, ordinal int) (bool, error)
	HandleHelp(ctx context.Context, ch domain.Channel, cmd bot.Command) (bool, error)
}

// Router turns inbound messages into controller calls and wires itself
// onto every registered transport.
type Router struct {
	channels *channel.Registry
	handlers Handlers
	prefix   string
	log      *logging.Logger
}

// NewRouter creates a message router for the given command prefix.
func NewRouter(channels *channel.Registry, handlers Handlers, prefix string, log *logging.Logger) *Router {
	return &Router{
		channels: channels,
		handlers: handlers,
		prefix:   prefix,
		log:      log.Sub("routing"),
	}
}

// Wire registers HandleInbound on all channels. Each message is processed
// in its own goroutine so a slow catalog call never blocks the transport.
func (r *Router) Wire() {
	for _, id := range r.channels.List() {
		ch, ok := r.channels.Get(id)
		if !ok {
			continue
		}
		ch.OnMessage(func(msg domain.InboundMessage) {
			go r.HandleInbound(context.Background(), msg)
		})
		r.log.Debug().Str("channel", id).Msg("wired message handler")
	}
}

// HandleInbound parses one message. Non-command chatter falls through
// untouched.
func (r *Router) HandleInbound(ctx context.Context, msg domain.InboundMessage) {
	ch, ok := r.channels.Get(msg.ChannelID)
	if !ok {
		r.log.Error().Str("channel", msg.ChannelID).Msg("message from unknown channel")
		return
	}

	cmd := bot.Command{
		UserID:    msg.From,
		Chat:      msg.Chat(),
		MessageID: msg.ID,
		ReplyToID: msg.ReplyToID,
	}

	body := strings.TrimSpace(msg.Body)
	handled, err := r.dispatch(ctx, ch, cmd, body)
	if err != nil {
		r.log.Debug().Err(err).
			Str("channel", msg.ChannelID).
			Str("from", msg.From).
			Msg("command finished with error")
	}
	if handled {
		r.log.Info().
			Str("channel", msg.ChannelID).
			Str("from", msg.From).
			Str("body", body).
			Msg("command handled")
	}
}

func (r *Router) dispatch(ctx context.Context, ch domain.Channel, cmd bot.Command, body string) (bool, error) {
	if rest, ok := r.stripPrefix(body); ok {
		if strings.EqualFold(strings.TrimSpace(rest), "help") {
			return r.handlers.HandleHelp(ctx, ch, cmd)
		}
		return r.handlers.HandleSearch(ctx, ch, cmd, rest)
	}

	token := strings.ToLower(body)
	switch {
	case rePageSearch.MatchString(token):
		return r.handlers.HandlePageSearch(ctx, ch, cmd, number(rePageSearch, token))
	case reViewDetail.MatchString(token):
		return r.handlers.HandleViewDetail(ctx, ch, cmd, number(reViewDetail, token))
	case reViewVersions.MatchString(token):
		return r.handlers.HandleViewVersions(ctx, ch, cmd)
	case rePageVersions.MatchString(token):
		return r.handlers.HandlePageVersions(ctx, ch, cmd, number(rePageVersions, token))
	case reDownload.MatchString(token):
		return r.handlers.HandleDownload(ctx, ch, cmd, number(reDownload, token))
	}
	return false, nil
}

// stripPrefix returns the text after the command prefix. The prefix must
// be the whole first token: "!mrx" is chatter, "!mr x" is a command.
func (r *Router) stripPrefix(body string) (string, bool) {
	if r.prefix == "" {
		return "", false
	}
	if strings.EqualFold(body, r.prefix) {
		return "", true
	}
	lower := strings.ToLower(body)
	prefix := strings.ToLower(r.prefix) + " "
	if strings.HasPrefix(lower, prefix) {
		return strings.TrimSpace(body[len(prefix):]), true
	}
	return "", false
}

func number(re *regexp.Regexp, token string) int {
	m := re.FindStringSubmatch(token)
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Package irc implements the IRC transport using the girc library.
//
// Reply-driven commands need message ids. The adapter negotiates
// message-tags and echo-message so outbound messages can be correlated
// with the server-assigned msgid, and reads +draft/reply on inbound
// messages to recover what the user replied to. Servers without these
// capabilities still work for plain searches; reply commands degrade.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/girc"

	"github.com/soyeahso/modseek/internal/config"
	"github.com/soyeahso/modseek/internal/domain"
	"github.com/soyeahso/modseek/internal/logging"
)

const (
	capMessageTags = "message-tags"
	capEchoMessage = "echo-message"
	capRedact      = "draft/message-redaction"

	tagMsgID = "msgid"
	tagReply = "+draft/reply"

	// How long Send waits for the server to echo a message back with
	// its msgid before giving up on correlation.
	echoWait = 2 * time.Second

	maxLineBytes = 400
)

// Channel implements domain.Channel for IRC.
type Channel struct {
	cfg    config.IRCConfig
	client *girc.Client
	log    *logging.Logger

	mu      sync.RWMutex
	handler func(msg domain.InboundMessage)
	running bool
	lastErr string

	echoMu   sync.Mutex
	echoWait []chan string
}

// New creates an IRC transport from configuration.
func New(cfg config.IRCConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg: cfg,
		log: log.Sub("irc"),
	}
}

func (c *Channel) ID() string { return "irc" }

func (c *Channel) Capabilities() domain.ChannelCapabilities {
	return domain.ChannelCapabilities{
		ChatTypes: []domain.ChatType{domain.ChatTypeDM, domain.ChatTypeGroup},
		Media:     false,
		Recall:    true,
		Reply:     true,
	}
}

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Status returns the current runtime status.
func (c *Channel) Status() domain.ChannelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ChannelStatus{
		ChannelID: "irc",
		Connected: c.client != nil && c.client.IsConnected(),
		Running:   c.running,
		LastError: c.lastErr,
	}
}

// Start connects to the IRC server and blocks until the connection ends
// or ctx is cancelled.
func (c *Channel) Start(ctx context.Context) error {
	port := c.cfg.Port
	if port == 0 {
		if c.cfg.UseTLS {
			port = 6697
		} else {
			port = 6667
		}
	}

	gircCfg := girc.Config{
		Server:  c.cfg.Server,
		Port:    port,
		Nick:    c.cfg.Nick,
		User:    c.cfg.Nick,
		Name:    "modseek catalog bot",
		SSL:     c.cfg.UseTLS,
		Version: "modseek/1.0",
		SupportedCaps: map[string][]string{
			capMessageTags: nil,
			capEchoMessage: nil,
			capRedact:      nil,
		},
	}

	if c.cfg.UseTLS {
		gircCfg.TLSConfig = &tls.Config{
			ServerName: c.cfg.Server,
		}
	}

	if c.cfg.SASL && c.cfg.Password != "" {
		gircCfg.SASL = &girc.SASLPlain{
			User: c.cfg.Nick,
			Pass: c.cfg.Password,
		}
	} else if c.cfg.Password != "" {
		gircCfg.ServerPass = c.cfg.Password
	}

	c.client = girc.New(gircCfg)
	c.client.Handlers.Add(girc.CONNECTED, c.onConnected)
	c.client.Handlers.Add(girc.PRIVMSG, c.onPrivmsg)
	c.client.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)

	c.mu.Lock()
	c.running = true
	c.lastErr = ""
	c.mu.Unlock()

	c.log.Info().
		Str("server", c.cfg.Server).
		Int("port", port).
		Str("nick", c.cfg.Nick).
		Strs("channels", c.cfg.Channels).
		Bool("tls", c.cfg.UseTLS).
		Msg("connecting to IRC")

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.client.Connect()
	}()

	select {
	case err := <-errCh:
		c.mu.Lock()
		c.running = false
		if err != nil {
			c.lastErr = err.Error()
		}
		c.mu.Unlock()
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.client.Close()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Stop gracefully disconnects from the IRC server.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.client.IsConnected() {
		c.log.Info().Msg("disconnecting from IRC")
		c.client.Quit("modseek shutting down")
	}
	c.running = false
	return nil
}

// Send delivers an outbound message and returns its id: the server's
// msgid when echo-message is negotiated, a synthesized one otherwise.
// Media degrades to text because IRC carries no attachments.
func (c *Channel) Send(_ context.Context, chat domain.ChatRef, out domain.Outbound) (string, error) {
	if c.client == nil || !c.client.IsConnected() {
		return "", fmt.Errorf("irc: not connected")
	}
	target := chat.ChatID
	if target == "" {
		return "", fmt.Errorf("irc: no target specified")
	}

	lines := renderOutbound(out)
	if len(lines) == 0 {
		return "", fmt.Errorf("irc: empty message")
	}

	correlate := c.client.HasCapability(capEchoMessage)
	var msgID string
	for i, line := range lines {
		var waiter chan string
		if correlate {
			waiter = c.expectEcho()
		}
		c.client.Cmd.Message(target, line)
		if correlate {
			id := awaitEcho(waiter)
			if i == 0 {
				msgID = id
			}
		}
	}
	if msgID == "" {
		msgID = uuid.New().String()
	}

	c.log.Debug().
		Str("to", target).
		Int("lines", len(lines)).
		Str("msgId", msgID).
		Msg("sent IRC message")
	return msgID, nil
}

// Recall redacts a previously sent message. Only servers advertising
// draft/message-redaction can honor it.
func (c *Channel) Recall(_ context.Context, chat domain.ChatRef, messageID string) error {
	if c.client == nil || !c.client.IsConnected() {
		return fmt.Errorf("irc: not connected")
	}
	if !c.client.HasCapability(capRedact) {
		return fmt.Errorf("irc: server does not support message redaction")
	}
	c.client.Send(&girc.Event{
		Command: "REDACT",
		Params:  []string{chat.ChatID, messageID},
	})
	return nil
}

// CanModerate reports whether the bot itself holds chanop in the chat.
func (c *Channel) CanModerate(_ context.Context, chat domain.ChatRef) bool {
	if c.client == nil {
		return false
	}
	return c.isChannelOp(c.client.GetNick(), chat.ChatID)
}

// IsModerator reports whether the given nick holds chanop in the chat.
func (c *Channel) IsModerator(_ context.Context, chat domain.ChatRef, userID string) bool {
	if c.client == nil {
		return false
	}
	return c.isChannelOp(userID, chat.ChatID)
}

// isChannelOp checks whether the nick has operator (or higher) permissions
// in the channel. False when the user or channel cannot be found.
func (c *Channel) isChannelOp(nick, channel string) bool {
	user := c.client.LookupUser(nick)
	if user == nil {
		return false
	}
	perms, ok := user.Perms.Lookup(channel)
	if !ok {
		return false
	}
	return perms.IsAdmin()
}

func (c *Channel) onConnected(_ *girc.Client, _ girc.Event) {
	c.log.Info().Str("nick", c.client.GetNick()).Msg("connected to IRC")

	for _, ch := range c.cfg.Channels {
		c.log.Info().Str("channel", ch).Msg("joining channel")
		c.client.Cmd.Join(ch)
	}
}

func (c *Channel) onPrivmsg(_ *girc.Client, e girc.Event) {
	if e.Source == nil {
		return
	}

	// Our own messages come back when echo-message is negotiated. They
	// resolve a pending Send correlation instead of being dispatched.
	if e.Source.Name == c.client.GetNick() {
		id := tagValue(e, tagMsgID)
		c.resolveEcho(id)
		return
	}

	from := e.Source.Name
	chatID := e.Params[0]
	chatType := domain.ChatTypeGroup
	if !e.IsFromChannel() {
		chatID = from
		chatType = domain.ChatTypeDM
	}

	body := e.Last()
	if e.IsAction() {
		body = e.StripAction()
	}

	id := tagValue(e, tagMsgID)
	if id == "" {
		id = uuid.New().String()
	}
	replyTo := tagValue(e, tagReply)

	msg := domain.InboundMessage{
		ID:        id,
		ChannelID: "irc",
		From:      from,
		FromName:  from,
		ChatID:    chatID,
		ChatType:  chatType,
		Body:      body,
		ReplyToID: replyTo,
		Timestamp: time.Now(),
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}

func (c *Channel) onDisconnected(_ *girc.Client, _ girc.Event) {
	c.log.Warn().Msg("disconnected from IRC")
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// expectEcho registers a waiter for the next echoed own message.
func (c *Channel) expectEcho() chan string {
	waiter := make(chan string, 1)
	c.echoMu.Lock()
	c.echoWait = append(c.echoWait, waiter)
	c.echoMu.Unlock()
	return waiter
}

// resolveEcho hands the echoed msgid to the oldest waiter. Echoes arrive
// in send order, so FIFO matching is correct.
func (c *Channel) resolveEcho(msgID string) {
	c.echoMu.Lock()
	defer c.echoMu.Unlock()
	if len(c.echoWait) == 0 {
		return
	}
	waiter := c.echoWait[0]
	c.echoWait = c.echoWait[1:]
	waiter <- msgID
}

func awaitEcho(waiter chan string) string {
	select {
	case id := <-waiter:
		return id
	case <-time.After(echoWait):
		return ""
	}
}

func tagValue(e girc.Event, name string) string {
	if e.Tags == nil {
		return ""
	}
	v, _ := e.Tags.Get(name)
	return v
}

// renderOutbound flattens an outbound message to IRC lines. Attachments
// degrade to a note naming the file; bundles become blank-line separated
// card blocks.
func renderOutbound(out domain.Outbound) []string {
	var lines []string
	if out.Text != "" {
		lines = append(lines, splitMessage(out.Text, maxLineBytes)...)
	}
	for _, card := range out.Bundle {
		lines = append(lines, splitMessage(card, maxLineBytes)...)
	}
	if out.FilePath != "" {
		lines = append(lines, fmt.Sprintf("[file] %s", filepath.Base(out.FilePath)))
	}
	return lines
}

// splitMessage breaks text into IRC-safe chunks. Each newline produces a
// separate chunk because PRIVMSG cannot carry embedded newlines; lines
// longer than maxLen are split at the byte boundary.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLen {
			chunks = append(chunks, line[:maxLen])
			line = line[maxLen:]
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}

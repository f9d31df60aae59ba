package domain

import "context"

// ChannelCapabilities describes what a channel implementation supports.
type ChannelCapabilities struct {
	ChatTypes []ChatType `json:"chatTypes"`
	Media     bool       `json:"media,omitempty"`
	Recall    bool       `json:"recall,omitempty"`
	Reply     bool       `json:"reply,omitempty"`
}

// ChannelStatus reports the runtime state of a channel.
type ChannelStatus struct {
	ChannelID string `json:"channelId"`
	Connected bool   `json:"connected"`
	Running   bool   `json:"running"`
	LastError string `json:"lastError,omitempty"`
}

// Channel is the chat transport the bot core talks through. The core only
// depends on this interface; delivery mechanics live in the implementations.
type Channel interface {
	// ID returns the channel identifier (e.g., "irc").
	ID() string

	// Capabilities returns what this channel supports.
	Capabilities() ChannelCapabilities

	// Start connects the channel and begins listening for messages.
	Start(ctx context.Context) error

	// Stop gracefully disconnects the channel.
	Stop(ctx context.Context) error

	// OnMessage registers a handler for inbound messages.
	OnMessage(handler func(msg InboundMessage))

	// Send delivers an outbound message and returns the id the transport
	// assigned to it, so later replies can be correlated back to it.
	Send(ctx context.Context, chat ChatRef, out Outbound) (string, error)

	// Recall deletes a previously sent message. Failures are best-effort
	// housekeeping: callers log and move on, never surface them.
	Recall(ctx context.Context, chat ChatRef, messageID string) error

	// CanModerate reports whether the bot holds elevated privilege in the
	// chat (and may recall messages regardless of their age).
	CanModerate(ctx context.Context, chat ChatRef) bool

	// IsModerator reports whether the given user holds elevated privilege
	// in the chat.
	IsModerator(ctx context.Context, chat ChatRef, userID string) bool
}

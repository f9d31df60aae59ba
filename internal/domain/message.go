package domain

import "time"

// ChatType classifies the conversation context.
type ChatType string

const (
	ChatTypeDM    ChatType = "dm"
	ChatTypeGroup ChatType = "group"
)

// ChatRef identifies the chat a command arrived in and where replies go.
type ChatRef struct {
	ChannelID string   `json:"channelId"`
	ChatID    string   `json:"chatId"`
	ChatType  ChatType `json:"chatType"`
}

// InboundMessage is a message received from a channel.
type InboundMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	From      string    `json:"from"`
	FromName  string    `json:"fromName,omitempty"`
	ChatID    string    `json:"chatId"`
	ChatType  ChatType  `json:"chatType"`
	Body      string    `json:"body"`
	ReplyToID string    `json:"replyToId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat returns the chat reference this message belongs to.
func (m InboundMessage) Chat() ChatRef {
	return ChatRef{ChannelID: m.ChannelID, ChatID: m.ChatID, ChatType: m.ChatType}
}

// Outbound is a message to be sent via a channel. Exactly one content
// form is normally set; Text may accompany ImagePath as a caption.
type Outbound struct {
	Text      string   `json:"text,omitempty"`
	ImagePath string   `json:"imagePath,omitempty"`
	FilePath  string   `json:"filePath,omitempty"`
	Bundle    []string `json:"bundle,omitempty"` // forwarded-message group, one entry per card
}

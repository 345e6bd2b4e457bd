// Package chat defines the contract between the bot core and the chat
// platform binding: inbound message events and the outbound send/edit surface.
package chat

import (
	"context"
	"time"
)

// Message is one inbound chat event, either a new message or an edit.
type Message struct {
	ID        string
	ChannelID string
	// GuildID is empty for private (direct) messages.
	GuildID    string
	AuthorName string
	// Self marks messages authored by the bot's own account.
	Self    bool
	Content string
	// Timestamp is when the message was originally sent, also for edits.
	Timestamp time.Time
	// Embeds is the number of embeds attached before this event.
	Embeds int
}

// MessageRef identifies a message the bot has sent, for later edits.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Adapter is the outbound surface of the chat platform binding.
type Adapter interface {
	Send(ctx context.Context, channelID, content string) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, content string) error
	// Backlog reports the current outstanding-send depth.
	Backlog() int
}

// Handler receives inbound events. Each call runs as its own task and is
// expected to run to completion; implementations must not assume ordering
// across channels.
type Handler interface {
	HandleMessage(ctx context.Context, m Message)
	HandleMessageEdit(ctx context.Context, m Message)
}

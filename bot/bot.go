// Package bot implements the message event handler: it turns inbound chat
// events into command replies or emote/conversion replies, keeps its prior
// replies editable when the triggering message is edited, and gates outbound
// sends on the adapter's backlog.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/botventic/botventic/chat"
	"github.com/botventic/botventic/commands"
	"github.com/botventic/botventic/config"
	"github.com/botventic/botventic/emotes"
	"github.com/botventic/botventic/telemetry"
)

// maxPendingSends is the outstanding-send depth beyond which new sends are
// refused to protect against a stalled chat connection. Edits are exempt.
const maxPendingSends = 20

// Bot implements chat.Handler.
type Bot struct {
	adapter    chat.Adapter
	catalog    *emotes.Store
	dispatcher *commands.Dispatcher
	replies    *replyLog
	clock      clockwork.Clock

	authURL       string
	editThreshold time.Duration
}

// New wires a Bot from its collaborators.
func New(cfg *config.Config, adapter chat.Adapter, catalog *emotes.Store, dispatcher *commands.Dispatcher) *Bot {
	return &Bot{
		adapter:       adapter,
		catalog:       catalog,
		dispatcher:    dispatcher,
		replies:       newReplyLog(cfg.EditMax),
		clock:         clockwork.NewRealClock(),
		authURL:       cfg.AuthURL,
		editThreshold: cfg.EditThreshold,
	}
}

// WithClock substitutes the clock used for the edit-threshold check.
func (b *Bot) WithClock(c clockwork.Clock) *Bot {
	b.clock = c
	return b
}

// HandleMessage processes a newly received message.
func (b *Bot) HandleMessage(ctx context.Context, m chat.Message) {
	if m.Self {
		return
	}
	telemetry.MessagesHandled.Inc()
	slog.Debug("message received",
		slog.String("channel", m.ChannelID),
		slog.String("author", m.AuthorName),
		slog.String("text", m.Content))

	// Private messages always get the invite link and nothing else.
	if m.GuildID == "" {
		b.sendReply(ctx, m.ChannelID, m.ID, "You can add the bot via "+b.authURL)
		return
	}

	if reply := b.composeReply(ctx, m.Content); strings.TrimSpace(reply) != "" {
		b.sendReply(ctx, m.ChannelID, m.ID, reply)
	}
}

// HandleMessageEdit processes an edit of an earlier message.
func (b *Bot) HandleMessageEdit(ctx context.Context, m chat.Message) {
	if m.Self {
		return
	}

	// An edit event for the message we just replied to, carrying embeds, is
	// the platform rendering a link preview on the trigger, not a user edit.
	if m.Embeds > 0 && b.replies.lastHandledIs(m.ChannelID, m.ID) {
		return
	}
	b.replies.clearHandled(m.ChannelID)

	telemetry.EditsHandled.Inc()
	slog.Debug("message edited",
		slog.String("channel", m.ChannelID),
		slog.String("author", m.AuthorName),
		slog.String("text", m.Content))

	reply := b.composeReply(ctx, m.Content)
	if strings.TrimSpace(reply) == "" {
		return
	}
	if b.clock.Since(m.Timestamp) >= b.editThreshold {
		return
	}

	ref, exists := b.replies.find(m.ID)
	if !exists {
		b.sendReply(ctx, m.ChannelID, m.ID, reply)
		return
	}
	if err := b.adapter.Edit(ctx, ref, reply); err != nil {
		telemetry.SendFailures.Inc()
		slog.Error("failed to edit reply", slog.String("message", ref.MessageID), slog.Any("err", err))
		return
	}
	telemetry.ReplyEdits.Inc()
}

// composeReply runs command dispatch and falls through to the emote and
// conversion scan when no command matched.
func (b *Bot) composeReply(ctx context.Context, content string) string {
	words := strings.Split(content, " ")
	if reply, ok := b.dispatcher.Dispatch(ctx, words); ok {
		return reply
	}
	return transform(b.catalog.Current(), words)
}

// sendReply sends a new reply, subject to backlog admission control, and
// records the correlation and last-handled marker. Send failures are logged,
// not retried.
func (b *Bot) sendReply(ctx context.Context, channelID, triggerID, reply string) {
	if depth := b.adapter.Backlog(); depth > maxPendingSends {
		telemetry.SendsBlocked.Inc()
		slog.Warn("send refused: too many outstanding sends", slog.Int("backlog", depth))
		return
	}
	b.replies.markHandled(channelID, triggerID)
	ref, err := b.adapter.Send(ctx, channelID, reply)
	if err != nil {
		telemetry.SendFailures.Inc()
		slog.Error("failed to send reply", slog.String("channel", channelID), slog.Any("err", err))
		return
	}
	telemetry.RepliesSent.Inc()
	b.replies.record(ref, triggerID)
}

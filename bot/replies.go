package bot

import (
	"sync"

	"github.com/botventic/botventic/chat"
)

type replyEntry struct {
	reply   chat.MessageRef
	trigger string
}

// replyLog correlates triggering messages with the bot's replies so that a
// later edit of the trigger can retarget the reply. Entries are write-once
// and evicted from the front when the bound is exceeded. It also keeps the
// per-channel last-handled marker used by edit suppression.
//
// Message and edit handlers run concurrently; one mutex serializes both the
// entry list and the marker map.
type replyLog struct {
	mu          sync.Mutex
	max         int
	entries     []replyEntry
	lastHandled map[string]string // channel id -> message id
}

func newReplyLog(max int) *replyLog {
	return &replyLog{
		max:         max,
		lastHandled: make(map[string]string),
	}
}

// record appends a correlation entry, evicting the oldest while over the bound.
func (l *replyLog) record(reply chat.MessageRef, triggerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, replyEntry{reply: reply, trigger: triggerID})
	for len(l.entries) > l.max {
		l.entries = l.entries[1:]
	}
}

// find returns the bot reply correlated with a triggering message id.
func (l *replyLog) find(triggerID string) (chat.MessageRef, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.trigger == triggerID {
			return e.reply, true
		}
	}
	return chat.MessageRef{}, false
}

func (l *replyLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// markHandled remembers the most recent message id the bot acted on per channel.
func (l *replyLog) markHandled(channelID, messageID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastHandled[channelID] = messageID
}

// lastHandledIs reports whether messageID is the channel's current marker.
func (l *replyLog) lastHandledIs(channelID, messageID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHandled[channelID] == messageID
}

func (l *replyLog) clearHandled(channelID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lastHandled, channelID)
}

package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/botventic/botventic/chat"
)

const defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Intent bits for the events the bot consumes.
const intents = 1<<0 | 1<<9 | 1<<12 | 1<<15 // guilds, guild messages, direct messages, message content

// Gateway maintains the persistent event connection and dispatches each
// inbound message event to the handler as an independent task.
type Gateway struct {
	Token   string
	URL     string
	Handler chat.Handler
	Dialer  *websocket.Dialer

	mu        sync.Mutex
	selfID    string
	guilds    map[string]struct{}
	connected bool
}

type payload struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	S  int64           `json:"s,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

func (g *Gateway) gatewayURL() string {
	if g.URL != "" {
		return g.URL
	}
	return defaultGatewayURL
}

// Host returns the hostname of the gateway endpoint.
func (g *Gateway) Host() string {
	u, err := url.Parse(g.gatewayURL())
	if err != nil {
		return ""
	}
	return u.Host
}

// GuildCount returns the number of guilds the bot is currently in, or an
// error when the gateway has not finished connecting.
func (g *Gateway) GuildCount() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return 0, fmt.Errorf("gateway not connected")
	}
	return len(g.guilds), nil
}

// Run connects to the gateway and keeps the session alive, reconnecting with
// a short delay until the context is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		if err := g.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("gateway session ended; reconnecting", slog.Any("err", err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (g *Gateway) runOnce(ctx context.Context) error {
	dialer := g.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, g.gatewayURL(), nil)
	if err != nil {
		return fmt.Errorf("gateway dial: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("gateway close", slog.Any("err", err))
		}
	}()
	defer g.setConnected(false)

	// Writes come from both the read loop and the heartbeat goroutine.
	var writeMu sync.Mutex
	write := func(p payload) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(p)
	}

	var hello struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	var first payload
	if err := conn.ReadJSON(&first); err != nil {
		return fmt.Errorf("gateway hello read: %w", err)
	}
	if first.Op != opHello {
		return fmt.Errorf("gateway expected hello, got op %d", first.Op)
	}
	if err := json.Unmarshal(first.D, &hello); err != nil {
		return fmt.Errorf("gateway hello decode: %w", err)
	}

	identify, err := json.Marshal(map[string]any{
		"token":   g.Token,
		"intents": intents,
		"properties": map[string]string{
			"os":      "linux",
			"browser": "botventic",
			"device":  "botventic",
		},
	})
	if err != nil {
		return err
	}
	if err := write(payload{Op: opIdentify, D: identify}); err != nil {
		return fmt.Errorf("gateway identify: %w", err)
	}

	var seq int64
	var seqMu sync.Mutex
	lastSeq := func() json.RawMessage {
		seqMu.Lock()
		defer seqMu.Unlock()
		if seq == 0 {
			return json.RawMessage("null")
		}
		return json.RawMessage(fmt.Sprintf("%d", seq))
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go func() {
		interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
		if interval <= 0 {
			interval = 41 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := write(payload{Op: opHeartbeat, D: lastSeq()}); err != nil {
					slog.Warn("gateway heartbeat write failed", slog.Any("err", err))
					return
				}
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var p payload
		if err := conn.ReadJSON(&p); err != nil {
			return fmt.Errorf("gateway read: %w", err)
		}
		switch p.Op {
		case opDispatch:
			seqMu.Lock()
			seq = p.S
			seqMu.Unlock()
			g.handleDispatch(ctx, p.T, p.D)
		case opHeartbeat:
			if err := write(payload{Op: opHeartbeat, D: lastSeq()}); err != nil {
				return fmt.Errorf("gateway heartbeat: %w", err)
			}
		case opReconnect:
			return fmt.Errorf("gateway requested reconnect")
		case opInvalidSession:
			return fmt.Errorf("gateway invalidated session")
		case opHeartbeatAck:
			// keepalive acknowledged
		}
	}
}

func (g *Gateway) setConnected(v bool) {
	g.mu.Lock()
	g.connected = v
	g.mu.Unlock()
}

type gatewayMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Author    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"author"`
	Embeds []json.RawMessage `json:"embeds"`
}

func (g *Gateway) handleDispatch(ctx context.Context, event string, data json.RawMessage) {
	switch event {
	case "READY":
		var ready struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
			Guilds []struct {
				ID string `json:"id"`
			} `json:"guilds"`
		}
		if err := json.Unmarshal(data, &ready); err != nil {
			slog.Warn("gateway ready decode failed", slog.Any("err", err))
			return
		}
		g.mu.Lock()
		g.selfID = ready.User.ID
		g.guilds = make(map[string]struct{}, len(ready.Guilds))
		for _, gu := range ready.Guilds {
			g.guilds[gu.ID] = struct{}{}
		}
		g.connected = true
		g.mu.Unlock()
		slog.Info("gateway ready", slog.String("self_id", ready.User.ID), slog.Int("guilds", len(ready.Guilds)))
	case "GUILD_CREATE", "GUILD_DELETE":
		var guild struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &guild); err != nil || guild.ID == "" {
			return
		}
		g.mu.Lock()
		if g.guilds == nil {
			g.guilds = make(map[string]struct{})
		}
		if event == "GUILD_CREATE" {
			g.guilds[guild.ID] = struct{}{}
		} else {
			delete(g.guilds, guild.ID)
		}
		g.mu.Unlock()
	case "MESSAGE_CREATE":
		if m, ok := g.toMessage(data); ok && g.Handler != nil {
			go g.Handler.HandleMessage(ctx, m)
		}
	case "MESSAGE_UPDATE":
		if m, ok := g.toMessage(data); ok && g.Handler != nil {
			go g.Handler.HandleMessageEdit(ctx, m)
		}
	}
}

func (g *Gateway) toMessage(data json.RawMessage) (chat.Message, bool) {
	var gm gatewayMessage
	if err := json.Unmarshal(data, &gm); err != nil {
		slog.Warn("gateway message decode failed", slog.Any("err", err))
		return chat.Message{}, false
	}
	if gm.ID == "" || gm.ChannelID == "" {
		return chat.Message{}, false
	}
	ts, _ := time.Parse(time.RFC3339, gm.Timestamp)
	g.mu.Lock()
	self := g.selfID != "" && gm.Author.ID == g.selfID
	g.mu.Unlock()
	return chat.Message{
		ID:         gm.ID,
		ChannelID:  gm.ChannelID,
		GuildID:    gm.GuildID,
		AuthorName: gm.Author.Username,
		Self:       self,
		Content:    gm.Content,
		Timestamp:  ts,
		Embeds:     len(gm.Embeds),
	}, true
}

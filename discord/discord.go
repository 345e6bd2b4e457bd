// Package discord binds the bot core to Discord: a small REST client for
// sending and editing messages, and a gateway client for inbound events.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/botventic/botventic/chat"
)

const defaultAPIBase = "https://discord.com/api/v10"

// Client is the REST side of the binding. It implements chat.Adapter.
// Sends are rate limited client-side; Backlog counts calls that have been
// admitted but not yet completed, which is what admission control gates on.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client

	limiter *rate.Limiter
	pending atomic.Int64
}

// NewClient returns a REST client for the given bot token.
func NewClient(token string) *Client {
	return &Client{
		Token: token,
		// Discord allows roughly 5 messages per 5 seconds per channel; a
		// single global limiter keeps the bot well inside that.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return defaultAPIBase
}

// Backlog reports the number of outstanding sends and edits.
func (c *Client) Backlog() int {
	return int(c.pending.Load())
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	c.pending.Add(1)
	defer c.pending.Add(-1)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base()+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "BotVentic/2.0")

	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord %s %s: %s: %s", method, path, resp.Status, string(b))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Send posts a message to a channel and returns a reference to it.
func (c *Client) Send(ctx context.Context, channelID, content string) (chat.MessageRef, error) {
	payload := map[string]string{
		"content": content,
		"nonce":   uuid.New().String(),
	}
	var created struct {
		ID        string `json:"id"`
		ChannelID string `json:"channel_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", payload, &created); err != nil {
		return chat.MessageRef{}, err
	}
	return chat.MessageRef{ChannelID: created.ChannelID, MessageID: created.ID}, nil
}

// Edit replaces the content of a previously sent message.
func (c *Client) Edit(ctx context.Context, ref chat.MessageRef, content string) error {
	payload := map[string]string{"content": content}
	path := "/channels/" + ref.ChannelID + "/messages/" + ref.MessageID
	return c.do(ctx, http.MethodPatch, path, payload, nil)
}

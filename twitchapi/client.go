// Package twitchapi contains a minimal client for the Twitch stream and
// channel metadata endpoints used by the chat commands.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twitch.tv/kraken"

// Client queries stream and channel metadata. The zero value is usable; set
// BaseURL and HTTPClient to override endpoints and transport in tests.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Stream is live-stream metadata. A nil *Stream from QueryStream means the
// channel is offline.
type Stream struct {
	CreatedAt   time.Time
	DisplayName string
	IsPartner   bool
	IsPlaylist  bool
	Title       string
	Game        string
	Viewers     int
	VideoHeight int
	FPS         float64
}

// Channel is channel metadata. DisplayName may be empty when the upstream
// payload is missing or malformed; callers treat that as "no channel".
type Channel struct {
	DisplayName  string
	IsPartner    bool
	Title        string
	RegisteredAt time.Time
	Followers    int
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
	return defaultBaseURL
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+path, nil)
	if err != nil {
		return err
	}
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
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twitch request failed: %s: %s", resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// QueryStream returns live-stream metadata for a channel name, or nil when
// the channel is offline.
func (c *Client) QueryStream(ctx context.Context, channel string) (*Stream, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel empty")
	}
	var body struct {
		Stream *struct {
			CreatedAt  string  `json:"created_at"`
			Game       string  `json:"game"`
			Viewers    int     `json:"viewers"`
			Height     int     `json:"video_height"`
			FPS        float64 `json:"average_fps"`
			IsPlaylist bool    `json:"is_playlist"`
			Channel    struct {
				DisplayName string `json:"display_name"`
				Partner     bool   `json:"partner"`
				Status      string `json:"status"`
			} `json:"channel"`
		} `json:"stream"`
	}
	if err := c.get(ctx, "/streams/"+strings.ToLower(channel)+"?stream_type=all", &body); err != nil {
		return nil, err
	}
	if body.Stream == nil {
		return nil, nil
	}
	createdAt, err := time.Parse(time.RFC3339, body.Stream.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid stream created_at: %w", err)
	}
	return &Stream{
		CreatedAt:   createdAt,
		DisplayName: body.Stream.Channel.DisplayName,
		IsPartner:   body.Stream.Channel.Partner,
		IsPlaylist:  body.Stream.IsPlaylist,
		Title:       body.Stream.Channel.Status,
		Game:        body.Stream.Game,
		Viewers:     body.Stream.Viewers,
		VideoHeight: body.Stream.Height,
		FPS:         body.Stream.FPS,
	}, nil
}

// QueryChannel returns channel metadata for a channel name.
func (c *Client) QueryChannel(ctx context.Context, channel string) (*Channel, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel empty")
	}
	var body struct {
		DisplayName string `json:"display_name"`
		Partner     bool   `json:"partner"`
		Status      string `json:"status"`
		CreatedAt   string `json:"created_at"`
		Followers   int    `json:"followers"`
	}
	if err := c.get(ctx, "/channels/"+strings.ToLower(channel), &body); err != nil {
		return nil, err
	}
	registered, _ := time.Parse(time.RFC3339, body.CreatedAt)
	return &Channel{
		DisplayName:  body.DisplayName,
		IsPartner:    body.Partner,
		Title:        body.Status,
		RegisteredAt: registered,
		Followers:    body.Followers,
	}, nil
}

// Package commands routes the first token of a message to a command handler.
// A dispatch that matches no command reports ok=false so the caller can fall
// through to emote resolution; a matched command that produces no text
// reports ok=true with an empty reply.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/botventic/botventic/twitchapi"
)

const (
	sourceURL       = "https://github.com/botventic/botventic"
	defaultFoodBase = "http://foodporndaily.com"

	usageStream  = "**Usage:** !stream channel"
	usageChannel = "**Usage:** !channel channel"
	offlineReply = "The channel is currently *offline*"
	pizzaReply   = "*starts making a frozen pizza*"
	updateReply  = "*updated list of known emotes*"
)

var imgSrcPattern = regexp.MustCompile(`(?is)<img[^>]*?src\s*=\s*["']?([^'" >]+?)[ '"][^>]*?>`)

// StatusReporter exposes the chat connection details for the !bot command.
type StatusReporter interface {
	Host() string
	GuildCount() (int, error)
}

// Refresher triggers an emote catalog rebuild.
type Refresher interface {
	Refresh(ctx context.Context) bool
}

// Dispatcher holds the collaborators the command handlers need.
type Dispatcher struct {
	Twitch     *twitchapi.Client
	Refresher  Refresher
	Status     StatusReporter
	HTTPClient *http.Client
	// FoodBaseURL overrides the image-of-the-day site in tests.
	FoodBaseURL string

	clock clockwork.Clock
}

// New returns a Dispatcher using the real clock.
func New(tw *twitchapi.Client, refresher Refresher, status StatusReporter) *Dispatcher {
	return &Dispatcher{
		Twitch:    tw,
		Refresher: refresher,
		Status:    status,
		clock:     clockwork.NewRealClock(),
	}
}

// WithClock substitutes the clock used for uptime calculations.
func (d *Dispatcher) WithClock(c clockwork.Clock) *Dispatcher {
	d.clock = c
	return d
}

func (d *Dispatcher) now() time.Time {
	if d.clock == nil {
		return time.Now()
	}
	return d.clock.Now()
}

func (d *Dispatcher) http() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Dispatch routes tokens to a command handler. ok is false when the first
// token names no known command; handlers never return an error to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, words []string) (reply string, ok bool) {
	if len(words) == 0 {
		return "", false
	}
	switch words[0] {
	case "!stream":
		return d.stream(ctx, words), true
	case "!channel":
		return d.channel(ctx, words), true
	case "!source":
		return sourceURL, true
	case "!frozen":
		if len(words) >= 2 && words[1] != "pizza" {
			return "", true
		}
		return pizzaReply, true
	case "!frozenpizza":
		return pizzaReply, true
	case "!update":
		if len(words) > 1 && words[1] == "emotes" {
			// Answer immediately; the refresh runs in the background and
			// overlapping requests are dropped by the refresher itself.
			go d.Refresher.Refresh(context.WithoutCancel(ctx))
			return updateReply, true
		}
		return "", true
	case "!bot":
		return d.botStatus(), true
	case "!foodporn":
		return d.foodporn(ctx), true
	}
	return "", false
}

func (d *Dispatcher) stream(ctx context.Context, words []string) string {
	if len(words) < 2 {
		return usageStream
	}
	s, err := d.Twitch.QueryStream(ctx, words[1])
	if err != nil {
		slog.Warn("stream lookup failed", slog.String("channel", words[1]), slog.Any("err", err))
		return ""
	}
	if s == nil {
		return offlineReply
	}

	partner := ""
	if s.IsPartner {
		partner = `\*`
	}
	playlist := ""
	if s.IsPlaylist {
		playlist = "(Playlist)"
	}
	return "**[" + s.DisplayName + "]**" + partner + " " + playlist +
		"\n**Title**: " + escapeEmphasis(s.Title) +
		"\n**Game:** " + s.Game +
		fmt.Sprintf("\n**Viewers**: %d", s.Viewers) +
		"\n**Uptime**: " + formatUptime(d.now().Sub(s.CreatedAt)) +
		fmt.Sprintf("\n**Quality**: %dp%d", s.VideoHeight, int(math.Ceil(s.FPS)))
}

func (d *Dispatcher) channel(ctx context.Context, words []string) string {
	if len(words) < 2 {
		return usageChannel
	}
	ch, err := d.Twitch.QueryChannel(ctx, words[1])
	if err != nil {
		slog.Warn("channel lookup failed", slog.String("channel", words[1]), slog.Any("err", err))
		return ""
	}
	if ch == nil || ch.DisplayName == "" {
		return ""
	}

	partner := "No"
	if ch.IsPartner {
		partner = "Yes"
	}
	return "**[" + ch.DisplayName + "]**" +
		"\n**Partner**: " + partner +
		"\n**Title**: " + escapeEmphasis(ch.Title) +
		"\n**Registered**: " + ch.RegisteredAt.UTC().Format("2006-01-02 15:04") + " UTC" +
		fmt.Sprintf("\n**Followers**: %d", ch.Followers)
}

func (d *Dispatcher) botStatus() string {
	host := d.Status.Host()
	n, err := d.Status.GuildCount()
	if err != nil {
		slog.Warn("bot status query failed", slog.Any("err", err))
		return fmt.Sprintf("Error: %s", err)
	}
	return fmt.Sprintf("Connected via `%s`\nConnected to %d servers.", host, n)
}

func (d *Dispatcher) foodporn(ctx context.Context) string {
	base := d.FoodBaseURL
	if base == "" {
		base = defaultFoodBase
	}
	page := rand.Intn(9) + 1
	url := fmt.Sprintf("%s/explore/food/page/%d/", base, page)

	body, err := d.fetchPage(ctx, url)
	if err != nil {
		slog.Warn("foodporn fetch failed", slog.String("url", url), slog.Any("err", err))
		return fmt.Sprintf("Could not get the foodporn image. Error: %s", err)
	}
	matches := imgSrcPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		slog.Warn("foodporn page had no images", slog.String("url", url))
		return "Could not get the foodporn image. Error: no images found"
	}
	return matches[rand.Intn(len(matches))][1]
}

func (d *Dispatcher) fetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "BotVentic/2.0")
	resp, err := d.http().Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// escapeEmphasis guards markdown emphasis characters in user-controlled text.
func escapeEmphasis(s string) string {
	return strings.ReplaceAll(s, "*", `\*`)
}

// formatUptime renders a duration as "D day(s) HH:MM:SS".
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("%d %s %02d:%02d:%02d", days, unit, h, m, s)
}

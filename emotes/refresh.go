package emotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/botventic/botventic/telemetry"
)

const (
	defaultTwitchURL = "https://api.twitch.tv/kraken/chat/emoticon_images"
	defaultBTTVURL   = "https://api.betterttv.net/2/emotes"
	defaultFFZURL    = "https://api.frankerfacez.com/v1/set/global"

	userAgent = "BotVentic/2.0"
)

// Refresher rebuilds the catalog from the three emote sources. At most one
// refresh runs at a time: a call made while one is in flight returns
// immediately without effect (dropped, not queued).
type Refresher struct {
	Store      *Store
	HTTPClient *http.Client

	// Endpoint overrides for tests; defaults are applied when empty.
	TwitchURL string
	BTTVURL   string
	FFZURL    string

	inFlight atomic.Bool
}

func (r *Refresher) http() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Refresh fetches all three sources and publishes a new catalog version.
// A source that fails to fetch or decodes to an empty shape is omitted from
// the new version; the swap itself is atomic. Returns false when another
// refresh was already in flight.
func (r *Refresher) Refresh(ctx context.Context) bool {
	if !r.inFlight.CompareAndSwap(false, true) {
		slog.Debug("emote refresh already in flight; dropping request")
		telemetry.RefreshesDropped.Inc()
		return false
	}
	defer r.inFlight.Store(false)

	telemetry.RefreshesStarted.Inc()
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "emotes", "catalog.refresh")
	defer span.End()

	merged := make([]Emote, 0, 4096)
	merged = append(merged, r.fetchTwitch(ctx)...)
	bttv, template := r.fetchBTTV(ctx)
	merged = append(merged, bttv...)
	merged = append(merged, r.fetchFFZ(ctx)...)

	if len(merged) == 0 {
		// Every source failed; keep the previous version intact.
		slog.Warn("emote refresh produced no emotes; keeping previous catalog")
		return true
	}

	cat := &Catalog{Emotes: merged, BTTVTemplate: template}
	if template == "" {
		// Keep the previous template when the BetterTTV fetch was omitted,
		// otherwise surviving BTTV resolutions would synthesize broken URLs.
		cat.BTTVTemplate = r.Store.Current().BTTVTemplate
	}
	r.Store.Publish(cat)

	telemetry.RefreshDuration.Observe(time.Since(start).Seconds())
	slog.Info("emote catalog refreshed", slog.Int("emotes", len(merged)), slog.Duration("took", time.Since(start)))
	return true
}

// StartAutoRefresh refreshes once immediately and then on a fixed interval
// until the context is canceled.
func (r *Refresher) StartAutoRefresh(ctx context.Context, every time.Duration) {
	r.Refresh(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	slog.Info("emote refresh job started", slog.Duration("interval", every))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

func (r *Refresher) get(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := r.http().Do(req)
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
		return fmt.Errorf("fetch %s: %s: %s", url, resp.Status, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (r *Refresher) fetchTwitch(ctx context.Context) []Emote {
	url := r.TwitchURL
	if url == "" {
		url = defaultTwitchURL
	}
	var body struct {
		Emoticons []struct {
			ID   json.Number `json:"id"`
			Code string      `json:"code"`
			Set  *int        `json:"emoticon_set"`
		} `json:"emoticons"`
	}
	if err := r.get(ctx, url, &body); err != nil {
		slog.Warn("twitch emote fetch failed", slog.Any("err", err))
		telemetry.SourceFailures.WithLabelValues(Twitch.String()).Inc()
		return nil
	}
	if len(body.Emoticons) == 0 {
		slog.Warn("twitch emote fetch returned no emotes")
		telemetry.SourceFailures.WithLabelValues(Twitch.String()).Inc()
		return nil
	}
	out := make([]Emote, 0, len(body.Emoticons))
	for _, em := range body.Emoticons {
		set := 0
		if em.Set != nil {
			set = *em.Set
		}
		out = append(out, Emote{ID: em.ID.String(), Code: em.Code, Source: Twitch, Set: set})
	}
	// Global sets first, then ascending set id.
	sort.SliceStable(out, func(i, j int) bool {
		ig, jg := isGlobalSet(out[i].Set), isGlobalSet(out[j].Set)
		if ig != jg {
			return ig
		}
		return out[i].Set < out[j].Set
	})
	return out
}

func (r *Refresher) fetchBTTV(ctx context.Context) ([]Emote, string) {
	url := r.BTTVURL
	if url == "" {
		url = defaultBTTVURL
	}
	var body struct {
		Template string `json:"urlTemplate"`
		Emotes   []struct {
			ID   string `json:"id"`
			Code string `json:"code"`
		} `json:"emotes"`
	}
	if err := r.get(ctx, url, &body); err != nil {
		slog.Warn("bttv emote fetch failed", slog.Any("err", err))
		telemetry.SourceFailures.WithLabelValues(BetterTTV.String()).Inc()
		return nil, ""
	}
	if body.Template == "" || len(body.Emotes) == 0 {
		slog.Warn("bttv emote fetch returned an invalid shape")
		telemetry.SourceFailures.WithLabelValues(BetterTTV.String()).Inc()
		return nil, ""
	}
	out := make([]Emote, 0, len(body.Emotes))
	for _, em := range body.Emotes {
		out = append(out, Emote{ID: em.ID, Code: em.Code, Source: BetterTTV})
	}
	return out, body.Template
}

func (r *Refresher) fetchFFZ(ctx context.Context) []Emote {
	url := r.FFZURL
	if url == "" {
		url = defaultFFZURL
	}
	var body struct {
		Sets map[string]struct {
			Emoticons []struct {
				ID   json.Number `json:"id"`
				Name string      `json:"name"`
			} `json:"emoticons"`
		} `json:"sets"`
	}
	if err := r.get(ctx, url, &body); err != nil {
		slog.Warn("ffz emote fetch failed", slog.Any("err", err))
		telemetry.SourceFailures.WithLabelValues(FrankerFaceZ.String()).Inc()
		return nil
	}
	if len(body.Sets) == 0 {
		slog.Warn("ffz emote fetch returned no sets")
		telemetry.SourceFailures.WithLabelValues(FrankerFaceZ.String()).Inc()
		return nil
	}
	var out []Emote
	for _, set := range body.Sets {
		for _, em := range set.Emoticons {
			out = append(out, Emote{ID: em.ID.String(), Code: em.Name, Source: FrankerFaceZ})
		}
	}
	return out
}

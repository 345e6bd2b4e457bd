// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesHandled  prometheus.Counter
	EditsHandled     prometheus.Counter
	RepliesSent      prometheus.Counter
	ReplyEdits       prometheus.Counter
	SendsBlocked     prometheus.Counter
	SendFailures     prometheus.Counter
	RefreshesStarted prometheus.Counter
	RefreshesDropped prometheus.Counter
	SourceFailures   *prometheus.CounterVec

	// Histograms (seconds)
	RefreshDuration prometheus.Observer

	// Gauges
	CatalogSizeGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_handled_total", Help: "Number of inbound chat messages handled"})
		EditsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_edits_handled_total", Help: "Number of inbound message edits handled"})
		RepliesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_replies_sent_total", Help: "Number of replies sent"})
		ReplyEdits = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_reply_edits_total", Help: "Number of existing replies edited in place"})
		SendsBlocked = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_sends_blocked_total", Help: "Number of sends refused by backlog admission control"})
		SendFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_send_failures_total", Help: "Number of failed send or edit calls"})
		RefreshesStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "emote_refreshes_total", Help: "Number of emote catalog refreshes started"})
		RefreshesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "emote_refreshes_dropped_total", Help: "Number of refresh requests dropped because one was in flight"})
		SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "emote_source_failures_total", Help: "Number of per-source emote fetch failures"}, []string{"source"})
		RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "emote_refresh_duration_seconds", Help: "Catalog refresh duration seconds", Buckets: prometheus.DefBuckets})
		CatalogSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "emote_catalog_size", Help: "Number of emotes in the current catalog version"})
	})
}

// SetCatalogSize records the entry count of the current catalog version.
func SetCatalogSize(n int) {
	if CatalogSizeGauge != nil {
		CatalogSizeGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ScrapesStarted     prometheus.Counter
	ScrapesFailed      prometheus.Counter
	LinksFound         prometheus.Counter
	InsertsSucceeded   prometheus.Counter
	InsertsFailed      prometheus.Counter
	DownloadsSucceeded prometheus.Counter
	DownloadsFailed    prometheus.Counter
	UploadsSucceeded   prometheus.Counter
	UploadsFailed      prometheus.Counter
	PlaylistsCreated   prometheus.Counter

	// Histograms (seconds)
	ScrapeDuration   prometheus.Observer
	DownloadDuration prometheus.Observer
	UploadDuration   prometheus.Observer

	// Gauges
	ActiveScrapesGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ScrapesStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_scrapes_started_total", Help: "Number of scrape invocations started"})
		ScrapesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_scrapes_failed_total", Help: "Number of scrape invocations that aborted"})
		LinksFound = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_links_found_total", Help: "Number of links captured after dedup"})
		InsertsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_playlist_inserts_succeeded_total", Help: "Number of playlist item inserts that succeeded"})
		InsertsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_playlist_inserts_failed_total", Help: "Number of playlist item inserts that failed after retries"})
		DownloadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_media_downloads_succeeded_total", Help: "Number of social media downloads that succeeded"})
		DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_media_downloads_failed_total", Help: "Number of social media downloads that failed"})
		UploadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_media_uploads_succeeded_total", Help: "Number of media re-uploads that succeeded"})
		UploadsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_media_uploads_failed_total", Help: "Number of media re-uploads that failed"})
		PlaylistsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_playlists_created_total", Help: "Number of playlists created"})
		ScrapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_scrape_duration_seconds", Help: "End-to-end scrape invocation duration seconds", Buckets: prometheus.DefBuckets})
		DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_media_download_duration_seconds", Help: "Media download duration seconds", Buckets: prometheus.DefBuckets})
		UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_media_upload_duration_seconds", Help: "Media upload duration seconds", Buckets: prometheus.DefBuckets})
		ActiveScrapesGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_active_scrapes", Help: "Scrape invocations currently in flight"})
	})
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

// Package pipeline runs one scrape invocation end to end: collect links from
// channel history, resolve each to a hosted video id, publish them into a
// fresh playlist, and summarize the outcome. Processing is strictly
// sequential; per-item failures are collected, never fatal.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"playlistbot/retry"
	"playlistbot/scrape"
	"playlistbot/telemetry"
)

// VideoAPI is the hosting-side surface the pipeline needs. Implemented by
// youtubeapi.API; mocked in tests.
type VideoAPI interface {
	CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error)
	InsertItem(ctx context.Context, playlistID, videoID string) error
	ListItems(ctx context.Context, playlistID string, max int64) ([]string, error)
	Upload(ctx context.Context, path, title, description string) (string, error)
}

// Downloader fetches a social media post's video to a local file. The cleanup
// function removes whatever the download left on disk.
type Downloader interface {
	Download(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// Summary is the terminal state of one invocation, rendered for the user.
type Summary struct {
	PlaylistID  string
	Title       string
	Description string
	URL         string
	LinksFound  int
	Added       int
	Failures    []FailureRecord
}

type Pipeline struct {
	API          VideoAPI
	Downloader   Downloader
	InsertPolicy retry.Policy
	UploadPolicy retry.Policy

	log *slog.Logger
}

func New(api VideoAPI, dl Downloader, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		API:          api,
		Downloader:   dl,
		InsertPolicy: retry.DefaultPolicy(),
		UploadPolicy: retry.UploadPolicy(),
		log:          logger.With(slog.String("component", "pipeline")),
	}
}

// Run executes scrape → resolve → publish for one command invocation.
// A nil error with Summary.PlaylistID == "" means the window held no links.
func (p *Pipeline) Run(ctx context.Context, hist scrape.HistoryIterator, botID, channelName string, win scrape.TimeWindow) (*Summary, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline", "scrape_invocation",
		attribute.String("channel", channelName), attribute.String("date", win.DateLabel()))
	defer span.End()

	telemetry.ScrapesStarted.Inc()
	telemetry.ActiveScrapesGauge.Inc()
	defer telemetry.ActiveScrapesGauge.Dec()
	start := time.Now()
	defer func() { telemetry.ScrapeDuration.Observe(time.Since(start).Seconds()) }()

	logger := p.log.With(slog.String("channel", channelName), slog.String("date", win.DateLabel()))
	if corr := telemetry.GetCorrelation(ctx); corr != "" {
		logger = logger.With(slog.String("corr", corr))
	}

	links, err := scrape.Collect(ctx, hist, botID, win)
	if err != nil {
		telemetry.ScrapesFailed.Inc()
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("collect history: %w", err)
	}
	telemetry.LinksFound.Add(float64(len(links)))
	logger.Info("links collected", slog.Int("count", len(links)))
	if len(links) == 0 {
		return &Summary{LinksFound: 0}, nil
	}

	sum := &Summary{
		LinksFound:  len(links),
		Title:       fmt.Sprintf("Discord Shared Links %s", win.DateLabel()),
		Description: fmt.Sprintf("Links shared in #%s on %s.", channelName, win.DateLabel()),
	}
	playlistID, err := p.createPlaylist(ctx, sum.Title, sum.Description)
	if err != nil {
		telemetry.ScrapesFailed.Inc()
		telemetry.RecordError(span, err)
		return nil, err
	}
	sum.PlaylistID = playlistID
	sum.URL = "https://www.youtube.com/playlist?list=" + playlistID
	telemetry.PlaylistsCreated.Inc()
	logger.Info("playlist created", slog.String("playlist_id", playlistID), slog.String("title", sum.Title))

	added := map[string]bool{}
	for _, link := range links {
		if err := p.processLink(ctx, logger, link, playlistID, win, added, sum); err != nil {
			// only quota exhaustion and dead credentials propagate; everything else was recorded
			telemetry.ScrapesFailed.Inc()
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	sum.Added = len(added)
	logger.Info("invocation complete",
		slog.Int("links", sum.LinksFound),
		slog.Int("added", sum.Added),
		slog.Int("failed", len(sum.Failures)),
		slog.Duration("duration", time.Since(start)))
	return sum, nil
}

func (p *Pipeline) createPlaylist(ctx context.Context, title, description string) (string, error) {
	var id string
	err := retry.Do(ctx, p.InsertPolicy, nil, func(ctx context.Context) error {
		var err error
		id, err = p.API.CreatePlaylist(ctx, title, description, "private")
		return err
	})
	if err != nil {
		if aerr := abortErr(err); aerr != nil {
			return "", aerr
		}
		return "", fmt.Errorf("%w: %v", ErrPlaylistCreateFailed, err)
	}
	return id, nil
}

// processLink resolves one link to zero or more video ids and inserts them.
// Returns an error only for quota exhaustion or a dead credential; everything
// else lands in sum.Failures and the batch continues.
func (p *Pipeline) processLink(ctx context.Context, logger *slog.Logger, link scrape.LinkRecord, playlistID string, win scrape.TimeWindow, added map[string]bool, sum *Summary) error {
	switch link.Kind {
	case scrape.KindVideo:
		id, ok := scrape.VideoID(link.URL)
		if !ok {
			// classified as video but no id extractable: treat as playlist ref
			if plID, ok := scrape.PlaylistID(link.URL); ok {
				return p.expandPlaylist(ctx, logger, link, plID, playlistID, added, sum)
			}
			sum.Failures = append(sum.Failures, FailureRecord{Link: link.URL, Reason: "no video id in link"})
			return nil
		}
		return p.insert(ctx, logger, link, id, playlistID, added, sum)

	case scrape.KindPlaylistRef:
		plID, ok := scrape.PlaylistID(link.URL)
		if !ok {
			sum.Failures = append(sum.Failures, FailureRecord{Link: link.URL, Reason: "no playlist id in link"})
			return nil
		}
		return p.expandPlaylist(ctx, logger, link, plID, playlistID, added, sum)

	case scrape.KindSocialMedia:
		return p.reupload(ctx, logger, link, playlistID, win, added, sum)

	default:
		sum.Failures = append(sum.Failures, FailureRecord{Link: link.URL, Reason: "unknown link kind"})
		return nil
	}
}

// expandPlaylist enumerates the first page (up to 50 items) of a source
// playlist and inserts each video, subject to the shared dedup set. Deeper
// pagination is a known limitation.
func (p *Pipeline) expandPlaylist(ctx context.Context, logger *slog.Logger, link scrape.LinkRecord, sourceID, playlistID string, added map[string]bool, sum *Summary) error {
	var ids []string
	err := retry.Do(ctx, p.InsertPolicy, nil, func(ctx context.Context) error {
		var err error
		ids, err = p.API.ListItems(ctx, sourceID, 50)
		return err
	})
	if err != nil {
		if aerr := abortErr(err); aerr != nil {
			return aerr
		}
		logger.Warn("source playlist listing failed", slog.String("link", link.URL), slog.String("source_playlist", sourceID), slog.Any("err", err))
		sum.Failures = append(sum.Failures, FailureRecord{Link: link.URL, AttemptedID: sourceID, Reason: "playlist listing failed: " + err.Error()})
		return nil
	}
	for _, id := range ids {
		if err := p.insert(ctx, logger, link, id, playlistID, added, sum); err != nil {
			return err
		}
	}
	return nil
}

// reupload downloads the social media post's video and uploads it as a new
// unlisted video, then inserts the returned id like any other video.
func (p *Pipeline) reupload(ctx context.Context, logger *slog.Logger, link scrape.LinkRecord, playlistID string, win scrape.TimeWindow, added map[string]bool, sum *Summary) error {
	dlStart := time.Now()
	path, cleanup, err := p.Downloader.Download(ctx, link.URL)
	if err != nil {
		telemetry.DownloadsFailed.Inc()
		logger.Warn("media download failed", slog.String("link", link.URL), slog.Any("err", err))
		sum.Failures = append(sum.Failures, FailureRecord{Link: link.URL, Reason: "download failed: " + err.Error()})
		return nil
	}
	defer cleanup()
	telemetry.DownloadsSucceeded.Inc()
	telemetry.DownloadDuration.Observe(time.Since(dlStart).Seconds())

	title := fmt.Sprintf("Shared by %s on %s", link.Author, win.DateLabel())
	description := "Re-uploaded from " + link.URL
	upStart := time.Now()
	var videoID string
	err = retry.Do(ctx, p.UploadPolicy, nil, func(ctx context.Context) error {
		var err error
		videoID, err = p.API.Upload(ctx, path, title, description)
		return err
	})
	if err != nil {
		telemetry.UploadsFailed.Inc()
		if aerr := abortErr(err); aerr != nil {
			return aerr
		}
		logger.Warn("media upload failed", slog.String("link", link.URL), slog.Any("err", err))
		sum.Failures = append(sum.Failures, FailureRecord{Link: link.URL, Reason: "upload failed: " + err.Error()})
		return nil
	}
	telemetry.UploadsSucceeded.Inc()
	telemetry.UploadDuration.Observe(time.Since(upStart).Seconds())
	logger.Info("media re-uploaded", slog.String("link", link.URL), slog.String("video_id", videoID))
	return p.insert(ctx, logger, link, videoID, playlistID, added, sum)
}

// insert adds one video id to the target playlist unless already present in
// the dedup set. A failed insert after retries becomes a FailureRecord.
func (p *Pipeline) insert(ctx context.Context, logger *slog.Logger, link scrape.LinkRecord, videoID, playlistID string, added map[string]bool, sum *Summary) error {
	if added[videoID] {
		return nil
	}
	err := retry.Do(ctx, p.InsertPolicy, nil, func(ctx context.Context) error {
		return p.API.InsertItem(ctx, playlistID, videoID)
	})
	if err != nil {
		telemetry.InsertsFailed.Inc()
		if aerr := abortErr(err); aerr != nil {
			return aerr
		}
		logger.Warn("playlist insert failed", slog.String("link", link.URL), slog.String("video_id", videoID), slog.Any("err", err))
		sum.Failures = append(sum.Failures, FailureRecord{Link: link.URL, AttemptedID: videoID, Reason: "insert failed: " + err.Error()})
		return nil
	}
	added[videoID] = true
	telemetry.InsertsSucceeded.Inc()
	return nil
}

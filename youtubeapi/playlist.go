package youtubeapi

import (
	"context"
	"fmt"
	"os"

	yt "google.golang.org/api/youtube/v3"
)

// API adapts a YouTube Data API client to the narrow surface the pipeline
// needs: create playlist, insert item, list source playlist items, upload.
type API struct {
	svc *yt.Service
}

func NewAPI(svc *yt.Service) *API {
	return &API{svc: svc}
}

// CreatePlaylist creates a fresh playlist and returns its id. An empty id in
// the response is treated as a failure; callers abort the invocation on error.
func (a *API) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	if privacy == "" {
		privacy = "private"
	}
	pl := &yt.Playlist{
		Snippet: &yt.PlaylistSnippet{
			Title:           title,
			Description:     description,
			Tags:            []string{"Discord", "YouTube", "Playlist"},
			DefaultLanguage: "en",
		},
		Status: &yt.PlaylistStatus{PrivacyStatus: privacy},
	}
	res, err := a.svc.Playlists.Insert([]string{"snippet", "status"}, pl).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("playlist insert: %w", err)
	}
	if res.Id == "" {
		return "", fmt.Errorf("playlist insert: empty id in response")
	}
	return res.Id, nil
}

// InsertItem appends a video to the playlist.
func (a *API) InsertItem(ctx context.Context, playlistID, videoID string) error {
	item := &yt.PlaylistItem{
		Snippet: &yt.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &yt.ResourceId{Kind: "youtube#video", VideoId: videoID},
		},
	}
	_, err := a.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("playlist item insert %s: %w", videoID, err)
	}
	return nil
}

// ListItems returns the video ids of a source playlist's first page, up to
// max (the API caps a page at 50). Deeper pages are not fetched.
func (a *API) ListItems(ctx context.Context, playlistID string, max int64) ([]string, error) {
	if max <= 0 || max > 50 {
		max = 50
	}
	res, err := a.svc.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("playlist items list %s: %w", playlistID, err)
	}
	ids := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		if it.ContentDetails != nil && it.ContentDetails.VideoId != "" {
			ids = append(ids, it.ContentDetails.VideoId)
		}
	}
	return ids, nil
}

// Upload pushes a local media file as a new unlisted video and returns its id.
func (a *API) Upload(ctx context.Context, path, title, description string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer f.Close()
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{Title: title, Description: description},
		Status:  &yt.VideoStatus{PrivacyStatus: "unlisted"},
	}
	res, err := a.svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("video upload: %w", err)
	}
	if res.Id == "" {
		return "", fmt.Errorf("video upload: empty id in response")
	}
	return res.Id, nil
}

// PlaylistURL renders the shareable link for a created playlist.
func PlaylistURL(id string) string {
	return "https://www.youtube.com/playlist?list=" + id
}

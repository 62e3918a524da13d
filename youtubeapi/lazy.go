package youtubeapi

import "context"

// Lazy defers building the authenticated API client to the first call of each
// method, so a missing or rejected credential fails the invocation that needs
// it (as ErrAuthenticationFailed) instead of failing process startup.
type Lazy struct {
	Auth *Service
}

func (l *Lazy) api(ctx context.Context) (*API, error) {
	svc, err := l.Auth.Client(ctx)
	if err != nil {
		return nil, err
	}
	return NewAPI(svc), nil
}

func (l *Lazy) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	a, err := l.api(ctx)
	if err != nil {
		return "", err
	}
	return a.CreatePlaylist(ctx, title, description, privacy)
}

func (l *Lazy) InsertItem(ctx context.Context, playlistID, videoID string) error {
	a, err := l.api(ctx)
	if err != nil {
		return err
	}
	return a.InsertItem(ctx, playlistID, videoID)
}

func (l *Lazy) ListItems(ctx context.Context, playlistID string, max int64) ([]string, error) {
	a, err := l.api(ctx)
	if err != nil {
		return nil, err
	}
	return a.ListItems(ctx, playlistID, max)
}

func (l *Lazy) Upload(ctx context.Context, path, title, description string) (string, error) {
	a, err := l.api(ctx)
	if err != nil {
		return "", err
	}
	return a.Upload(ctx, path, title, description)
}

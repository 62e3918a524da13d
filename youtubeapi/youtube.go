// Package youtubeapi wraps Google OAuth2 client config and the YouTube Data API
// for playlist publishing and media re-upload. Credentials come from an
// operator-supplied client secret file; the token is cached on disk via the
// TokenStore interface so it can be silently refreshed between invocations.
package youtubeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// ErrAuthenticationFailed marks an unrecoverable credential state: no cached
// token, a refresh the server rejected, and no consent flow available.
var ErrAuthenticationFailed = errors.New("youtube authentication failed")

// DefaultScopes covers playlist management and media upload.
var DefaultScopes = []string{"https://www.googleapis.com/auth/youtube.force-ssl"}

// TokenStore persists the OAuth token between invocations. Implementations
// follow last-writer-wins; no locking beyond the filesystem's.
type TokenStore interface {
	Save(ctx context.Context, tok *oauth2.Token) error
	Load(ctx context.Context) (*oauth2.Token, error)
	Clear(ctx context.Context) error
}

// ConsentFunc runs the interactive consent flow (an external collaborator:
// the /auth/youtube endpoints, or any out-of-band exchange).
type ConsentFunc func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)

type Service struct {
	oauth   *oauth2.Config
	store   TokenStore
	consent ConsentFunc
}

// New builds a Service from an installed-app client secret file.
func New(clientSecretFile string, store TokenStore, consent ConsentFunc, scopes ...string) (*Service, error) {
	b, err := os.ReadFile(clientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret: %w", err)
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}
	return &Service{oauth: cfg, store: store, consent: consent}, nil
}

// NewFromConfig wires an explicit oauth2 config; used by tests.
func NewFromConfig(cfg *oauth2.Config, store TokenStore, consent ConsentFunc) *Service {
	return &Service{oauth: cfg, store: store, consent: consent}
}

// AuthCodeURL returns the consent URL for the callback-based flow.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and persists it.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	return tok, nil
}

// TokenState describes the cached credential for status reporting.
func (s *Service) TokenState(ctx context.Context) string {
	tok, err := s.store.Load(ctx)
	if err != nil || tok == nil {
		return "absent"
	}
	if tok.Expiry.IsZero() || time.Until(tok.Expiry) > 0 {
		return "valid"
	}
	if tok.RefreshToken != "" {
		return "expired"
	}
	return "expired"
}

// token returns a usable token: cached if still valid, silently refreshed
// when possible, otherwise obtained via the consent flow. A token the server
// rejects (scope change, revocation) clears the cache and forces re-consent
// instead of crashing the invocation.
func (s *Service) token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if tok != nil && tok.Valid() {
		return tok, nil
	}
	if tok != nil && tok.RefreshToken != "" {
		fresh, err := s.oauth.TokenSource(ctx, tok).Token()
		if err == nil {
			if err := s.store.Save(ctx, fresh); err != nil {
				return nil, fmt.Errorf("persist refreshed token: %w", err)
			}
			return fresh, nil
		}
		if !rejectedByServer(err) {
			return nil, fmt.Errorf("%w: refresh: %v", ErrAuthenticationFailed, err)
		}
		// stale grant or scope change: drop the cache and fall through to consent
		_ = s.store.Clear(ctx)
	}
	if s.consent == nil {
		return nil, fmt.Errorf("%w: no cached credential; complete the consent flow", ErrAuthenticationFailed)
	}
	fresh, err := s.consent(ctx, s.oauth)
	if err != nil {
		return nil, fmt.Errorf("%w: consent: %v", ErrAuthenticationFailed, err)
	}
	if err := s.store.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	return fresh, nil
}

// rejectedByServer distinguishes a definitive server-side rejection
// (invalid_grant, invalid_scope) from transient refresh failures.
func rejectedByServer(err error) bool {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		return rErr.ErrorCode == "invalid_grant" || rErr.ErrorCode == "invalid_scope"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "invalid_scope")
}

// Client returns an authenticated YouTube Data API client.
func (s *Service) Client(ctx context.Context) (*yt.Service, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return yt.NewService(ctx, option.WithHTTPClient(s.oauth.Client(ctx, tok)))
}

// RefreshIfExpiring refreshes and persists the cached token when its remaining
// lifetime falls inside window. Used by the background refresher; missing or
// refresh-less tokens are left alone.
func (s *Service) RefreshIfExpiring(ctx context.Context, window time.Duration) error {
	tok, err := s.store.Load(ctx)
	if err != nil || tok == nil || tok.RefreshToken == "" {
		return err
	}
	if !tok.Expiry.IsZero() && time.Until(tok.Expiry) > window {
		return nil
	}
	fresh, err := s.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		return err
	}
	return s.store.Save(ctx, fresh)
}

// FileTokenStore keeps the token as JSON at a fixed path (token.json).
type FileTokenStore struct {
	Path string
}

func (f *FileTokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	// write-then-rename so a crashed writer never leaves a torn cache
	tmp := f.Path + ".tmp"
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileTokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token cache: %w", err)
	}
	return &tok, nil
}

func (f *FileTokenStore) Clear(ctx context.Context) error {
	err := os.Remove(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

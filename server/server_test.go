package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"

	"playlistbot/youtubeapi"
)

type memTokenStore struct {
	mu  sync.Mutex
	tok *oauth2.Token
}

func (m *memTokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = tok
	return nil
}

func (m *memTokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok, nil
}

func (m *memTokenStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = nil
	return nil
}

func newTestHandlers(t *testing.T, tokenURL string, status StatusFunc) (*Handlers, *memTokenStore) {
	t.Helper()
	store := &memTokenStore{}
	cfg := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/auth/youtube/callback",
		Scopes:       youtubeapi.DefaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/auth",
			TokenURL: tokenURL,
		},
	}
	return NewHandlers(youtubeapi.NewFromConfig(cfg, store, nil), status), store
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandlers(t, "https://unused.example.com/token", nil)
	rec := httptest.NewRecorder()
	NewMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestStatus(t *testing.T) {
	h, _ := newTestHandlers(t, "https://unused.example.com/token", func(ctx context.Context) Status {
		return Status{GatewayConnected: true, TokenState: "valid"}
	})
	rec := httptest.NewRecorder()
	NewMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.GatewayConnected || st.TokenState != "valid" {
		t.Errorf("status = %+v", st)
	}
}

func TestOAuthStartRedirects(t *testing.T) {
	h, _ := newTestHandlers(t, "https://unused.example.com/token", nil)
	rec := httptest.NewRecorder()
	NewMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/youtube/start", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	q := loc.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("state") == "" {
		t.Error("redirect is missing the state parameter")
	}
}

func TestOAuthCallbackRejectsUnknownState(t *testing.T) {
	h, _ := newTestHandlers(t, "https://unused.example.com/token", nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?state=bogus&code=abc", nil)
	NewMux(h).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestOAuthCallbackExchangesAndPersists(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	h, store := newTestHandlers(t, tokenSrv.URL, nil)
	mux := NewMux(h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/youtube/start", nil))
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	state := loc.Query().Get("state")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?state="+state+"&code=auth-code", nil)
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "stored") {
		t.Errorf("body = %q", rec.Body.String())
	}
	tok, _ := store.Load(context.Background())
	if tok == nil || tok.AccessToken != "at-1" {
		t.Errorf("token not persisted: %+v", tok)
	}

	// state is single-use
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?state="+state+"&code=auth-code", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("replayed state accepted, status = %d", rec.Code)
	}
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	h, _ := newTestHandlers(t, "https://unused.example.com/token", nil)
	mux := NewMux(h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/youtube/start", nil))
	loc, _ := url.Parse(rec.Header().Get("Location"))
	state := loc.Query().Get("state")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?state="+state, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

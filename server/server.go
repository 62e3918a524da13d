// Package server exposes the HTTP sidecar: health and status probes, the
// Prometheus metrics endpoint, and the YouTube OAuth consent-callback pair
// that seeds the token cache.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"playlistbot/youtubeapi"
)

// StatusFunc supplies the current bot status for /status.
type StatusFunc func(ctx context.Context) Status

type Status struct {
	GatewayConnected bool   `json:"gateway_connected"`
	TokenState       string `json:"token_state"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

// Handlers carries the mux dependencies.
type Handlers struct {
	auth   *youtubeapi.Service
	status StatusFunc
	start  time.Time

	mu     sync.Mutex
	states map[string]time.Time
}

func NewHandlers(auth *youtubeapi.Service, status StatusFunc) *Handlers {
	return &Handlers{
		auth:   auth,
		status: status,
		start:  time.Now(),
		states: map[string]time.Time{},
	}
}

// NewMux returns the HTTP handler with all routes.
func NewMux(h *Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/status", h.HandleStatus)
	mux.HandleFunc("/auth/youtube/start", h.HandleOAuthStart)
	mux.HandleFunc("/auth/youtube/callback", h.HandleOAuthCallback)
	return mux
}

// HandleHealthz responds to liveness probes.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleStatus reports gateway and credential state as JSON.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := Status{UptimeSeconds: int64(time.Since(h.start).Seconds())}
	if h.status != nil {
		st = h.status(r.Context())
		st.UptimeSeconds = int64(time.Since(h.start).Seconds())
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// HandleOAuthStart redirects the operator to Google's consent page.
func (h *Handlers) HandleOAuthStart(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	h.mu.Lock()
	h.states[state] = time.Now().Add(10 * time.Minute)
	h.mu.Unlock()
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// HandleOAuthCallback exchanges the authorization code and persists the token.
func (h *Handlers) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	h.mu.Lock()
	deadline, ok := h.states[state]
	delete(h.states, state)
	h.mu.Unlock()
	if !ok || time.Now().After(deadline) {
		http.Error(w, "invalid or expired state", http.StatusBadRequest)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	if _, err := h.auth.Exchange(r.Context(), code); err != nil {
		slog.Error("oauth exchange failed", slog.Any("err", err))
		http.Error(w, "exchange failed", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("YouTube credential stored. You can close this tab."))
}

// Start runs the HTTP server until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, addr string, h *Handlers) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

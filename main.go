// Command playlistbot runs the Discord playlist bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to the Discord gateway and registers the /scrape command.
//   - Runs the scrape pipeline on demand: collect links from channel history,
//     publish them into a fresh YouTube playlist, re-upload social media clips.
//   - Keeps the YouTube credential fresh with a background refresher.
//   - Exposes a minimal HTTP server with /healthz, /status, /metrics, and the
//     OAuth consent endpoints.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"playlistbot/config"
	"playlistbot/discord"
	"playlistbot/oauth"
	"playlistbot/pipeline"
	"playlistbot/server"
	"playlistbot/telemetry"
	"playlistbot/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("playlistbot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// YouTube auth. The credential itself may be absent at startup; each
	// invocation fails with a user-facing auth message until the consent flow
	// at /auth/youtube/start has been completed.
	auth, err := youtubeapi.New(cfg.ClientSecretFile, &youtubeapi.FileTokenStore{Path: cfg.TokenFile}, nil)
	if err != nil {
		slog.Error("youtube client config failed", slog.Any("err", err), slog.String("file", cfg.ClientSecretFile))
		os.Exit(1)
	}
	oauth.StartRefresher(ctx, auth, 10*time.Minute, 20*time.Minute)

	// Pipeline
	pipe := pipeline.New(&youtubeapi.Lazy{Auth: auth}, &pipeline.YTDLP{Dir: cfg.DataDir}, slog.Default())
	pipe.InsertPolicy.Initial = cfg.RetryInitialBackoff
	pipe.InsertPolicy.Max = cfg.RetryMaxBackoff
	pipe.UploadPolicy.Max = cfg.RetryMaxBackoff

	// Discord bot
	bot, err := discord.New(cfg, pipe, slog.Default())
	if err != nil {
		slog.Error("discord session init failed", slog.Any("err", err))
		os.Exit(1)
	}

	// HTTP sidecar
	handlers := server.NewHandlers(auth, func(ctx context.Context) server.Status {
		return server.Status{
			GatewayConnected: bot.Connected(),
			TokenState:       auth.TokenState(ctx),
		}
	})
	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, handlers); err != nil {
			slog.Error("http server failed", slog.Any("err", err))
			stop()
		}
	}()

	if err := bot.Start(ctx); err != nil {
		slog.Error("bot stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

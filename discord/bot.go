// Package discord hosts the bot's command surface: the /scrape slash command
// with channel-name autocomplete, the legacy -ls prefix form, and the summary
// messages posted back to the invoking channel.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"playlistbot/config"
	"playlistbot/pipeline"
	"playlistbot/scrape"
)

// ErrChannelNotFound is surfaced to the user when no text channel or active
// thread matches the requested name.
var ErrChannelNotFound = errors.New("channel not found")

// commandHandler runs one slash command invocation.
type commandHandler func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate)

// Bot wires the Discord session to the scrape pipeline. The dispatch table is
// built once in New and passed by reference; no package-level registration.
type Bot struct {
	session  *discordgo.Session
	cfg      *config.Config
	pipe     *pipeline.Pipeline
	handlers map[string]commandHandler
	log      *slog.Logger

	// runCtx carries the process lifetime into gateway callbacks.
	runCtx context.Context
}

func New(cfg *config.Config, pipe *pipeline.Pipeline, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session: s,
		cfg:     cfg,
		pipe:    pipe,
		log:     logger.With(slog.String("component", "discord")),
	}
	b.handlers = map[string]commandHandler{
		scrapeCommandName: b.handleScrape,
	}

	s.AddHandler(b.onReady)
	s.AddHandler(b.onInteraction)
	s.AddHandler(b.onMessage)
	return b, nil
}

// Start opens the gateway connection, registers slash commands, and blocks
// until ctx is done. The session is closed on the way out.
func (b *Bot) Start(ctx context.Context) error {
	b.runCtx = ctx
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.log.Warn("session close", slog.Any("err", err))
		}
	}()

	appID := b.session.State.User.ID
	for _, cmd := range commandDefinitions() {
		if _, err := b.session.ApplicationCommandCreate(appID, b.cfg.GuildID, cmd); err != nil {
			return fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
		b.log.Info("command registered", slog.String("command", cmd.Name), slog.String("guild", b.cfg.GuildID))
	}

	<-ctx.Done()
	b.log.Info("shutting down gateway")
	return nil
}

// Connected reports whether the gateway session is up; used by /healthz.
func (b *Bot) Connected() bool {
	return b.session != nil && b.session.State != nil && b.session.State.User != nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("logged in", slog.String("user", r.User.Username), slog.String("id", r.User.ID))
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := b.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		h, ok := b.handlers[data.Name]
		if !ok {
			b.log.Warn("unknown command", slog.String("command", data.Name))
			return
		}
		h(ctx, s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(s, i)
	}
}

// botUserID is the bot's own account id; its messages never contribute links.
func (b *Bot) botUserID() string {
	if b.session.State != nil && b.session.State.User != nil {
		return b.session.State.User.ID
	}
	return ""
}

// window parses the optional date argument into the scrape window.
func (b *Bot) window(date string) (scrape.TimeWindow, error) {
	return scrape.WindowFor(timeNow(), date, b.cfg.Location())
}

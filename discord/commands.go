package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"playlistbot/telemetry"
)

const (
	scrapeCommandName = "scrape"
	legacyPrefix      = "-ls"
)

// swapped in tests
var timeNow = time.Now

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        scrapeCommandName,
			Description: "Collect links shared in a channel into a YouTube playlist",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "channel_name",
					Description:  "Text channel or thread to scan",
					Required:     true,
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "date",
					Description: "Day to scan, YYYY-MM-DD (default: yesterday)",
					Required:    false,
				},
			},
		},
	}
}

func (b *Bot) handleScrape(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	// acknowledge immediately; the scrape takes far longer than the 3s
	// interaction deadline
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		b.log.Error("interaction ack failed", slog.Any("err", err))
		return
	}
	reply := func(msg string) {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: msg}); err != nil {
			b.log.Error("followup failed", slog.Any("err", err))
		}
	}

	var channelName, date string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "channel_name":
			channelName = opt.StringValue()
		case "date":
			date = opt.StringValue()
		}
	}
	b.runScrape(ctx, s, i.GuildID, channelName, date, reply)
}

// runScrape is shared by the slash command and the legacy prefix form.
func (b *Bot) runScrape(ctx context.Context, s *discordgo.Session, guildID, channelName, date string, reply func(string)) {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	logger := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "discord"),
		slog.String("channel_name", channelName))

	win, err := b.window(date)
	if err != nil {
		logger.Warn("bad date argument", slog.String("date", date), slog.Any("err", err))
		reply(userMessage(err))
		return
	}
	ch, err := b.resolveChannel(s, guildID, channelName)
	if err != nil {
		logger.Warn("channel resolution failed", slog.Any("err", err))
		reply(userMessage(err))
		return
	}

	hist := newChannelHistory(s, ch.ID, win)
	sum, err := b.pipe.Run(ctx, hist, b.botUserID(), ch.Name, win)
	if err != nil {
		logger.Error("scrape invocation failed", slog.Any("err", err))
		reply(userMessage(err))
		return
	}
	reply(formatSummary(sum, win))
}

// resolveChannel finds a guild text channel or active thread by name.
func (b *Bot) resolveChannel(s *discordgo.Session, guildID, name string) (*discordgo.Channel, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "#")
	if name == "" {
		return nil, fmt.Errorf("%w: empty channel name", ErrChannelNotFound)
	}
	for _, ch := range scrapeableChannels(s, guildID) {
		if strings.EqualFold(ch.Name, name) {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrChannelNotFound, name)
}

// scrapeableChannels lists the guild's text channels followed by its active
// threads. Errors degrade to an empty list; resolution then misses.
func scrapeableChannels(s *discordgo.Session, guildID string) []*discordgo.Channel {
	var out []*discordgo.Channel
	channels, err := s.GuildChannels(guildID)
	if err == nil {
		for _, ch := range channels {
			if ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews {
				out = append(out, ch)
			}
		}
	}
	if threads, err := s.GuildThreadsActive(guildID); err == nil && threads != nil {
		out = append(out, threads.Threads...)
	}
	return out
}

func (b *Bot) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != scrapeCommandName {
		return
	}
	var query string
	for _, opt := range data.Options {
		if opt.Name == "channel_name" && opt.Focused {
			query = opt.StringValue()
		}
	}
	choices := channelChoices(scrapeableChannels(s, i.GuildID), query)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		b.log.Warn("autocomplete respond failed", slog.Any("err", err))
	}
}

// channelChoices filters channels by prefix (falling back to substring) and
// caps the result at Discord's limit of 25 choices.
func channelChoices(channels []*discordgo.Channel, query string) []*discordgo.ApplicationCommandOptionChoice {
	query = strings.ToLower(strings.TrimPrefix(query, "#"))
	var prefixed, contained []*discordgo.Channel
	for _, ch := range channels {
		name := strings.ToLower(ch.Name)
		switch {
		case query == "" || strings.HasPrefix(name, query):
			prefixed = append(prefixed, ch)
		case strings.Contains(name, query):
			contained = append(contained, ch)
		}
	}
	sort.Slice(prefixed, func(i, j int) bool { return prefixed[i].Name < prefixed[j].Name })
	sort.Slice(contained, func(i, j int) bool { return contained[i].Name < contained[j].Name })

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 25)
	for _, ch := range append(prefixed, contained...) {
		if len(choices) == 25 {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: ch.Name, Value: ch.Name})
	}
	return choices
}

// onMessage serves the legacy -ls prefix surface.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == b.botUserID() {
		return
	}
	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, legacyPrefix) {
		return
	}
	ctx := b.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	fields := strings.Fields(content)
	if len(fields) < 2 || fields[1] != "scrape" {
		// any other -ls message just gets an ack, matching the original surface
		b.send(s, m.ChannelID, "Hello! Use `-ls scrape [channel]` or the /scrape command.")
		return
	}
	reply := func(msg string) { b.send(s, m.ChannelID, msg) }

	// optional channel argument; default is the invoking channel
	channelName := ""
	if len(fields) >= 3 {
		channelName = fields[2]
	} else if ch, err := s.Channel(m.ChannelID); err == nil {
		channelName = ch.Name
	}
	b.runScrape(ctx, s, m.GuildID, channelName, "", reply)
}

func (b *Bot) send(s *discordgo.Session, channelID, msg string) {
	if _, err := s.ChannelMessageSend(channelID, msg); err != nil {
		b.log.Error("message send failed", slog.String("channel_id", channelID), slog.Any("err", err))
	}
}

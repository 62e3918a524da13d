package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"playlistbot/scrape"
)

// messagePageSize is the API maximum per history page.
const messagePageSize = 100

// historyFetchLimit bounds how many messages one invocation will walk,
// mirroring the original surface's cap.
const historyFetchLimit = 1000

// channelHistory iterates a channel's messages newest first, paginating with
// the before-id cursor and stopping once messages fall behind the window
// start. Lazy, finite, and non-restartable.
type channelHistory struct {
	s         *discordgo.Session
	channelID string
	win       scrape.TimeWindow

	before  string
	buf     []*discordgo.Message
	pos     int
	fetched int
	done    bool
}

func newChannelHistory(s *discordgo.Session, channelID string, win scrape.TimeWindow) *channelHistory {
	return &channelHistory{s: s, channelID: channelID, win: win}
}

func (h *channelHistory) Next(ctx context.Context) (scrape.Message, bool, error) {
	for {
		if h.pos < len(h.buf) {
			m := h.buf[h.pos]
			h.pos++
			h.before = m.ID
			if m.Timestamp.Before(h.win.Start) {
				// history is newest-first; everything after this is older still
				h.done = true
				return scrape.Message{}, false, nil
			}
			author := ""
			authorName := ""
			if m.Author != nil {
				author = m.Author.ID
				authorName = m.Author.Username
			}
			return scrape.Message{
				AuthorID:   author,
				AuthorName: authorName,
				Content:    m.Content,
				Timestamp:  m.Timestamp,
			}, true, nil
		}
		if h.done || h.fetched >= historyFetchLimit {
			return scrape.Message{}, false, nil
		}
		page, err := h.s.ChannelMessages(h.channelID, messagePageSize, h.before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return scrape.Message{}, false, fmt.Errorf("fetch history: %w", err)
		}
		if len(page) == 0 {
			h.done = true
			return scrape.Message{}, false, nil
		}
		h.buf = page
		h.pos = 0
		h.fetched += len(page)
	}
}

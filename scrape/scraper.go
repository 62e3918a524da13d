// Package scrape turns a channel's message history into a deduplicated,
// order-stable set of link records bounded by a half-open time window.
package scrape

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Message is the platform-neutral view of one chat message.
type Message struct {
	AuthorID   string
	AuthorName string
	Content    string
	Timestamp  time.Time
}

// HistoryIterator yields messages lazily, newest first. It is finite and
// non-restartable; implementations stop once they pass the window start.
type HistoryIterator interface {
	Next(ctx context.Context) (msg Message, ok bool, err error)
}

// Collect drains the iterator and returns every link authored by someone other
// than the bot whose message timestamp falls inside win. Links are deduplicated
// by exact URL (first occurrence wins) and sorted ascending by URL so
// downstream processing order is deterministic.
func Collect(ctx context.Context, it HistoryIterator, botID string, win TimeWindow) ([]LinkRecord, error) {
	seen := map[string]LinkRecord{}
	for {
		msg, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if msg.AuthorID == botID {
			continue
		}
		if !win.Contains(msg.Timestamp) {
			continue
		}
		if !strings.Contains(msg.Content, "http") {
			continue
		}
		for _, token := range strings.Fields(msg.Content) {
			rec, ok := Classify(token, msg.AuthorName)
			if !ok {
				continue
			}
			if _, dup := seen[rec.URL]; dup {
				continue
			}
			seen[rec.URL] = rec
		}
	}
	out := make([]LinkRecord, 0, len(seen))
	for _, rec := range seen {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

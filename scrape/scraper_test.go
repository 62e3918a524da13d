package scrape

import (
	"context"
	"reflect"
	"testing"
	"time"
)

type sliceHistory struct {
	msgs []Message
	pos  int
}

func (h *sliceHistory) Next(ctx context.Context) (Message, bool, error) {
	if h.pos >= len(h.msgs) {
		return Message{}, false, nil
	}
	m := h.msgs[h.pos]
	h.pos++
	return m, true, nil
}

func testWindow() TimeWindow {
	return TimeWindow{
		Start: time.Date(2024, 3, 14, 0, 0, 0, 0, jst),
		End:   time.Date(2024, 3, 15, 0, 0, 0, 0, jst),
	}
}

func inWindow() time.Time { return time.Date(2024, 3, 14, 12, 0, 0, 0, jst) }

func TestCollectSkipsBotMessages(t *testing.T) {
	hist := &sliceHistory{msgs: []Message{
		{AuthorID: "bot", AuthorName: "bot", Content: "https://youtu.be/aaaaaaaaaaa", Timestamp: inWindow()},
		{AuthorID: "u1", AuthorName: "alice", Content: "https://youtu.be/bbbbbbbbbbb", Timestamp: inWindow()},
	}}
	links, err := Collect(context.Background(), hist, "bot", testWindow())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(links) != 1 || links[0].URL != "https://youtu.be/bbbbbbbbbbb" {
		t.Errorf("links = %+v, want only the non-bot link", links)
	}
}

func TestCollectWindowBounds(t *testing.T) {
	w := testWindow()
	hist := &sliceHistory{msgs: []Message{
		{AuthorID: "u1", AuthorName: "a", Content: "https://youtu.be/aaaaaaaaaaa", Timestamp: w.Start.Add(-time.Second)},
		{AuthorID: "u1", AuthorName: "a", Content: "https://youtu.be/bbbbbbbbbbb", Timestamp: w.Start},
		{AuthorID: "u1", AuthorName: "a", Content: "https://youtu.be/ccccccccccc", Timestamp: w.End},
	}}
	links, err := Collect(context.Background(), hist, "bot", w)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(links) != 1 || links[0].URL != "https://youtu.be/bbbbbbbbbbb" {
		t.Errorf("links = %+v, want only the message at window start", links)
	}
}

func TestCollectDedupFirstWinsAndSorted(t *testing.T) {
	hist := &sliceHistory{msgs: []Message{
		{AuthorID: "u1", AuthorName: "alice", Content: "look https://youtu.be/zzzzzzzzzzz", Timestamp: inWindow()},
		{AuthorID: "u2", AuthorName: "bob", Content: "again https://youtu.be/zzzzzzzzzzz", Timestamp: inWindow()},
		{AuthorID: "u2", AuthorName: "bob", Content: "https://youtu.be/aaaaaaaaaaa too", Timestamp: inWindow()},
	}}
	links, err := Collect(context.Background(), hist, "bot", testWindow())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := []string{}
	for _, l := range links {
		got = append(got, l.URL)
	}
	want := []string{"https://youtu.be/aaaaaaaaaaa", "https://youtu.be/zzzzzzzzzzz"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("urls = %v, want %v", got, want)
	}
	// first occurrence wins: the duplicate keeps alice's attribution
	if links[1].Author != "alice" {
		t.Errorf("duplicate author = %q, want alice (first seen)", links[1].Author)
	}
}

func TestCollectIdempotent(t *testing.T) {
	msgs := []Message{
		{AuthorID: "u1", AuthorName: "a", Content: "https://youtu.be/bbbbbbbbbbb https://youtu.be/aaaaaaaaaaa", Timestamp: inWindow()},
		{AuthorID: "u1", AuthorName: "a", Content: "https://youtu.be/aaaaaaaaaaa", Timestamp: inWindow()},
	}
	first, err := Collect(context.Background(), &sliceHistory{msgs: msgs}, "bot", testWindow())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	second, err := Collect(context.Background(), &sliceHistory{msgs: msgs}, "bot", testWindow())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Collect not idempotent: %+v vs %+v", first, second)
	}
}

func TestCollectMixedKindsAndMirrors(t *testing.T) {
	hist := &sliceHistory{msgs: []Message{
		{AuthorID: "u1", AuthorName: "a", Content: "https://vxtwitter.com/p/status/7 and https://x.com/p/status/7", Timestamp: inWindow()},
		{AuthorID: "u1", AuthorName: "a", Content: "https://www.youtube.com/playlist?list=PL42", Timestamp: inWindow()},
		{AuthorID: "u1", AuthorName: "a", Content: "no links here", Timestamp: inWindow()},
	}}
	links, err := Collect(context.Background(), hist, "bot", testWindow())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	// mirror and canonical collapse into one social record plus the playlist
	if len(links) != 2 {
		t.Fatalf("got %d links, want 2: %+v", len(links), links)
	}
	// sorted ascending by URL: www.youtube.com before x.com
	if links[0].Kind != KindPlaylistRef || links[1].Kind != KindSocialMedia {
		t.Errorf("kinds = %v, %v", links[0].Kind, links[1].Kind)
	}
}

package scrape

import (
	"errors"
	"testing"
	"time"
)

var jst = time.FixedZone("UTC+9", 9*60*60)

func TestWindowForDefaultYesterday(t *testing.T) {
	// 2024-03-15 10:30 JST -> window covers 2024-03-14 JST
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, jst)
	w, err := WindowFor(now, "", jst)
	if err != nil {
		t.Fatalf("WindowFor: %v", err)
	}
	wantStart := time.Date(2024, 3, 14, 0, 0, 0, 0, jst)
	wantEnd := time.Date(2024, 3, 15, 0, 0, 0, 0, jst)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantEnd) {
		t.Errorf("window = [%v, %v), want [%v, %v)", w.Start, w.End, wantStart, wantEnd)
	}
}

func TestWindowForCrossesUTCDate(t *testing.T) {
	// 01:00 UTC on the 15th is already the 15th 10:00 in UTC+9, so the
	// default window must still be the 14th in the offset zone.
	now := time.Date(2024, 3, 15, 1, 0, 0, 0, time.UTC)
	w, err := WindowFor(now, "", jst)
	if err != nil {
		t.Fatalf("WindowFor: %v", err)
	}
	if got := w.DateLabel(); got != "2024-03-14" {
		t.Errorf("DateLabel = %s, want 2024-03-14", got)
	}
}

func TestWindowForExplicitDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, jst)
	w, err := WindowFor(now, "2024-01-02", jst)
	if err != nil {
		t.Fatalf("WindowFor: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, jst)) {
		t.Errorf("Start = %v", w.Start)
	}
	if !w.End.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, jst)) {
		t.Errorf("End = %v", w.End)
	}
}

func TestWindowForBadDate(t *testing.T) {
	for _, date := range []string{"01-02-2024", "2024/01/02", "yesterday", "2024-13-40"} {
		_, err := WindowFor(time.Now(), date, jst)
		if !errors.Is(err, ErrInvalidDateFormat) {
			t.Errorf("WindowFor(%q) err = %v, want ErrInvalidDateFormat", date, err)
		}
	}
}

func TestContainsHalfOpen(t *testing.T) {
	w := TimeWindow{
		Start: time.Date(2024, 3, 14, 0, 0, 0, 0, jst),
		End:   time.Date(2024, 3, 15, 0, 0, 0, 0, jst),
	}
	if !w.Contains(w.Start) {
		t.Error("start instant should be included")
	}
	if w.Contains(w.End) {
		t.Error("end instant should be excluded")
	}
	if w.Contains(w.End.Add(-time.Nanosecond)) == false {
		t.Error("instant just before end should be included")
	}
}

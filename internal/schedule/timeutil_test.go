package schedule

import (
	"errors"
	"testing"
	"time"

	"imgbot/internal/storage"
)

func TestNextRepeat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		prev int64
		now  int64
		iv   storage.Interval
		want int64
	}{
		{name: "on time", prev: 100, now: 100, iv: storage.IntervalMinute, want: 160},
		{name: "slightly late", prev: 100, now: 130, iv: storage.IntervalMinute, want: 160},
		{name: "skips missed occurrences", prev: 100, now: 400, iv: storage.IntervalMinute, want: 460},
		{name: "exact boundary is not future", prev: 100, now: 160, iv: storage.IntervalMinute, want: 220},
		{name: "hourly", prev: 0, now: 0, iv: storage.IntervalHour, want: 3600},
		{name: "daily after long outage", prev: 0, now: 200000, iv: storage.IntervalDay, want: 259200},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := NextRepeat(tt.prev, tt.now, tt.iv); got != tt.want {
				t.Fatalf("NextRepeat(%d, %d, %s) = %d, want %d", tt.prev, tt.now, tt.iv, got, tt.want)
			}
			if got := NextRepeat(tt.prev, tt.now, tt.iv); got <= tt.now {
				t.Fatalf("NextRepeat result %d not after now %d", got, tt.now)
			}
		})
	}
}

func TestRunAtFromComponents(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	got, err := RunAtFromComponents(now, 0, 6, 20, 9, 30)
	if err != nil {
		t.Fatalf("valid future date rejected: %v", err)
	}
	want := time.Date(2026, time.June, 20, 9, 30, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}

	invalid := [][4]int{
		{2, 30, 10, 0},  // Feb 30
		{4, 31, 10, 0},  // Apr 31
		{13, 1, 10, 0},  // month 13 normalizes into next year
		{6, 15, 24, 0},  // hour 24 normalizes to next day
		{6, 15, 10, 60}, // minute 60 normalizes
	}
	for _, c := range invalid {
		if _, err := RunAtFromComponents(now, 0, c[0], c[1], c[2], c[3]); err == nil {
			t.Fatalf("components %v accepted", c)
		}
	}

	// Past instants are rejected, including "now" itself.
	if _, err := RunAtFromComponents(now, 0, 6, 15, 12, 0); err == nil {
		t.Fatal("non-future instant accepted")
	}
	if _, err := RunAtFromComponents(now, 0, 1, 1, 0, 0); err == nil {
		t.Fatal("past date accepted")
	}

	_, err = RunAtFromComponents(now, 0, 2, 30, 10, 0)
	var terr *TimeError
	if !errors.As(err, &terr) {
		t.Fatalf("error %T is not a TimeError", err)
	}
}

func TestNextOccurrence(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		hour   int
		minute int
		want   time.Time
	}{
		{name: "later today", hour: 18, minute: 5, want: time.Date(2026, time.June, 15, 18, 5, 0, 0, time.UTC)},
		{name: "one minute ago rolls to tomorrow", hour: 11, minute: 59, want: time.Date(2026, time.June, 16, 11, 59, 0, 0, time.UTC)},
		{name: "exactly now rolls to tomorrow", hour: 12, minute: 0, want: time.Date(2026, time.June, 16, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := NextOccurrence(now, tt.hour, tt.minute); got != tt.want.Unix() {
				t.Fatalf("NextOccurrence(%02d:%02d) = %d, want %d", tt.hour, tt.minute, got, tt.want.Unix())
			}
		})
	}
}

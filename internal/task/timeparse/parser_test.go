package timeparse

import (
	"reflect"
	"strconv"
	"testing"
	"time"
)

// Wednesday 2026-03-04 10:00 UTC.
var refNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func at(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2026, month, day, hour, minute, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		desc    string
		want    *time.Time
		matcher string
	}{
		{"Remind me to call John at 3 PM", "Call John", ptr(at(3, 4, 15, 0)), "hour"},
		{"schedule meeting tomorrow", "Meeting", ptr(at(3, 5, 9, 0)), "tomorrow"},
		{"wake up at 12am", "Wake up", ptr(at(3, 5, 0, 0)), "hour"},
		{"lunch at 12pm", "Lunch", ptr(at(3, 4, 12, 0)), "hour"},
		{"call mom at 9:30", "Call mom", ptr(at(3, 5, 9, 30)), "clock"},
		{"call mom at 10:00", "Call mom", ptr(at(3, 5, 10, 0)), "clock"},
		{"submit report at 4:45 pm", "Submit report", ptr(at(3, 4, 16, 45)), "clock"},
		{"stretch in 15 minutes", "Stretch", ptr(refNow.Add(15 * time.Minute)), "relative"},
		{"remind me after 2 hours to drink water", "Drink water", ptr(refNow.Add(2 * time.Hour)), "relative"},
		{"pay rent in 3 days", "Pay rent", ptr(at(3, 7, 10, 0)), "relative"},
		{"ping in 30 seconds", "Ping", ptr(refNow.Add(30 * time.Second)), "relative"},
		{"dentist tomorrow at 3pm", "Dentist", ptr(at(3, 5, 15, 0)), "tomorrow-at"},
		{"standup tomorrow at 9:15am", "Standup", ptr(at(3, 5, 9, 15)), "tomorrow-at"},
		{"standup tomorrow 8am", "Standup", ptr(at(3, 5, 8, 0)), "tomorrow-at"},
		{"gym next wednesday", "Gym", ptr(at(3, 11, 9, 0)), "next-weekday"},
		{"gym next Friday", "Gym", ptr(at(3, 6, 9, 0)), "next-weekday"},
		{"read tonight", "Read", ptr(refNow.Add(time.Hour)), "today"},
		{"task: file taxes today please", "File taxes", ptr(refNow.Add(time.Hour)), "today"},
		{"buy milk", "Buy milk", nil, ""},
		{"meeting at 25:00", "Meeting at 25:00", nil, ""},
		{"nap at 13pm", "Nap at 13pm", nil, ""},
	}
	for _, tc := range cases {
		got := Parse(tc.in, refNow)
		if got.Description != tc.desc {
			t.Fatalf("%q: description=%q want %q", tc.in, got.Description, tc.desc)
		}
		if got.Matcher != tc.matcher {
			t.Fatalf("%q: matcher=%q want %q", tc.in, got.Matcher, tc.matcher)
		}
		switch {
		case tc.want == nil && got.At != nil:
			t.Fatalf("%q: unexpected time %v", tc.in, *got.At)
		case tc.want != nil && got.At == nil:
			t.Fatalf("%q: no time resolved, want %v", tc.in, *tc.want)
		case tc.want != nil && !got.At.Equal(*tc.want):
			t.Fatalf("%q: at=%v want %v", tc.in, *got.At, *tc.want)
		}
	}
}

func TestMatcherOrder(t *testing.T) {
	t.Parallel()

	want := []string{"clock", "hour", "relative", "tomorrow-at", "tomorrow", "next-weekday", "today"}
	if got := New().Matchers(); !reflect.DeepEqual(got, want) {
		t.Fatalf("order=%v want %v", got, want)
	}
}

func TestFirstMatchWins(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		matcher string
	}{
		{"call at 3:30 pm or 4pm", "clock"},
		{"call at 4pm or 3:30 pm", "clock"},
		{"nap in 2 hours tomorrow", "relative"},
		{"plan next monday tonight", "next-weekday"},
		{"at 5pm tomorrow", "hour"},
	}
	for _, tc := range cases {
		if got := Parse(tc.in, refNow).Matcher; got != tc.matcher {
			t.Fatalf("%q: matcher=%q want %q", tc.in, got, tc.matcher)
		}
	}
}

func TestTwelveHourConversion(t *testing.T) {
	t.Parallel()

	midnight := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	for h := 1; h <= 12; h++ {
		for _, mer := range []string{"am", "pm"} {
			want := h
			switch {
			case mer == "am" && h == 12:
				want = 0
			case mer == "pm" && h != 12:
				want = h + 12
			}
			in := "x at " + strconv.Itoa(h) + mer
			got := Parse(in, midnight)
			if got.At == nil || got.At.Hour() != want {
				t.Fatalf("%q: got %v want hour %d", in, got.At, want)
			}
		}
	}
}

func TestPastTimeRollsForward(t *testing.T) {
	t.Parallel()

	for minute := 0; minute < 60; minute += 5 {
		now := time.Date(2026, 3, 4, 14, minute, 0, 0, time.UTC)
		got := Parse("x at 14:30", now)
		if got.At == nil {
			t.Fatalf("no time at minute %d", minute)
		}
		target := time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC)
		if !target.After(now) {
			target = target.AddDate(0, 0, 1)
		}
		if !got.At.Equal(target) {
			t.Fatalf("now=%v at=%v want %v", now, *got.At, target)
		}
		if !got.At.After(now) {
			t.Fatalf("resolved time %v not after now %v", *got.At, now)
		}
	}
}

func TestNextWeekdayStrictlyAfterToday(t *testing.T) {
	t.Parallel()

	names := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	for offset := range 7 {
		now := refNow.AddDate(0, 0, offset)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		for i, name := range names {
			got := Parse("gym next "+name, now)
			if got.At == nil {
				t.Fatalf("next %s: no time", name)
			}
			days := int(got.At.Sub(today).Hours() / 24)
			if days < 1 || days > 7 {
				t.Fatalf("now=%s next %s: %d days ahead", now.Weekday(), name, days)
			}
			if got.At.Weekday() != time.Weekday(i) || got.At.Hour() != 9 {
				t.Fatalf("next %s resolved to %v", name, *got.At)
			}
			if now.Weekday() == time.Weekday(i) && days != 7 {
				t.Fatalf("same weekday must be +7, got %d", days)
			}
		}
	}
}

func TestParseKeepsLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, loc)
	got := Parse("call at 3pm", now)
	if got.At == nil || got.At.Location() != loc || got.At.Hour() != 15 {
		t.Fatalf("got %v", got.At)
	}
}

func ptr(t time.Time) *time.Time { return &t }

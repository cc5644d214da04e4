package timeparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Match is a recognized time phrase: the byte span it occupies in the input
// and the absolute instant it resolves to.
type Match struct {
	Start int
	End   int
	At    time.Time
}

// Matcher recognizes one family of time phrases.
type Matcher interface {
	Name() string
	Match(text string, now time.Time) (Match, bool)
}

const defaultHour = 9

// DefaultMatchers returns the matchers in priority order. The first one that
// matches wins; later ones are not consulted.
func DefaultMatchers() []Matcher {
	return []Matcher{
		clockMatcher{},
		hourMatcher{},
		relativeMatcher{},
		tomorrowAtMatcher{},
		tomorrowMatcher{},
		nextWeekdayMatcher{},
		todayMatcher{},
	}
}

var (
	reClock      = regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2}):(\d{2})(?:\s*(am|pm))?\b`)
	reHour       = regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2})\s*(am|pm)\b`)
	reRelative   = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d+)\s*(second|minute|hour|day)s?\b`)
	reTomorrowAt = regexp.MustCompile(`(?i)\btomorrow\s+(at\s+)?(\d{1,2})(?::(\d{2}))?(?:\s*(am|pm))?\b`)
	reTomorrow   = regexp.MustCompile(`(?i)\btomorrow\b`)
	reNextDay    = regexp.MustCompile(`(?i)\bnext\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reToday      = regexp.MustCompile(`(?i)\b(today|tonight)\b`)
)

// clockMatcher handles "[at] HH:MM [am|pm]".
type clockMatcher struct{}

func (clockMatcher) Name() string { return "clock" }

func (clockMatcher) Match(text string, now time.Time) (Match, bool) {
	for _, idx := range reClock.FindAllStringSubmatchIndex(text, -1) {
		if anchoredToTomorrow(text, idx[0]) {
			continue
		}
		h, _ := strconv.Atoi(group(text, idx, 1))
		m, _ := strconv.Atoi(group(text, idx, 2))
		hour, ok := to24h(h, group(text, idx, 3))
		if !ok || m > 59 {
			continue
		}
		return Match{Start: idx[0], End: idx[1], At: nextTimeOfDay(now, hour, m)}, true
	}
	return Match{}, false
}

// hourMatcher handles "[at] HH am|pm".
type hourMatcher struct{}

func (hourMatcher) Name() string { return "hour" }

func (hourMatcher) Match(text string, now time.Time) (Match, bool) {
	for _, idx := range reHour.FindAllStringSubmatchIndex(text, -1) {
		// minutes of a clock ("9:05am") are not an hour
		if idx[0] > 0 && text[idx[0]-1] == ':' {
			continue
		}
		if anchoredToTomorrow(text, idx[0]) {
			continue
		}
		h, _ := strconv.Atoi(group(text, idx, 1))
		hour, ok := to24h(h, group(text, idx, 2))
		if !ok {
			continue
		}
		return Match{Start: idx[0], End: idx[1], At: nextTimeOfDay(now, hour, 0)}, true
	}
	return Match{}, false
}

// relativeMatcher handles "in|after N second|minute|hour|day[s]".
type relativeMatcher struct{}

func (relativeMatcher) Name() string { return "relative" }

func (relativeMatcher) Match(text string, now time.Time) (Match, bool) {
	for _, idx := range reRelative.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.ParseInt(group(text, idx, 1), 10, 64)
		if err != nil {
			continue
		}
		var at time.Time
		switch strings.ToLower(group(text, idx, 2)) {
		case "second":
			at, err = addUnits(now, n, time.Second)
		case "minute":
			at, err = addUnits(now, n, time.Minute)
		case "hour":
			at, err = addUnits(now, n, time.Hour)
		case "day":
			if n > math.MaxInt32 {
				continue
			}
			at = now.AddDate(0, 0, int(n))
		}
		if err != nil {
			continue
		}
		return Match{Start: idx[0], End: idx[1], At: at}, true
	}
	return Match{}, false
}

// tomorrowAtMatcher handles "tomorrow at HH[:MM] [am|pm]". Without the "at"
// it still accepts a clock that carries minutes or a meridiem.
type tomorrowAtMatcher struct{}

func (tomorrowAtMatcher) Name() string { return "tomorrow-at" }

func (tomorrowAtMatcher) Match(text string, now time.Time) (Match, bool) {
	for _, idx := range reTomorrowAt.FindAllStringSubmatchIndex(text, -1) {
		hasAt := group(text, idx, 1) != ""
		minStr := group(text, idx, 3)
		mer := group(text, idx, 4)
		if !hasAt && minStr == "" && mer == "" {
			continue
		}
		h, _ := strconv.Atoi(group(text, idx, 2))
		m := 0
		if minStr != "" {
			m, _ = strconv.Atoi(minStr)
		}
		hour, ok := to24h(h, mer)
		if !ok || m > 59 {
			continue
		}
		d := now.AddDate(0, 0, 1)
		at := time.Date(d.Year(), d.Month(), d.Day(), hour, m, 0, 0, now.Location())
		return Match{Start: idx[0], End: idx[1], At: at}, true
	}
	return Match{}, false
}

// tomorrowMatcher handles a bare "tomorrow" (09:00).
type tomorrowMatcher struct{}

func (tomorrowMatcher) Name() string { return "tomorrow" }

func (tomorrowMatcher) Match(text string, now time.Time) (Match, bool) {
	idx := reTomorrow.FindStringIndex(text)
	if idx == nil {
		return Match{}, false
	}
	return Match{Start: idx[0], End: idx[1], At: dayAt(now, 1, defaultHour)}, true
}

// nextWeekdayMatcher handles "next <weekday>" (09:00), always strictly after today.
type nextWeekdayMatcher struct{}

func (nextWeekdayMatcher) Name() string { return "next-weekday" }

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (nextWeekdayMatcher) Match(text string, now time.Time) (Match, bool) {
	idx := reNextDay.FindStringSubmatchIndex(text)
	if idx == nil {
		return Match{}, false
	}
	want := weekdays[strings.ToLower(group(text, idx, 1))]
	ahead := (int(want) - int(now.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return Match{Start: idx[0], End: idx[1], At: dayAt(now, ahead, defaultHour)}, true
}

// todayMatcher handles a bare "today" or "tonight" (one hour from now).
type todayMatcher struct{}

func (todayMatcher) Name() string { return "today" }

func (todayMatcher) Match(text string, now time.Time) (Match, bool) {
	idx := reToday.FindStringIndex(text)
	if idx == nil {
		return Match{}, false
	}
	return Match{Start: idx[0], End: idx[1], At: now.Add(time.Hour)}, true
}

func group(text string, idx []int, n int) string {
	if 2*n+1 >= len(idx) || idx[2*n] < 0 {
		return ""
	}
	return text[idx[2*n]:idx[2*n+1]]
}

// to24h converts a clock hour with an optional meridiem: 12am is 0, 12pm is
// 12, other pm hours add 12.
func to24h(h int, meridiem string) (int, bool) {
	switch strings.ToLower(meridiem) {
	case "":
		return h, h >= 0 && h <= 23
	case "am":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			return 0, true
		}
		return h, true
	case "pm":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			return 12, true
		}
		return h + 12, true
	}
	return 0, false
}

// nextTimeOfDay returns today at hour:minute, or tomorrow if that is not after now.
func nextTimeOfDay(now time.Time, hour, minute int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return at
}

func dayAt(now time.Time, days, hour int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+days, hour, 0, 0, 0, now.Location())
}

func addUnits(now time.Time, n int64, unit time.Duration) (time.Time, error) {
	if n > math.MaxInt64/int64(unit) {
		return time.Time{}, strconv.ErrRange
	}
	return now.Add(time.Duration(n) * unit), nil
}

// anchoredToTomorrow reports whether the clock starting at pos belongs to a
// "tomorrow [at]" phrase, which tomorrowAtMatcher owns.
func anchoredToTomorrow(text string, pos int) bool {
	before := strings.ToLower(strings.TrimRight(text[:pos], " \t"))
	before = strings.TrimSuffix(before, " at")
	before = strings.TrimRight(before, " \t")
	return strings.HasSuffix(before, "tomorrow")
}

package task

import (
	"testing"
	"time"
)

func TestUpdateApply(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	base := Task{ID: 1, Text: "old", ScheduledFor: &at}

	cases := []struct {
		name string
		u    Update
		want func(Task) bool
	}{
		{"rename", Update{Text: Ptr("new")}, func(x Task) bool { return x.Text == "new" && x.Scheduled() }},
		{"complete", Update{Completed: Ptr(true)}, func(x Task) bool { return x.Completed }},
		{"clear", Update{ClearSchedule: true, ScheduledFor: &at}, func(x Task) bool { return !x.Scheduled() }},
		{"move", Update{ScheduledFor: Ptr(at.Add(time.Hour))}, func(x Task) bool { return x.ScheduledFor.Equal(at.Add(time.Hour)) }},
	}
	for _, tc := range cases {
		got := base.Clone()
		tc.u.Apply(&got)
		if !tc.want(got) {
			t.Fatalf("%s: unexpected task %+v", tc.name, got)
		}
	}
	if !base.ScheduledFor.Equal(at) {
		t.Fatalf("base mutated through clone")
	}
	if !(Update{}).IsZero() {
		t.Fatalf("empty update should be zero")
	}
}

func TestUpcoming(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := func(d time.Duration) *time.Time { x := now.Add(d); return &x }

	cases := []struct {
		name string
		t    Task
		want bool
	}{
		{"soon", Task{ScheduledFor: in(time.Hour)}, true},
		{"edge", Task{ScheduledFor: in(24 * time.Hour)}, true},
		{"late", Task{ScheduledFor: in(25 * time.Hour)}, false},
		{"past", Task{ScheduledFor: in(-time.Minute)}, false},
		{"done", Task{ScheduledFor: in(time.Hour), Completed: true}, false},
		{"none", Task{}, false},
	}
	for _, tc := range cases {
		if got := tc.t.Upcoming(now, 24*time.Hour); got != tc.want {
			t.Fatalf("%s: Upcoming=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestSortBySchedule(t *testing.T) {
	t.Parallel()

	a := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := a.Add(time.Hour)
	ts := []Task{{ID: 4}, {ID: 3, ScheduledFor: &b}, {ID: 2}, {ID: 1, ScheduledFor: &a}}
	SortBySchedule(ts)

	want := []int64{1, 3, 2, 4}
	for i, id := range want {
		if ts[i].ID != id {
			t.Fatalf("order[%d]=%d want %d (%v)", i, ts[i].ID, id, ts)
		}
	}
}

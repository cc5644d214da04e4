package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	logx "taskbot/pkg/logx"
)

func noop(context.Context) error { return nil }

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		cron     string
		duration time.Duration
	}{
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, source: "cron", cron: "*/5 * * * *"},
		{name: "descriptor", raw: "@every 1m", kind: SpecCron, source: "cron", cron: "@every 1m"},
		{name: "prefixed cron", raw: "cron:0 0 * * *", kind: SpecCron, source: "cron", cron: "0 0 * * *"},
		{name: "daily", raw: "daily:08:30", kind: SpecCron, source: "daily", cron: "30 8 * * *"},
		{name: "duration", raw: "10m", kind: SpecInterval, source: "duration", duration: 10 * time.Minute},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, source: "duration", duration: 45 * time.Second},
		{name: "every", raw: "every:1m", kind: SpecInterval, source: "duration", duration: time.Minute},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind || got.Source != tt.source {
				t.Fatalf("got %+v", got)
			}
			if tt.kind == SpecCron && got.Cron != tt.cron {
				t.Fatalf("Cron = %q, want %q", got.Cron, tt.cron)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "daily:25:00", "every:-1m", "00:00"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	h, m, err := parseHHMM("23:15")
	if err != nil || h != 23 || m != 15 {
		t.Fatalf("parseHHMM = %d:%d, %v", h, m, err)
	}
	if _, _, err := parseHHMM("24:00"); err == nil {
		t.Fatal("expected error for invalid hour")
	}
}

func TestAddScheduleRegistersAndReplaces(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Timezone: "UTC"}, nil, logx.Nop(), nil)
	if err := s.AddSchedule("sweep", "every:1m", 0, noop); err != nil {
		t.Fatalf("AddSchedule before start: %v", err)
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())

	if err := s.AddSchedule("digest", "daily:08:00", 0, noop); err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}
	if err := s.AddSchedule("digest", "0 9 * * *", 0, noop); err != nil {
		t.Fatalf("AddSchedule replace: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Schedules) != 2 {
		t.Fatalf("schedules=%+v", snap.Schedules)
	}
	for _, it := range snap.Schedules {
		if it.Next.IsZero() {
			t.Fatalf("schedule %q has no next run", it.Name)
		}
		if it.Name == "digest" && it.Spec != "0 9 * * *" {
			t.Fatalf("digest spec=%q", it.Spec)
		}
	}
	if snap.Timezone != "UTC" {
		t.Fatalf("tz=%q", snap.Timezone)
	}

	if !s.Remove("digest") || s.Remove("digest") {
		t.Fatalf("Remove should succeed once")
	}
}

func TestAddCronRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true}, nil, logx.Nop(), nil)
	if err := s.AddCron("bad", "61 * * * *", 0, noop); err == nil {
		t.Fatalf("expected error")
	}
	if err := s.AddInterval("", time.Minute, 0, noop); err == nil {
		t.Fatalf("expected name error")
	}
}

func TestApplyTimezone(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Timezone: "UTC"}, nil, logx.Nop(), nil)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	s.Apply(Config{Enabled: true, Timezone: "Asia/Jakarta"})
	if got := s.Location().String(); got != "Asia/Jakarta" {
		t.Fatalf("location=%q", got)
	}
	s.Apply(Config{Enabled: true, Timezone: "Not/AZone"})
	if got := s.Location(); got != time.Local {
		t.Fatalf("invalid tz should fall back to Local, got %v", got)
	}
}

func TestApplyTimezoneWhileJobRuns(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Timezone: "UTC"}, nil, logx.Nop(), nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	job := func(context.Context) error {
		if runs.Add(1) != 1 {
			return nil
		}
		close(started)
		<-release
		_ = s.Now()
		return nil
	}
	if err := s.AddInterval("blocking", 20*time.Millisecond, 0, job); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not start")
	}

	applied := make(chan struct{})
	go func() {
		s.Apply(Config{Enabled: true, Timezone: "Asia/Jakarta"})
		close(applied)
	}()

	// readers are not blocked while the old cron drains
	deadline := time.After(time.Second)
	for s.Location().String() != "Asia/Jakarta" {
		select {
		case <-deadline:
			t.Fatalf("location not switched while job runs")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(release)

	select {
	case <-applied:
	case <-time.After(3 * time.Second):
		t.Fatalf("Apply did not return after the job finished")
	}
	if snap := s.Snapshot(); len(snap.Schedules) != 1 || snap.Schedules[0].Next.IsZero() {
		t.Fatalf("job not rescheduled on the new cron: %+v", snap.Schedules)
	}
}

func TestStopDuringApplyKeepsCronStopped(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Timezone: "UTC"}, nil, logx.Nop(), nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	job := func(context.Context) error {
		if runs.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil
	}
	if err := s.AddInterval("blocking", 20*time.Millisecond, 0, job); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}
	s.Start(context.Background())
	<-started

	applied := make(chan struct{})
	go func() {
		s.Apply(Config{Enabled: true, Timezone: "Asia/Jakarta"})
		close(applied)
	}()
	time.Sleep(20 * time.Millisecond)
	s.Stop(context.Background())
	close(release)
	<-applied

	n := runs.Load()
	time.Sleep(150 * time.Millisecond)
	if got := runs.Load(); got != n {
		t.Fatalf("job ran after Stop: %d -> %d", n, got)
	}
}

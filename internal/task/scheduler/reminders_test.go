package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskbot/internal/eventbus"
	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

type recSink struct {
	ch      chan task.Task
	panicOn int64
}

func newRecSink() *recSink { return &recSink{ch: make(chan task.Task, 64)} }

func (r *recSink) Emit(ctx context.Context, t task.Task) {
	if t.ID == r.panicOn {
		panic("sink exploded")
	}
	r.ch <- t
}

func (r *recSink) expect(t *testing.T, within time.Duration) task.Task {
	t.Helper()
	select {
	case got := <-r.ch:
		return got
	case <-time.After(within):
		t.Fatalf("no reminder within %v", within)
		return task.Task{}
	}
}

func (r *recSink) expectNone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case got := <-r.ch:
		t.Fatalf("unexpected reminder for task %d (%q)", got.ID, got.Text)
	case <-time.After(within):
	}
}

func startedService(t *testing.T, sink Sink) *Service {
	t.Helper()
	s := New(Config{Enabled: true}, sink, logx.Nop(), eventbus.New())
	s.Start(context.Background())
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s
}

func dueIn(id int64, text string, d time.Duration) task.Task {
	at := time.Now().Add(d)
	return task.Task{ID: id, Text: text, ScheduledFor: &at}
}

func TestReminderFiresOnce(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	s := startedService(t, sink)
	if err := s.Schedule(dueIn(1, "call John", 20*time.Millisecond)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if got := sink.expect(t, time.Second); got.ID != 1 || got.Text != "call John" {
		t.Fatalf("fired %+v", got)
	}
	sink.expectNone(t, 100*time.Millisecond)
	if n := len(s.Pending()); n != 0 {
		t.Fatalf("pending=%d after fire", n)
	}
	if snap := s.Snapshot(); snap.Fired != 1 {
		t.Fatalf("fired=%d", snap.Fired)
	}
}

func TestRescheduleReplacesTimer(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	s := startedService(t, sink)
	_ = s.Schedule(dueIn(7, "old", 40*time.Millisecond))
	_ = s.Schedule(dueIn(7, "new", 80*time.Millisecond))

	if n := len(s.Pending()); n != 1 {
		t.Fatalf("pending=%d want 1", n)
	}
	if got := sink.expect(t, time.Second); got.Text != "new" {
		t.Fatalf("fired %q want new", got.Text)
	}
	sink.expectNone(t, 150*time.Millisecond)
}

func TestConcurrentRescheduleFiresOnce(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	s := startedService(t, sink)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Schedule(dueIn(3, "x", time.Duration(10+i%5)*time.Millisecond))
		}()
	}
	wg.Wait()

	sink.expect(t, time.Second)
	sink.expectNone(t, 150*time.Millisecond)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	s := startedService(t, sink)
	_ = s.Schedule(dueIn(2, "skip", 30*time.Millisecond))
	if !s.Cancel(2) {
		t.Fatalf("Cancel should report a pending reminder")
	}
	if s.Cancel(2) {
		t.Fatalf("second Cancel should be a no-op")
	}
	if s.Cancel(99) {
		t.Fatalf("Cancel of unknown id should be a no-op")
	}
	sink.expectNone(t, 100*time.Millisecond)
}

func TestPanickingSinkIsIsolated(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	sink.panicOn = 1
	s := startedService(t, sink)
	_ = s.Schedule(dueIn(1, "bad", 10*time.Millisecond))
	_ = s.Schedule(dueIn(2, "good", 30*time.Millisecond))

	if got := sink.expect(t, time.Second); got.ID != 2 {
		t.Fatalf("fired %d want 2", got.ID)
	}
	deadline := time.Now().Add(time.Second)
	for s.Snapshot().Failed != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("failed counter not updated")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// still operational
	_ = s.Schedule(dueIn(3, "after", 5*time.Millisecond))
	if got := sink.expect(t, time.Second); got.ID != 3 {
		t.Fatalf("fired %d want 3", got.ID)
	}
}

func TestPastDueFiresImmediately(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	s := startedService(t, sink)
	_ = s.Schedule(dueIn(4, "late", -time.Hour))
	sink.expect(t, 500*time.Millisecond)
}

func TestScheduleHeldUntilStart(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	s := New(Config{Enabled: true}, sink, logx.Nop(), nil)
	_ = s.Schedule(dueIn(5, "held", 10*time.Millisecond))
	sink.expectNone(t, 60*time.Millisecond)

	s.Start(context.Background())
	defer s.Stop(context.Background())
	sink.expect(t, time.Second)
}

func TestStopDisarms(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	s := New(Config{Enabled: true}, sink, logx.Nop(), nil)
	s.Start(context.Background())
	_ = s.Schedule(dueIn(6, "later", 50*time.Millisecond))
	s.Stop(context.Background())

	sink.expectNone(t, 120*time.Millisecond)
	if n := len(s.Pending()); n != 1 {
		t.Fatalf("pending=%d want 1 after stop", n)
	}
}

func TestScheduleErrors(t *testing.T) {
	t.Parallel()

	s := startedService(t, newRecSink())
	if err := s.Schedule(task.Task{ID: 1, Text: "no time"}); !errors.Is(err, task.ErrScheduleFailed) {
		t.Fatalf("err=%v want ErrScheduleFailed", err)
	}

	off := New(Config{Enabled: false}, newRecSink(), logx.Nop(), nil)
	if err := off.Schedule(dueIn(1, "x", time.Minute)); !errors.Is(err, task.ErrScheduleFailed) {
		t.Fatalf("disabled err=%v", err)
	}
}

func TestPendingOrder(t *testing.T) {
	t.Parallel()

	s := startedService(t, newRecSink())
	_ = s.Schedule(dueIn(1, "b", time.Hour))
	_ = s.Schedule(dueIn(2, "a", time.Minute))

	p := s.Pending()
	if len(p) != 2 || p[0].TaskID != 2 || p[1].TaskID != 1 {
		t.Fatalf("pending=%+v", p)
	}
}

func TestEventsPublished(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	sink := newRecSink()
	s := New(Config{Enabled: true}, sink, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	_ = s.Schedule(dueIn(9, "evt", 5*time.Millisecond))
	sink.expect(t, time.Second)

	want := map[string]bool{eventbus.ReminderScheduled: false, eventbus.ReminderFired: false}
	deadline := time.After(time.Second)
	for !want[eventbus.ReminderScheduled] || !want[eventbus.ReminderFired] {
		select {
		case ev := <-ch:
			want[ev.Type] = true
		case <-deadline:
			t.Fatalf("missing events: %v", want)
		}
	}
}

func TestFireAfterStopHoldsReminder(t *testing.T) {
	t.Parallel()

	sink := newRecSink()
	s := New(Config{Enabled: true}, sink, logx.Nop(), nil)
	s.Start(context.Background())
	if err := s.Schedule(dueIn(7, "water plants", 50*time.Millisecond)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.tmu.Lock()
	ver := s.reminders[7].ver
	s.tmu.Unlock()

	s.Stop(context.Background())
	// a timer callback already dispatched when Stop ran
	s.fire(7, ver)
	sink.expectNone(t, 100*time.Millisecond)
	if n := len(s.Pending()); n != 1 {
		t.Fatalf("pending=%d, reminder should be held", n)
	}

	s.Start(context.Background())
	defer s.Stop(context.Background())
	if got := sink.expect(t, time.Second); got.ID != 7 {
		t.Fatalf("fired %+v", got)
	}
}

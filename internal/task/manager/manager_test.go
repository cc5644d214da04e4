package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskbot/internal/eventbus"
	"taskbot/internal/storage"
	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

type fakeReminders struct {
	mu        sync.Mutex
	pending   map[int64]task.Task
	scheduled int
	fail      error
}

func newFakeReminders() *fakeReminders { return &fakeReminders{pending: map[int64]task.Task{}} }

func (f *fakeReminders) Schedule(t task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.scheduled++
	f.pending[t.ID] = t
	return nil
}

func (f *fakeReminders) Cancel(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[id]
	delete(f.pending, id)
	return ok
}

func (f *fakeReminders) get(id int64) (task.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.pending[id]
	return t, ok
}

var now0 = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *fakeReminders, storage.Store) {
	t.Helper()
	st := storage.NewMemory()
	rem := newFakeReminders()
	m := New(st, rem, logx.Nop(), eventbus.New(), WithClock(func() time.Time { return now0 }))
	return m, rem, st
}

func TestCreateArmsReminder(t *testing.T) {
	t.Parallel()
	m, rem, _ := newTestManager(t)
	ctx := context.Background()

	at := now0.Add(5 * time.Hour)
	tk, err := m.Create(ctx, "Call John", &at, "telegram:1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := rem.get(tk.ID); !ok {
		t.Fatalf("reminder not armed")
	}

	plain, err := m.Create(ctx, "Buy milk", nil, "telegram:1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := rem.get(plain.ID); ok {
		t.Fatalf("unscheduled task should not arm a reminder")
	}
}

func TestCreateScheduleFailureKeepsTask(t *testing.T) {
	t.Parallel()
	m, rem, st := newTestManager(t)
	rem.fail = errors.New("disabled")

	at := now0.Add(time.Hour)
	tk, err := m.Create(context.Background(), "x", &at, "")
	if !errors.Is(err, task.ErrScheduleFailed) {
		t.Fatalf("expected ErrScheduleFailed, got %v", err)
	}
	if tk.ID == 0 {
		t.Fatalf("task should be returned")
	}
	if _, err := st.Get(context.Background(), tk.ID); err != nil {
		t.Fatalf("task should be stored: %v", err)
	}
}

func TestRenameRearmsOnlyPending(t *testing.T) {
	t.Parallel()
	m, rem, _ := newTestManager(t)
	ctx := context.Background()

	at := now0.Add(time.Hour)
	tk, _ := m.Create(ctx, "old", &at, "")
	if _, err := m.Rename(ctx, tk.ID, "new"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	got, ok := rem.get(tk.ID)
	if !ok || got.Text != "new" {
		t.Fatalf("pending reminder should carry new text: %+v %v", got, ok)
	}

	// already fired: no re-arm
	rem.Cancel(tk.ID)
	before := rem.scheduled
	if _, err := m.Rename(ctx, tk.ID, "newer"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if rem.scheduled != before {
		t.Fatalf("fired reminder must not be re-armed")
	}
}

func TestCompleteAndDeleteCancel(t *testing.T) {
	t.Parallel()
	m, rem, _ := newTestManager(t)
	ctx := context.Background()

	at := now0.Add(time.Hour)
	a, _ := m.Create(ctx, "a", &at, "")
	b, _ := m.Create(ctx, "b", &at, "")

	done, err := m.Complete(ctx, a.ID)
	if err != nil || !done.Completed {
		t.Fatalf("complete: %v %+v", err, done)
	}
	if _, ok := rem.get(a.ID); ok {
		t.Fatalf("complete should cancel the reminder")
	}

	ok, err := m.Delete(ctx, b.ID)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, ok := rem.get(b.ID); ok {
		t.Fatalf("delete should cancel the reminder")
	}
	ok, err = m.Delete(ctx, b.ID)
	if err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
}

func TestRescheduleAndClear(t *testing.T) {
	t.Parallel()
	m, rem, _ := newTestManager(t)
	ctx := context.Background()

	tk, _ := m.Create(ctx, "a", nil, "")
	at := now0.Add(2 * time.Hour)
	if _, err := m.Reschedule(ctx, tk.ID, at); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	got, ok := rem.get(tk.ID)
	if !ok || !got.ScheduledFor.Equal(at) {
		t.Fatalf("reminder should be armed at new time")
	}
	if _, err := m.Update(ctx, tk.ID, task.Update{ClearSchedule: true}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := rem.get(tk.ID); ok {
		t.Fatalf("clearing the schedule should cancel the reminder")
	}
}

func TestUpdateMissing(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)
	if _, err := m.Rename(context.Background(), 42, "x"); !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpcoming(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	in := func(d time.Duration) *time.Time { at := now0.Add(d); return &at }
	_, _ = m.Create(ctx, "later", in(20*time.Hour), "o")
	_, _ = m.Create(ctx, "soon", in(time.Hour), "o")
	_, _ = m.Create(ctx, "too far", in(48*time.Hour), "o")
	_, _ = m.Create(ctx, "past", in(-time.Hour), "o")
	_, _ = m.Create(ctx, "nodate", nil, "o")
	_, _ = m.Create(ctx, "other owner", in(time.Hour), "p")
	done, _ := m.Create(ctx, "done", in(2*time.Hour), "o")
	_, _ = m.Complete(ctx, done.ID)

	got, err := m.Upcoming(ctx, "o", 24*time.Hour)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(got) != 2 || got[0].Text != "soon" || got[1].Text != "later" {
		t.Fatalf("unexpected upcoming: %+v", got)
	}
}

func TestAuditAndEvents(t *testing.T) {
	t.Parallel()
	st := storage.NewMemory()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()
	m := New(st, newFakeReminders(), logx.Nop(), bus)

	ctx := WithActor(context.Background(), "tg:1:0:2")
	tk, _ := m.Create(ctx, "a", nil, "")
	_, _ = m.Complete(ctx, tk.ID)

	want := []string{eventbus.TaskCreated, eventbus.TaskCompleted}
	for _, w := range want {
		select {
		case ev := <-ch:
			if ev.Type != w {
				t.Fatalf("expected %s, got %s", w, ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing event %s", w)
		}
	}

	type auditor interface{ Audit() []storage.AuditEntry }
	entries := st.(auditor).Audit()
	if len(entries) != 2 || entries[0].Action != "create" || entries[1].Action != "complete" || entries[1].Actor != "tg:1:0:2" {
		t.Fatalf("unexpected audit: %+v", entries)
	}
}

func TestRestoreReminders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	at := func(d time.Duration) *time.Time { return task.Ptr(now0.Add(d)) }
	_, _ = st.Create(ctx, "future", at(time.Hour), "a")
	_, _ = st.Create(ctx, "past", at(-time.Hour), "a")
	_, _ = st.Create(ctx, "unscheduled", nil, "a")
	done, _ := st.Create(ctx, "done", at(2*time.Hour), "a")
	_, _ = st.Update(ctx, done.ID, task.Update{Completed: task.Ptr(true)})

	rem := newFakeReminders()
	m := New(st, rem, logx.Nop(), nil, WithClock(func() time.Time { return now0 }))
	armed, overdue, err := m.RestoreReminders(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if armed != 1 || overdue != 1 {
		t.Fatalf("armed=%d overdue=%d", armed, overdue)
	}
	if _, ok := rem.get(1); !ok {
		t.Fatalf("future task not armed")
	}
}

// Package manager applies task mutations to the store and keeps the
// reminder registry, the audit trail and the event bus in step.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskbot/internal/eventbus"
	"taskbot/internal/storage"
	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

// Reminders is the part of the scheduler the manager drives.
type Reminders interface {
	Schedule(t task.Task) error
	// Cancel reports whether a reminder was pending.
	Cancel(id int64) bool
}

type Manager struct {
	store storage.Store
	rem   Reminders
	log   logx.Logger
	bus   eventbus.Bus
	now   func() time.Time
}

type Option func(*Manager)

// WithClock overrides time.Now for Upcoming.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func New(store storage.Store, rem Reminders, log logx.Logger, bus eventbus.Bus, opts ...Option) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	m := &Manager{store: store, rem: rem, log: log, bus: bus, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

type actorKey struct{}

// WithActor tags ctx with the principal recorded in audit entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	a, _ := ctx.Value(actorKey{}).(string)
	return a
}

// Create stores a task and arms its reminder. When the task is stored but
// the reminder cannot be armed, the task is returned together with an error
// wrapping task.ErrScheduleFailed.
func (m *Manager) Create(ctx context.Context, text string, at *time.Time, owner string) (task.Task, error) {
	t, err := m.store.Create(ctx, text, at, owner)
	if err != nil {
		err = storeErr(err)
		m.audit(ctx, "create", 0, text, err)
		return task.Task{}, err
	}
	m.audit(ctx, "create", t.ID, t.Text, nil)
	m.publish(eventbus.TaskCreated, t)

	if t.Scheduled() {
		if err := m.schedule(t); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (m *Manager) List(ctx context.Context, owner string) ([]task.Task, error) {
	ts, err := m.store.List(ctx, owner)
	if err != nil {
		return nil, storeErr(err)
	}
	return ts, nil
}

// Open lists the owner's incomplete tasks in creation order.
func (m *Manager) Open(ctx context.Context, owner string) ([]task.Task, error) {
	ts, err := m.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	return task.Open(ts), nil
}

func (m *Manager) Get(ctx context.Context, id int64) (task.Task, error) {
	t, err := m.store.Get(ctx, id)
	if err != nil {
		return task.Task{}, storeErr(err)
	}
	return t, nil
}

// Upcoming lists open tasks due within the window, soonest first.
func (m *Manager) Upcoming(ctx context.Context, owner string, within time.Duration) ([]task.Task, error) {
	ts, err := m.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := m.now()
	out := make([]task.Task, 0, len(ts))
	for _, t := range ts {
		if t.Upcoming(now, within) {
			out = append(out, t)
		}
	}
	task.SortBySchedule(out)
	return out, nil
}

// Rename changes the text. A pending reminder is re-armed so it fires with
// the new text.
func (m *Manager) Rename(ctx context.Context, id int64, text string) (task.Task, error) {
	return m.Update(ctx, id, task.Update{Text: &text})
}

// Reschedule moves the due time and re-arms the reminder.
func (m *Manager) Reschedule(ctx context.Context, id int64, at time.Time) (task.Task, error) {
	return m.Update(ctx, id, task.Update{ScheduledFor: &at})
}

// Complete marks the task done and drops its reminder.
func (m *Manager) Complete(ctx context.Context, id int64) (task.Task, error) {
	return m.Update(ctx, id, task.Update{Completed: task.Ptr(true)})
}

// Update applies u and brings the reminder in line with the result.
func (m *Manager) Update(ctx context.Context, id int64, u task.Update) (task.Task, error) {
	if u.IsZero() {
		return m.Get(ctx, id)
	}
	t, err := m.store.Update(ctx, id, u)
	if err != nil {
		err = storeErr(err)
		m.audit(ctx, updateAction(u), id, "", err)
		return task.Task{}, err
	}
	m.audit(ctx, updateAction(u), id, describe(u), nil)
	if u.Completed != nil && *u.Completed {
		m.publish(eventbus.TaskCompleted, t)
	} else {
		m.publish(eventbus.TaskUpdated, t)
	}

	switch {
	case t.Completed || !t.Scheduled():
		m.rem.Cancel(id)
	case u.ScheduledFor != nil:
		return t, m.schedule(t)
	case u.Text != nil:
		if m.rem.Cancel(id) {
			return t, m.schedule(t)
		}
	}
	return t, nil
}

func (m *Manager) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := m.store.Delete(ctx, id)
	if err != nil {
		err = storeErr(err)
		m.audit(ctx, "delete", id, "", err)
		return false, err
	}
	if !ok {
		return false, nil
	}
	m.rem.Cancel(id)
	m.audit(ctx, "delete", id, "", nil)
	m.publish(eventbus.TaskDeleted, task.Task{ID: id})
	return true, nil
}

// RestoreReminders re-arms open tasks due in the future, typically after a
// restart with a persistent store. Overdue tasks are left alone so a restart
// does not repeat reminders that already fired.
func (m *Manager) RestoreReminders(ctx context.Context) (armed, overdue int, err error) {
	ts, err := m.List(ctx, "")
	if err != nil {
		return 0, 0, err
	}
	now := m.now()
	for _, t := range task.Open(ts) {
		if !t.Scheduled() {
			continue
		}
		if !t.ScheduledFor.After(now) {
			overdue++
			continue
		}
		if err := m.schedule(t); err != nil {
			return armed, overdue, err
		}
		armed++
	}
	return armed, overdue, nil
}

func (m *Manager) schedule(t task.Task) error {
	if err := m.rem.Schedule(t); err != nil {
		m.log.Warn("reminder not armed", logx.Int64("task_id", t.ID), logx.Err(err))
		if !errors.Is(err, task.ErrScheduleFailed) {
			err = fmt.Errorf("%w: %v", task.ErrScheduleFailed, err)
		}
		return err
	}
	return nil
}

func (m *Manager) audit(ctx context.Context, action string, id int64, detail string, err error) {
	e := storage.AuditEntry{At: m.now(), Actor: actorFrom(ctx), Action: action, TaskID: id, Detail: detail}
	if err != nil {
		e.Error = err.Error()
	}
	if aerr := m.store.AppendAudit(ctx, e); aerr != nil {
		m.log.Debug("audit append failed", logx.String("action", action), logx.Err(aerr))
	}
}

func (m *Manager) publish(typ string, t task.Task) {
	m.bus.Publish(eventbus.Event{Type: typ, Time: m.now(), Data: t})
}

func storeErr(err error) error {
	if errors.Is(err, task.ErrNotFound) || errors.Is(err, task.ErrEmptyText) || errors.Is(err, task.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %v", task.ErrStore, err)
}

func updateAction(u task.Update) string {
	switch {
	case u.Completed != nil && *u.Completed:
		return "complete"
	case u.Text != nil && u.ScheduledFor == nil && !u.ClearSchedule:
		return "rename"
	case u.Text == nil && (u.ScheduledFor != nil || u.ClearSchedule):
		return "reschedule"
	default:
		return "update"
	}
}

func describe(u task.Update) string {
	var parts []string
	if u.Text != nil {
		parts = append(parts, fmt.Sprintf("text=%q", *u.Text))
	}
	if u.Completed != nil {
		parts = append(parts, fmt.Sprintf("completed=%t", *u.Completed))
	}
	if u.ClearSchedule {
		parts = append(parts, "scheduled_for=none")
	} else if u.ScheduledFor != nil {
		parts = append(parts, "scheduled_for="+u.ScheduledFor.Format(time.RFC3339))
	}
	return strings.Join(parts, " ")
}

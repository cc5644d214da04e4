package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"taskbot/internal/eventbus"
	"taskbot/internal/runtime/supervisor"
	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

// ReminderEvent is the payload of reminder.* events.
type ReminderEvent struct {
	TaskID int64
	At     time.Time
	Err    string
}

// Schedule arms a one-shot reminder for t.ScheduledFor, replacing any pending
// reminder for the same task id. A due time in the past fires immediately.
func (s *Service) Schedule(t task.Task) error {
	if !t.Scheduled() {
		return fmt.Errorf("%w: task %d has no due time", task.ErrScheduleFailed, t.ID)
	}
	if !s.Enabled() {
		return fmt.Errorf("%w: scheduler disabled", task.ErrScheduleFailed)
	}
	if s.sink == nil {
		return fmt.Errorf("%w: no notification sink", task.ErrScheduleFailed)
	}
	at := *t.ScheduledFor

	s.tmu.Lock()
	if old := s.reminders[t.ID]; old != nil && old.timer != nil {
		old.timer.Stop()
	}
	// the version makes a stale callback of the replaced timer a no-op
	s.seq++
	r := &reminder{task: t.Clone(), at: at, ver: s.seq}
	s.reminders[t.ID] = r
	if s.armed {
		s.armLocked(r)
	}
	s.tmu.Unlock()

	s.log.Debug("reminder scheduled", logx.Int64("task_id", t.ID), logx.Time("at", at))
	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderScheduled, Data: ReminderEvent{TaskID: t.ID, At: at}})
	return nil
}

// Cancel drops the pending reminder for id. It reports whether one existed.
func (s *Service) Cancel(id int64) bool {
	s.tmu.Lock()
	r, ok := s.reminders[id]
	if ok {
		if r.timer != nil {
			r.timer.Stop()
		}
		delete(s.reminders, id)
	}
	s.tmu.Unlock()

	if ok {
		s.log.Debug("reminder cancelled", logx.Int64("task_id", id))
		s.bus.Publish(eventbus.Event{Type: eventbus.ReminderCancelled, Data: ReminderEvent{TaskID: id, At: r.at}})
	}
	return ok
}

// Pending lists reminders that have not fired, soonest first.
func (s *Service) Pending() []PendingInfo {
	s.tmu.Lock()
	out := make([]PendingInfo, 0, len(s.reminders))
	for id, r := range s.reminders {
		out = append(out, PendingInfo{TaskID: id, Text: r.task.Text, Owner: r.task.Owner, At: r.at})
	}
	s.tmu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// armLocked starts the timer for r. Call with s.tmu held.
func (s *Service) armLocked(r *reminder) {
	delay := max(time.Until(r.at), 0)
	id, ver := r.task.ID, r.ver
	r.timer = time.AfterFunc(delay, func() { s.fire(id, ver) })
}

func (s *Service) fire(id int64, ver uint64) {
	s.tmu.Lock()
	r, ok := s.reminders[id]
	if !ok || r.ver != ver {
		s.tmu.Unlock()
		return
	}
	if !s.armed {
		// fired across Stop; the entry stays for the next Start
		r.timer = nil
		s.tmu.Unlock()
		return
	}
	delete(s.reminders, id)
	s.tmu.Unlock()

	s.mu.Lock()
	timeout := s.cfg.FireTimeout
	s.mu.Unlock()
	if timeout <= 0 {
		timeout = defaultFireTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := supervisor.Guard(s.log, fmt.Sprintf("reminder:%d", id), func() {
		s.sink.Emit(ctx, r.task)
	})
	if err != nil {
		atomic.AddUint64(&s.failed, 1)
		s.bus.Publish(eventbus.Event{Type: eventbus.ReminderFailed, Data: ReminderEvent{TaskID: id, At: r.at, Err: err.Error()}})
		return
	}
	atomic.AddUint64(&s.fired, 1)
	s.log.Info("reminder fired", logx.Int64("task_id", id), logx.String("owner", r.task.Owner))
	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderFired, Data: ReminderEvent{TaskID: id, At: r.at}})
}

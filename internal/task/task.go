package task

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrNotFound          = errors.New("task not found")
	ErrParseFailure      = errors.New("unrecognized time phrase")
	ErrSelectionNotFound = errors.New("no task matches selection")
	ErrScheduleFailed    = errors.New("reminder registration failed")
	ErrStore             = errors.New("task store failure")
	ErrEmptyText         = errors.New("task text is empty")
)

// Task is a user-owned item with an optional absolute due instant.
type Task struct {
	ID           int64      `json:"id"`
	Text         string     `json:"text"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"createdAt"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	Owner        string     `json:"owner,omitempty"`
}

// Update carries the fields to change; nil fields are left as they are.
// ClearSchedule wins over ScheduledFor.
type Update struct {
	Text          *string
	Completed     *bool
	ScheduledFor  *time.Time
	ClearSchedule bool
}

func (u Update) Apply(t *Task) {
	if u.Text != nil {
		t.Text = *u.Text
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	if u.ClearSchedule {
		t.ScheduledFor = nil
	} else if u.ScheduledFor != nil {
		at := *u.ScheduledFor
		t.ScheduledFor = &at
	}
}

func (u Update) IsZero() bool {
	return u.Text == nil && u.Completed == nil && u.ScheduledFor == nil && !u.ClearSchedule
}

// Scheduled reports whether the task carries a due instant.
func (t Task) Scheduled() bool { return t.ScheduledFor != nil && !t.ScheduledFor.IsZero() }

// Upcoming reports whether t is open and due within (now, now+within].
func (t Task) Upcoming(now time.Time, within time.Duration) bool {
	if t.Completed || !t.Scheduled() {
		return false
	}
	at := *t.ScheduledFor
	return at.After(now) && !at.After(now.Add(within))
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	if t.ScheduledFor != nil {
		at := *t.ScheduledFor
		t.ScheduledFor = &at
	}
	return t
}

// Open filters out completed tasks, keeping order.
func Open(ts []Task) []Task {
	out := make([]Task, 0, len(ts))
	for _, t := range ts {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// SortBySchedule orders scheduled tasks by due time, then id; unscheduled last.
func SortBySchedule(ts []Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		switch {
		case a.Scheduled() && b.Scheduled():
			if !a.ScheduledFor.Equal(*b.ScheduledFor) {
				return a.ScheduledFor.Before(*b.ScheduledFor)
			}
		case a.Scheduled():
			return true
		case b.Scheduled():
			return false
		}
		return a.ID < b.ID
	})
}

// Ptr is a small helper for building Update values.
func Ptr[T any](v T) *T { return &v }

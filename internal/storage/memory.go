package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"taskbot/internal/task"
)

const memAuditCap = 500

// memStore keeps tasks in a map. The file driver wraps it and persists
// after every mutation through onChange.
type memStore struct {
	mu      sync.Mutex
	tasks   map[int64]task.Task
	counter int64
	audit   []AuditEntry
	closed  bool

	// onChange runs with mu held after a successful mutation.
	onChange func() error
}

// NewMemory returns an empty process-local store.
func NewMemory() Store { return newMemStore() }

func newMemStore() *memStore {
	return &memStore{tasks: map[int64]task.Task{}}
}

func (s *memStore) Create(ctx context.Context, text string, scheduledFor *time.Time, owner string) (task.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return task.Task{}, task.ErrEmptyText
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return task.Task{}, ErrClosed
	}

	s.counter++
	t := task.Task{
		ID:        s.counter,
		Text:      text,
		CreatedAt: time.Now(),
		Owner:     owner,
	}
	if scheduledFor != nil {
		at := *scheduledFor
		t.ScheduledFor = &at
	}
	s.tasks[t.ID] = t
	if err := s.changedLocked(); err != nil {
		delete(s.tasks, t.ID)
		s.counter--
		return task.Task{}, err
	}
	return t.Clone(), nil
}

func (s *memStore) List(ctx context.Context, owner string) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if owner == "" || t.Owner == owner {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Get(ctx context.Context, id int64) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return task.Task{}, ErrClosed
	}
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %d", task.ErrNotFound, id)
	}
	return t.Clone(), nil
}

func (s *memStore) Update(ctx context.Context, id int64, u task.Update) (task.Task, error) {
	if u.Text != nil && strings.TrimSpace(*u.Text) == "" {
		return task.Task{}, task.ErrEmptyText
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return task.Task{}, ErrClosed
	}
	prev, ok := s.tasks[id]
	if !ok {
		return task.Task{}, fmt.Errorf("%w: %d", task.ErrNotFound, id)
	}
	next := prev.Clone()
	u.Apply(&next)
	next.Text = strings.TrimSpace(next.Text)
	s.tasks[id] = next
	if err := s.changedLocked(); err != nil {
		s.tasks[id] = prev
		return task.Task{}, err
	}
	return next.Clone(), nil
}

func (s *memStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	prev, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	delete(s.tasks, id)
	if err := s.changedLocked(); err != nil {
		s.tasks[id] = prev
		return false, err
	}
	return true, nil
}

func (s *memStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.audit = append(s.audit, e)
	if len(s.audit) > memAuditCap {
		s.audit = append([]AuditEntry(nil), s.audit[len(s.audit)-memAuditCap:]...)
	}
	return nil
}

// Audit returns a copy of the retained audit entries, oldest first.
func (s *memStore) Audit() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.audit...)
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memStore) changedLocked() error {
	if s.onChange == nil {
		return nil
	}
	return s.onChange()
}

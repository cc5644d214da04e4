package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	rtsup "taskbot/internal/runtime/supervisor"
	"taskbot/internal/task"
	kit "taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

// Emit is called by the scheduler when a reminder fires. It records an
// inbox item, runs callbacks and queues chat delivery when a target exists.
func (s *Service) Emit(ctx context.Context, t task.Task) {
	it := Item{
		Type:     TypeReminder,
		Title:    "Task Reminder",
		Message:  "Reminder: " + t.Text,
		Priority: PriorityHigh,
		TaskID:   t.ID,
		Owner:    t.Owner,
	}
	if _, err := s.Post(ctx, it); err != nil && !errors.Is(err, ErrNoTarget) && !errors.Is(err, ErrDisabled) {
		s.log.Warn("reminder delivery not queued", logx.Int64("task_id", t.ID), logx.Err(err))
	}
}

// NotifyText posts a plain informational message for owner.
func (s *Service) NotifyText(ctx context.Context, owner, title, text string) error {
	_, err := s.Post(ctx, Item{Type: TypeDigest, Title: title, Message: text, Priority: PriorityNormal, Owner: owner})
	return err
}

// Post stores it in the inbox, runs callbacks and queues chat delivery. The
// returned item carries the assigned id. Without a chat target it returns
// ErrNoTarget; the inbox entry exists either way.
func (s *Service) Post(ctx context.Context, it Item) (Item, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	it.ID = uuid.NewString()
	it.CreatedAt = time.Now()
	if it.Priority == "" {
		it.Priority = PriorityNormal
	}
	if it.Type == "" {
		it.Type = TypeInfo
	}
	s.inbox.add(it)
	s.runCallbacks(ctx, it)

	to, ok := s.targetFor(it.Owner)
	if !ok {
		return it, ErrNoTarget
	}
	return it, s.enqueue(ctx, job{
		itemID: it.ID,
		target: to,
		text:   formatChat(it),
		opts:   &kit.SendOptions{DisablePreview: true},
	})
}

func (s *Service) targetFor(owner string) (kit.ChatTarget, bool) {
	if to, ok := kit.TargetFromOwner(owner); ok {
		return to, true
	}
	s.mu.Lock()
	def := s.cfg.DefaultChat
	s.mu.Unlock()
	return def, !def.IsZero()
}

func formatChat(it Item) string {
	msg := strings.TrimSpace(it.Message)
	if it.Type != TypeReminder && it.Title != "" {
		msg = it.Title + "\n" + msg
	}
	return prefixForPriority(it.Priority) + msg
}

// OnNotify registers fn for items of typ. An empty typ matches every type.
func (s *Service) OnNotify(typ string, fn Callback) {
	if fn == nil {
		return
	}
	s.cbmu.Lock()
	s.callbacks[typ] = append(s.callbacks[typ], fn)
	s.cbmu.Unlock()
}

func (s *Service) runCallbacks(ctx context.Context, it Item) {
	s.cbmu.RLock()
	fns := append(append([]Callback(nil), s.callbacks[it.Type]...), s.callbacks[""]...)
	s.cbmu.RUnlock()

	for i, fn := range fns {
		_ = rtsup.Guard(s.log, fmt.Sprintf("notify.callback.%s.%d", it.Type, i), func() { fn(ctx, it) })
	}
}

// List returns inbox items, newest first. An empty owner lists all owners.
func (s *Service) List(owner string, unreadOnly bool) []Item {
	return s.inbox.list(owner, unreadOnly)
}

// Unread counts unread items for owner.
func (s *Service) Unread(owner string) int { return s.inbox.unread(owner) }

func (s *Service) MarkRead(id string) bool { return s.inbox.markRead(id) }

// Clear removes one item.
func (s *Service) Clear(id string) bool { return s.inbox.remove(id) }

// ClearAll removes every item of owner, or every item when owner is empty.
func (s *Service) ClearAll(owner string) int { return s.inbox.clear(owner) }

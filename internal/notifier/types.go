package notifier

import (
	"context"
	"time"

	kit "taskbot/internal/transport"
)

// Config controls the inbox and the async delivery pipeline.
type Config struct {
	Enabled         bool
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	SendTimeout     time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
	InboxSize       int

	// DefaultChat receives notifications whose owner is not a chat.
	DefaultChat kit.ChatTarget
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Notification types.
const (
	TypeReminder = "reminder"
	TypeDigest   = "digest"
	TypeInfo     = "info"
)

// Item is one inbox entry.
type Item struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  Priority  `json:"priority"`
	TaskID    int64     `json:"taskId,omitempty"`
	Owner     string    `json:"owner,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"timestamp"`
}

// Callback observes notifications of one type.
type Callback func(ctx context.Context, it Item)

// NotificationEvent is the payload of notifier.* events.
type NotificationEvent struct {
	ItemID   string    `json:"item_id,omitempty"`
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	Key      string    `json:"key,omitempty"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}

func (p Priority) level() int {
	switch p {
	case PriorityHigh:
		return 7
	case PriorityNormal:
		return 5
	default:
		return 0
	}
}

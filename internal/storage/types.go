package storage

import (
	"context"
	"errors"
	"time"

	"taskbot/internal/task"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values: "memory" (default), "file", "sqlite".
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the task persistence API.
type Store interface {
	Create(ctx context.Context, text string, scheduledFor *time.Time, owner string) (task.Task, error)
	// List returns tasks in creation order. An empty owner lists everything.
	List(ctx context.Context, owner string) ([]task.Task, error)
	Get(ctx context.Context, id int64) (task.Task, error)
	// Update applies u and returns the new state, or task.ErrNotFound.
	Update(ctx context.Context, id int64, u task.Update) (task.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)

	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// AuditEntry records one task mutation.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor,omitempty"`
	Action string    `json:"action"`
	TaskID int64     `json:"task_id,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Error  string    `json:"error,omitempty"`
}

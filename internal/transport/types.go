package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

type Update struct {
	Message *Message
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

func (t ChatTarget) IsZero() bool { return t.ChatID == 0 }

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type Notification struct {
	Channel  string // "telegram" now
	Priority int    // 0 low.. 10 high
	Target   ChatTarget
	Text     string
	Options  *SendOptions
}

// Adapter is a chat platform connection.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

const ownerPrefix = "telegram:"

// OwnerFor encodes a chat target as a task owner string.
func OwnerFor(t ChatTarget) string {
	if t.ThreadID != 0 {
		return fmt.Sprintf("%s%d:%d", ownerPrefix, t.ChatID, t.ThreadID)
	}
	return fmt.Sprintf("%s%d", ownerPrefix, t.ChatID)
}

// TargetFromOwner decodes an owner produced by OwnerFor.
func TargetFromOwner(owner string) (ChatTarget, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(owner), ownerPrefix)
	if !ok || rest == "" {
		return ChatTarget{}, false
	}
	chatStr, threadStr, hasThread := strings.Cut(rest, ":")
	chatID, err := strconv.ParseInt(chatStr, 10, 64)
	if err != nil || chatID == 0 {
		return ChatTarget{}, false
	}
	t := ChatTarget{ChatID: chatID}
	if hasThread {
		th, err := strconv.Atoi(threadStr)
		if err != nil {
			return ChatTarget{}, false
		}
		t.ThreadID = th
	}
	return t, true
}

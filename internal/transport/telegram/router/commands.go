package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskbot/internal/notifier"
	"taskbot/internal/task"
	"taskbot/internal/task/dialogue"
)

// Dialogue is the conversational task interface.
type Dialogue interface {
	Handle(ctx context.Context, sessionID, owner, text string) dialogue.Response
	Cancel(sessionID string) dialogue.Response
}

// Tasks is the read side of the task manager.
type Tasks interface {
	List(ctx context.Context, owner string) ([]task.Task, error)
	Upcoming(ctx context.Context, owner string, within time.Duration) ([]task.Task, error)
}

// Inbox is the notification inbox.
type Inbox interface {
	List(owner string, unreadOnly bool) []notifier.Item
	MarkRead(id string) bool
	ClearAll(owner string) int
}

type Deps struct {
	Dialogue Dialogue
	Tasks    Tasks
	Inbox    Inbox
	// Location renders due times; nil means time.Local.
	Location func() *time.Location
}

const defaultUpcoming = 24 * time.Hour

func (r *Router) builtins() []Command {
	return []Command{
		{Name: "start", Description: "introduction", Handle: r.cmdStart},
		{Name: "help", Aliases: []string{"h"}, Description: "show commands", Handle: r.cmdHelp},
		{Name: "tasks", Aliases: []string{"list"}, Description: "list your tasks", Handle: r.cmdTasks},
		{Name: "upcoming", Description: "tasks due soon", Usage: "/upcoming [hours]", Handle: r.cmdUpcoming},
		{Name: "cancel", Description: "abandon the current question", Handle: r.cmdCancel},
		{Name: "notifications", Aliases: []string{"inbox"}, Description: "unread notifications", Usage: "/notifications [clear]", Handle: r.cmdNotifications},
	}
}

func (r *Router) dialogueHandler(ctx context.Context, req *Request) error {
	res := r.deps.Dialogue.Handle(ctx, req.Session, req.Owner, req.Text)
	return req.Reply(ctx, r.adapter, res.Message, false)
}

func (r *Router) cmdStart(ctx context.Context, req *Request) error {
	text := "Hi! I keep track of your tasks and remind you when they are due.\n\n" +
		"Just write what you need, for example:\n" +
		"• remind me to call John at 3 PM\n" +
		"• schedule dentist tomorrow\n" +
		"• edit task / complete task / delete task\n\n" +
		"Type /help to see all commands."
	return req.Reply(ctx, r.adapter, text, false)
}

func (r *Router) cmdHelp(ctx context.Context, req *Request) error {
	return req.Reply(ctx, r.adapter, r.helpText(), true)
}

func (r *Router) cmdTasks(ctx context.Context, req *Request) error {
	ts, err := r.deps.Tasks.List(ctx, req.Owner)
	if err != nil {
		_ = req.Reply(ctx, r.adapter, "Couldn't load your tasks right now.", false)
		return err
	}
	if len(ts) == 0 {
		return req.Reply(ctx, r.adapter, "You have no tasks. Try: remind me to call John at 3 PM", false)
	}
	return req.Reply(ctx, r.adapter, "Your tasks:\n"+r.formatTasks(ts), false)
}

func (r *Router) cmdUpcoming(ctx context.Context, req *Request) error {
	within := defaultUpcoming
	if len(req.Args) > 0 {
		h, err := strconv.Atoi(req.Args[0])
		if err != nil || h <= 0 || h > 24*30 {
			return req.Reply(ctx, r.adapter, "Usage: /upcoming [hours], for example /upcoming 48", false)
		}
		within = time.Duration(h) * time.Hour
	}
	ts, err := r.deps.Tasks.Upcoming(ctx, req.Owner, within)
	if err != nil {
		_ = req.Reply(ctx, r.adapter, "Couldn't load your tasks right now.", false)
		return err
	}
	if len(ts) == 0 {
		return req.Reply(ctx, r.adapter, fmt.Sprintf("Nothing due in the next %s.", formatHours(within)), false)
	}
	return req.Reply(ctx, r.adapter, fmt.Sprintf("Due in the next %s:\n", formatHours(within))+r.formatTasks(ts), false)
}

func (r *Router) cmdCancel(ctx context.Context, req *Request) error {
	res := r.deps.Dialogue.Cancel(req.Session)
	return req.Reply(ctx, r.adapter, res.Message, false)
}

func (r *Router) cmdNotifications(ctx context.Context, req *Request) error {
	if len(req.Args) > 0 && strings.EqualFold(req.Args[0], "clear") {
		n := r.deps.Inbox.ClearAll(req.Owner)
		return req.Reply(ctx, r.adapter, fmt.Sprintf("Cleared %d notification(s).", n), false)
	}
	items := r.deps.Inbox.List(req.Owner, true)
	if len(items) == 0 {
		return req.Reply(ctx, r.adapter, "No unread notifications.", false)
	}
	var b strings.Builder
	b.WriteString("Unread notifications:\n")
	loc := r.location()
	for _, it := range items {
		fmt.Fprintf(&b, "• %s  %s\n", it.CreatedAt.In(loc).Format("Jan 2 15:04"), it.Message)
		r.deps.Inbox.MarkRead(it.ID)
	}
	return req.Reply(ctx, r.adapter, b.String(), false)
}

func (r *Router) location() *time.Location {
	if r.deps.Location != nil {
		if loc := r.deps.Location(); loc != nil {
			return loc
		}
	}
	return time.Local
}

func (r *Router) formatTasks(ts []task.Task) string {
	loc := r.location()
	var b strings.Builder
	for i, t := range ts {
		mark := "☐"
		if t.Completed {
			mark = "☑"
		}
		fmt.Fprintf(&b, "%d. %s %s", i+1, mark, t.Text)
		if t.Scheduled() {
			fmt.Fprintf(&b, " (%s)", t.ScheduledFor.In(loc).Format("Mon Jan 2, 3:04 PM"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatHours(d time.Duration) string {
	h := int(d / time.Hour)
	if h == 1 {
		return "hour"
	}
	return strconv.Itoa(h) + " hours"
}

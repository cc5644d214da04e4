package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

func (h *handler) startCreation(ctx context.Context, text string) Response {
	res := h.m.parser.Parse(text, h.now)
	switch {
	case res.Description != "" && res.Resolved():
		return h.create(ctx, res.Description, res.At)
	case res.Description != "":
		h.set(&CreationFlow{State: AwaitingTime, Name: res.Description})
		return prompt(fmt.Sprintf(msgAskTime, res.Description), InputTime)
	case res.Resolved():
		h.set(&CreationFlow{State: AwaitingName, At: res.At})
		return prompt(fmt.Sprintf(msgAskNameForTime, formatWhen(*res.At)), InputTaskName)
	default:
		h.set(&CreationFlow{State: AwaitingName})
		return prompt(msgAskName, InputTaskName)
	}
}

func (h *handler) creation(ctx context.Context, f *CreationFlow, input string) Response {
	switch f.State {
	case AwaitingName:
		if input == "" {
			return prompt(msgNameRetry, InputTaskName)
		}
		if f.At != nil {
			h.clear()
			return h.create(ctx, input, f.At)
		}
		f.Name = input
		f.State = AwaitingTime
		return prompt(fmt.Sprintf(msgAskTime, input), InputTime)

	case AwaitingTime:
		if hasPhrase(input, noTimeTokens) {
			h.clear()
			return h.create(ctx, f.Name, nil)
		}
		res := h.m.parser.Parse(f.Name+" "+input, h.now)
		if !res.Resolved() {
			return prompt(msgTimeRetry, InputTime)
		}
		h.clear()
		return h.create(ctx, f.Name, res.At)
	}
	h.clear()
	return reply(msgCreateFailed)
}

// create is the final commit of every creation path; the flow is already
// cleared when it runs.
func (h *handler) create(ctx context.Context, name string, at *time.Time) Response {
	t, err := h.m.tasks.Create(ctx, name, at, h.owner)
	switch {
	case err == nil:
	case errors.Is(err, task.ErrScheduleFailed) && t.ID != 0:
		r := withTask(reply(fmt.Sprintf(msgCreatedNoRem, t.Text, formatWhen(*t.ScheduledFor))), t)
		r.TaskCreated = true
		return r
	default:
		h.m.log.Warn("task create failed", logx.String("session", h.session), logx.Err(err))
		return reply(msgCreateFailed)
	}

	msg := fmt.Sprintf(msgCreatedNoTime, t.Text)
	if t.Scheduled() {
		msg = fmt.Sprintf(msgCreatedAt, t.Text, formatWhen(*t.ScheduledFor))
	}
	r := withTask(reply(msg), t)
	r.TaskCreated = true
	return r
}

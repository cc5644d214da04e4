package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

func (h *handler) startManagement(ctx context.Context, op Op) Response {
	ts, err := h.m.tasks.List(ctx, h.owner)
	if err != nil {
		h.m.log.Warn("task list failed", logx.String("session", h.session), logx.Err(err))
		return reply(msgListFailed)
	}
	if op == OpComplete {
		ts = task.Open(ts)
	}
	if len(ts) == 0 {
		if op == OpComplete {
			return reply(msgNoOpenTasks)
		}
		return reply(fmt.Sprintf(msgNoTasks, opVerb[op]))
	}

	ids := make([]int64, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	h.set(&ManagementFlow{Op: op, State: AwaitingSelection, Candidates: ids})

	r := prompt(fmt.Sprintf(msgPickTask, opVerb[op], enumerate(ts)), InputTaskSelection)
	r.Tasks = ts
	return r
}

func (h *handler) management(ctx context.Context, f *ManagementFlow, input string) Response {
	switch f.State {
	case AwaitingSelection:
		return h.selectTask(ctx, f, input)
	case AwaitingNewName:
		return h.rename(ctx, f, input)
	case AwaitingNewTime:
		return h.retime(ctx, f, input)
	}
	h.clear()
	return reply(fmt.Sprintf(msgOpFailed, opVerb[f.Op]))
}

func (h *handler) selectTask(ctx context.Context, f *ManagementFlow, input string) Response {
	ts, err := h.m.tasks.List(ctx, h.owner)
	if err != nil {
		h.m.log.Warn("task list failed", logx.String("session", h.session), logx.Err(err))
		return prompt(msgListFailed, InputTaskSelection)
	}
	if f.Op == OpComplete {
		// completed elsewhere since the list was shown
		ts = task.Open(ts)
	}
	sel, err := pick(candidates(f.Candidates, ts), input)
	if err != nil {
		return prompt(msgSelectionRetry, InputTaskSelection)
	}

	switch f.Op {
	case OpDelete:
		h.clear()
		ok, err := h.m.tasks.Delete(ctx, sel.ID)
		if err != nil {
			h.m.log.Warn("task delete failed", logx.Int64("task_id", sel.ID), logx.Err(err))
			return reply(fmt.Sprintf(msgOpFailed, "delete"))
		}
		if !ok {
			return reply(msgTaskGone)
		}
		r := reply(fmt.Sprintf(msgDeleted, sel.Text))
		r.TaskID = sel.ID
		r.TaskDeleted = true
		return r

	case OpComplete:
		h.clear()
		t, err := h.m.tasks.Complete(ctx, sel.ID)
		if errors.Is(err, task.ErrNotFound) {
			return reply(msgTaskGone)
		}
		if err != nil {
			h.m.log.Warn("task complete failed", logx.Int64("task_id", sel.ID), logx.Err(err))
			return reply(fmt.Sprintf(msgOpFailed, "complete"))
		}
		r := withTask(reply(fmt.Sprintf(msgCompleted, t.Text)), t)
		r.TaskCompleted = true
		return r

	default:
		f.TargetID = sel.ID
		f.State = AwaitingNewName
		return withTask(prompt(fmt.Sprintf(msgAskNewName, sel.Text), InputNewTaskName), *sel)
	}
}

func (h *handler) rename(ctx context.Context, f *ManagementFlow, input string) Response {
	if input == "" {
		return prompt(fmt.Sprintf(msgAskNewName, "the task"), InputNewTaskName)
	}
	t, err := h.m.tasks.Rename(ctx, f.TargetID, input)
	switch {
	case err == nil, errors.Is(err, task.ErrScheduleFailed) && t.ID != 0:
	case errors.Is(err, task.ErrNotFound):
		h.clear()
		return reply(msgTaskGone)
	default:
		h.m.log.Warn("task rename failed", logx.Int64("task_id", f.TargetID), logx.Err(err))
		return prompt(msgRenameFailed, InputNewTaskName)
	}

	f.State = AwaitingNewTime
	r := withTask(prompt(fmt.Sprintf(msgRenamed, t.Text), InputNewTaskTime), t)
	r.TaskUpdated = true
	return r
}

// retime is the final step of an edit; every outcome clears the flow.
func (h *handler) retime(ctx context.Context, f *ManagementFlow, input string) Response {
	h.clear()
	id := f.TargetID

	if hasPhrase(input, keepTokens) {
		r := reply(msgUpdated)
		r.TaskID = id
		r.TaskUpdated = true
		return r
	}

	res := h.m.parser.Parse(input, h.now)
	if !res.Resolved() {
		// the rename stays committed and the old schedule is kept
		r := reply(msgBadNewTime)
		r.TaskID = id
		r.TaskUpdated = true
		return r
	}

	t, err := h.m.tasks.Reschedule(ctx, id, *res.At)
	switch {
	case err == nil:
		r := withTask(reply(fmt.Sprintf(msgRescheduled, formatWhen(*t.ScheduledFor))), t)
		r.TaskUpdated = true
		return r
	case errors.Is(err, task.ErrScheduleFailed) && t.ID != 0:
		r := withTask(reply(fmt.Sprintf(msgRescheduleNoRem, formatWhen(*t.ScheduledFor))), t)
		r.TaskUpdated = true
		return r
	case errors.Is(err, task.ErrNotFound):
		return reply(msgTaskGone)
	default:
		h.m.log.Warn("task reschedule failed", logx.Int64("task_id", id), logx.Err(err))
		r := reply(msgRescheduleFailed)
		r.TaskID = id
		return r
	}
}

// candidates lines up the listed ids with the current tasks. Positions of
// tasks that no longer exist hold nil.
func candidates(ids []int64, current []task.Task) []*task.Task {
	byID := make(map[int64]*task.Task, len(current))
	for i := range current {
		byID[current[i].ID] = &current[i]
	}
	out := make([]*task.Task, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out
}

// pick resolves a selection: an in-range number first, then the first
// case-insensitive substring match in list order.
func pick(cands []*task.Task, input string) (*task.Task, error) {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(strings.TrimSuffix(input, ".")); err == nil && n >= 1 && n <= len(cands) {
		if c := cands[n-1]; c != nil {
			return c, nil
		}
		return nil, task.ErrSelectionNotFound
	}
	needle := strings.ToLower(input)
	if needle == "" {
		return nil, task.ErrSelectionNotFound
	}
	for _, c := range cands {
		if c != nil && strings.Contains(strings.ToLower(c.Text), needle) {
			return c, nil
		}
	}
	return nil, task.ErrSelectionNotFound
}

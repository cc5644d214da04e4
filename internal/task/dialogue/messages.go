package dialogue

import (
	"fmt"
	"strings"
	"time"

	"taskbot/internal/task"
)

const (
	msgAskName        = "Sure. What should I call this task?"
	msgAskNameForTime = "Sure, for %s. What should I call this task?"
	msgAskTime        = "Got it: '%s'. When should I remind you? Try '3 PM', 'tomorrow', 'in 30 minutes', or 'no time'."
	msgTimeRetry      = "I didn't catch that time. Try '3 PM', 'tomorrow', or 'in 30 minutes', or say 'no time'."
	msgNameRetry      = "The task needs a name. What should I call it?"
	msgCreatedNoTime  = "Task '%s' created. I'll keep it on your list."
	msgCreatedAt      = "Task '%s' scheduled for %s. I'll remind you then."
	msgCreatedNoRem   = "Task '%s' saved for %s, but I couldn't set the reminder."
	msgCreateFailed   = "I couldn't save that task. Please try again later."

	msgNoTasks          = "You don't have any tasks to %s."
	msgNoOpenTasks      = "You don't have any open tasks. Well done!"
	msgPickTask         = "Which task would you like to %s? Here are your tasks:\n%sSay the number or part of the name."
	msgSelectionRetry   = "I couldn't find that task. Say the number or part of the name."
	msgListFailed       = "I couldn't load your tasks right now. Please try again."
	msgDeleted          = "Task '%s' deleted."
	msgCompleted        = "Task '%s' marked as complete. Nice work."
	msgTaskGone         = "That task no longer exists."
	msgOpFailed         = "I couldn't %s that task. Please try again later."
	msgAskNewName       = "What would you like to rename '%s' to?"
	msgRenamed          = "Renamed to '%s'. Want to change the time too? Say a new time, or 'keep' to leave it as is."
	msgRenameFailed     = "I couldn't rename the task right now. What should the new name be?"
	msgUpdated          = "Task updated."
	msgRescheduled      = "Task updated. It is now scheduled for %s."
	msgRescheduleNoRem  = "Task moved to %s, but I couldn't set the reminder."
	msgRescheduleFailed = "The name was updated, but I couldn't save the new time."
	msgBadNewTime       = "The task name was updated, but I couldn't understand the new time, so the schedule is unchanged."

	msgCancelled = "Okay, cancelled."
	msgNothing   = "There's nothing to cancel."
	msgFallback  = "I can keep track of tasks for you. Try 'remind me to call John at 3 PM', 'edit task', 'complete task' or 'delete task'."
)

var opVerb = map[Op]string{
	OpDelete:   "delete",
	OpEdit:     "edit",
	OpComplete: "complete",
}

func formatWhen(t time.Time) string {
	return t.Format("3:04 PM on Mon, Jan 2")
}

func enumerate(ts []task.Task) string {
	var b strings.Builder
	for i, t := range ts {
		fmt.Fprintf(&b, "%d. %s", i+1, t.Text)
		if t.Scheduled() {
			fmt.Fprintf(&b, " (%s)", formatWhen(*t.ScheduledFor))
		}
		if t.Completed {
			b.WriteString(" ✓")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

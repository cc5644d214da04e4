package dialogue

import "taskbot/internal/task"

// Response is the single reply produced for every handled command.
type Response struct {
	Message       string      `json:"response"`
	AwaitingInput bool        `json:"awaitingInput,omitempty"`
	InputType     InputType   `json:"inputType,omitempty"`
	Task          *task.Task  `json:"task,omitempty"`
	Tasks         []task.Task `json:"tasks,omitempty"`
	TaskID        int64       `json:"taskId,omitempty"`
	TaskCreated   bool        `json:"taskCreated,omitempty"`
	TaskDeleted   bool        `json:"taskDeleted,omitempty"`
	TaskCompleted bool        `json:"taskCompleted,omitempty"`
	TaskUpdated   bool        `json:"taskUpdated,omitempty"`

	// Handled is false when the text matched no flow and no intent.
	Handled bool `json:"-"`
}

func prompt(msg string, in InputType) Response {
	return Response{Message: msg, AwaitingInput: true, InputType: in, Handled: true}
}

func reply(msg string) Response {
	return Response{Message: msg, Handled: true}
}

func withTask(r Response, t task.Task) Response {
	c := t.Clone()
	r.Task = &c
	r.TaskID = t.ID
	return r
}

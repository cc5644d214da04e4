package dialogue

import "time"

// Flow is a pending multi-step operation. It is implemented only by
// *CreationFlow and *ManagementFlow.
type Flow interface {
	Kind() string
	isFlow()
}

type CreationState int

const (
	AwaitingName CreationState = iota + 1
	AwaitingTime
)

func (s CreationState) String() string {
	switch s {
	case AwaitingName:
		return "awaiting_name"
	case AwaitingTime:
		return "awaiting_time"
	default:
		return "unknown"
	}
}

// CreationFlow collects the name and due time of a new task. At is set when
// the opening command carried a time but no name.
type CreationFlow struct {
	State CreationState
	Name  string
	At    *time.Time
}

func (*CreationFlow) Kind() string { return "create" }
func (*CreationFlow) isFlow()      {}

type Op string

const (
	OpDelete   Op = "delete"
	OpEdit     Op = "edit"
	OpComplete Op = "complete"
)

type ManagementState int

const (
	AwaitingSelection ManagementState = iota + 1
	AwaitingNewName
	AwaitingNewTime
)

func (s ManagementState) String() string {
	switch s {
	case AwaitingSelection:
		return "awaiting_selection"
	case AwaitingNewName:
		return "awaiting_new_name"
	case AwaitingNewTime:
		return "awaiting_new_time"
	default:
		return "unknown"
	}
}

// ManagementFlow drives delete, edit and complete. Candidates are the task
// ids in the order they were listed, so numbers stay stable for the flow's
// lifetime.
type ManagementFlow struct {
	Op         Op
	State      ManagementState
	TargetID   int64
	Candidates []int64
}

func (f *ManagementFlow) Kind() string { return string(f.Op) }
func (*ManagementFlow) isFlow()        {}

// InputType tells a client what the next message is expected to be.
type InputType string

const (
	InputTaskName      InputType = "taskName"
	InputTime          InputType = "time"
	InputTaskSelection InputType = "taskSelection"
	InputNewTaskName   InputType = "newTaskName"
	InputNewTaskTime   InputType = "newTaskTime"
)

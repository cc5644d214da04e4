package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskbot/internal/eventbus"
	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

// Config controls the scheduler.
type Config struct {
	Enabled     bool
	Timezone    string        // IANA TZ, e.g. "Asia/Jakarta"
	FireTimeout time.Duration // bound for one Sink.Emit call
	JobTimeout  time.Duration // default bound for maintenance jobs
}

const (
	defaultFireTimeout = 30 * time.Second
	defaultJobTimeout  = time.Minute
)

// Sink receives fired reminders. Emit must not block for long.
type Sink interface {
	Emit(ctx context.Context, t task.Task)
}

// Job is a maintenance job body.
type Job func(ctx context.Context) error

type reminder struct {
	task  task.Task
	at    time.Time
	ver   uint64
	timer *time.Timer // nil while disarmed
}

type scheduleDef struct {
	name    string
	spec    string // cron spec or @every
	timeout time.Duration
	job     Job
	entryID cron.EntryID
	spread  time.Duration
}

type Service struct {
	mu sync.Mutex

	log  logx.Logger
	cfg  Config
	loc  *time.Location
	bus  eventbus.Bus
	sink Sink

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	// reminders; armed is true between Start and Stop
	tmu       sync.Mutex
	reminders map[int64]*reminder
	seq       uint64
	armed     bool

	fired  uint64
	failed uint64
}

type ScheduleInfo struct {
	Name    string        `json:"name"`
	Spec    string        `json:"spec"`
	Timeout time.Duration `json:"timeout"`
	Next    time.Time     `json:"next"`
	Prev    time.Time     `json:"prev"`
}

type PendingInfo struct {
	TaskID int64     `json:"taskId"`
	Text   string    `json:"text"`
	Owner  string    `json:"owner,omitempty"`
	At     time.Time `json:"at"`
}

type Snapshot struct {
	Enabled   bool           `json:"enabled"`
	Timezone  string         `json:"timezone"`
	Armed     bool           `json:"armed"`
	Fired     uint64         `json:"fired"`
	Failed    uint64         `json:"failed"`
	Pending   []PendingInfo  `json:"pending"`
	Schedules []ScheduleInfo `json:"schedules"`
}

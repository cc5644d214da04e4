package dialogue

import (
	"context"
	"strings"
	"time"

	"taskbot/internal/eventbus"
	"taskbot/internal/task"
	"taskbot/internal/task/timeparse"
	logx "taskbot/pkg/logx"
)

// Tasks is the task API the machine drives.
type Tasks interface {
	Create(ctx context.Context, text string, at *time.Time, owner string) (task.Task, error)
	List(ctx context.Context, owner string) ([]task.Task, error)
	Rename(ctx context.Context, id int64, text string) (task.Task, error)
	Reschedule(ctx context.Context, id int64, at time.Time) (task.Task, error)
	Complete(ctx context.Context, id int64) (task.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// FlowEvent is the payload of dialogue.* events.
type FlowEvent struct {
	Session string
	Kind    string
}

type Machine struct {
	tasks    Tasks
	sessions *Sessions
	parser   *timeparse.Parser
	now      func() time.Time
	log      logx.Logger
	bus      eventbus.Bus
}

type Option func(*Machine)

func WithParser(p *timeparse.Parser) Option { return func(m *Machine) { m.parser = p } }

// WithClock sets the reference time for parsing. Its location decides what
// "3 PM" means.
func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

func WithLogger(log logx.Logger) Option { return func(m *Machine) { m.log = log } }

func WithBus(bus eventbus.Bus) Option { return func(m *Machine) { m.bus = bus } }

func New(tasks Tasks, sessions *Sessions, opts ...Option) *Machine {
	if sessions == nil {
		sessions = NewSessions(0)
	}
	m := &Machine{
		tasks:    tasks,
		sessions: sessions,
		parser:   timeparse.New(),
		now:      time.Now,
		log:      logx.Nop(),
		bus:      eventbus.Nop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Machine) Sessions() *Sessions { return m.sessions }

// Handle processes one command for sessionID. owner scopes the task list.
func (m *Machine) Handle(ctx context.Context, sessionID, owner, text string) Response {
	text = strings.TrimSpace(text)
	ss := m.sessions.acquire(sessionID)
	defer ss.mu.Unlock()

	now := m.now()
	if ss.expired(now, m.sessions.TTL()) {
		m.log.Debug("flow expired", logx.String("session", sessionID), logx.String("kind", ss.flow.Kind()))
		m.publish(eventbus.FlowExpired, sessionID, ss.flow)
		ss.flow = nil
	}
	ss.touched = now

	h := &handler{m: m, ss: ss, session: sessionID, owner: owner, now: now}
	if ss.flow != nil {
		if isCancel(text) {
			h.clear()
			return reply(msgCancelled)
		}
		switch f := ss.flow.(type) {
		case *CreationFlow:
			return h.creation(ctx, f, text)
		case *ManagementFlow:
			return h.management(ctx, f, text)
		}
	}

	switch classify(text) {
	case intentDelete:
		return h.startManagement(ctx, OpDelete)
	case intentEdit:
		return h.startManagement(ctx, OpEdit)
	case intentComplete:
		return h.startManagement(ctx, OpComplete)
	case intentCreate:
		return h.startCreation(ctx, text)
	}
	return Response{Message: msgFallback}
}

// Cancel clears the active flow of sessionID.
func (m *Machine) Cancel(sessionID string) Response {
	ss := m.sessions.acquire(sessionID)
	defer ss.mu.Unlock()
	if ss.flow == nil {
		return reply(msgNothing)
	}
	h := &handler{m: m, ss: ss, session: sessionID}
	h.clear()
	return reply(msgCancelled)
}

// Sweep expires idle flows. It is registered as a scheduler job.
func (m *Machine) Sweep(ctx context.Context) error {
	for _, id := range m.sessions.Sweep(m.now()) {
		m.log.Debug("flow expired", logx.String("session", id))
		m.bus.Publish(eventbus.Event{Type: eventbus.FlowExpired, Time: time.Now(), Data: FlowEvent{Session: id}})
	}
	return nil
}

func (m *Machine) publish(typ, session string, f Flow) {
	ev := FlowEvent{Session: session}
	if f != nil {
		ev.Kind = f.Kind()
	}
	m.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: ev})
}

// handler carries one Handle call. The session mutex is held throughout.
type handler struct {
	m       *Machine
	ss      *session
	session string
	owner   string
	now     time.Time
}

func (h *handler) set(f Flow) {
	started := h.ss.flow == nil
	h.ss.flow = f
	if started {
		h.m.publish(eventbus.FlowStarted, h.session, f)
	}
}

func (h *handler) clear() {
	if h.ss.flow == nil {
		return
	}
	f := h.ss.flow
	h.ss.flow = nil
	h.m.publish(eventbus.FlowCleared, h.session, f)
}

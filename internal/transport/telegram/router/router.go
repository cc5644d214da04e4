// Package router dispatches Telegram updates to slash commands and to the
// task dialogue.
package router

import (
	"context"
	"hash/fnv"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	rtsup "taskbot/internal/runtime/supervisor"
	kit "taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

// Command is one slash command. Name has no leading slash.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Timeout     time.Duration
	Handle      HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string
	Text    string
	ReqID   string

	// Session keys the dialogue; Owner scopes tasks and notifications.
	Session string
	Owner   string

	Logger logx.Logger
}

// Reply sends text back to the chat the request came from.
func (r *Request) Reply(ctx context.Context, a kit.Adapter, text string, html bool) error {
	opt := &kit.SendOptions{DisablePreview: true}
	if html {
		opt.ParseMode = "HTML"
	}
	_, err := a.SendText(ctx, r.Chat, text, opt)
	return err
}

// Router owns a keyed worker pool: every update of one session lands on the
// same worker, so a chat's messages are handled in arrival order.
type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	deps    Deps

	mu       sync.RWMutex
	commands map[string]*Command
	ordered  []*Command
	allowed  []int64
	timeout  time.Duration

	runMu sync.Mutex
	sup   *rtsup.Supervisor
	lanes []chan func()
}

// Options are the hot-reloadable router settings.
type Options struct {
	// AllowedUsers limits who may talk to the bot; empty allows everyone.
	AllowedUsers []int64
	// Timeout bounds one handler call.
	Timeout time.Duration
	Workers int
}

func New(log logx.Logger, adapter kit.Adapter, deps Deps, opt Options) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{log: log, adapter: adapter, deps: deps}
	r.Apply(opt)

	workers := opt.Workers
	if workers <= 0 {
		workers = max(runtime.NumCPU(), 2)
	}
	r.lanes = make([]chan func(), workers)
	for i := range r.lanes {
		r.lanes[i] = make(chan func(), 64)
	}
	r.register(r.builtins())
	return r
}

func (r *Router) Apply(opt Options) {
	r.mu.Lock()
	r.allowed = append([]int64(nil), opt.AllowedUsers...)
	r.timeout = opt.Timeout
	if r.timeout <= 0 {
		r.timeout = 30 * time.Second
	}
	r.mu.Unlock()
}

func (r *Router) register(cmds []Command) {
	m := map[string]*Command{}
	ordered := make([]*Command, 0, len(cmds))
	for i := range cmds {
		c := &cmds[i]
		if c.Name == "" || c.Handle == nil {
			continue
		}
		m[c.Name] = c
		for _, a := range c.Aliases {
			if _, taken := m[a]; !taken {
				m[a] = c
			}
		}
		ordered = append(ordered, c)
	}
	r.mu.Lock()
	r.commands, r.ordered = m, ordered
	r.mu.Unlock()
}

// Commands lists registered commands in registration order.
func (r *Router) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.ordered))
	for _, c := range r.ordered {
		out = append(out, *c)
	}
	return out
}

// Supervisor exposes worker counters. Nil when not running.
func (r *Router) Supervisor() *rtsup.Supervisor {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.sup
}

// DispatchLoop consumes updates until ctx is done or updates is closed.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.New(ctx,
		rtsup.WithLogger(r.log.With(logx.String("comp", "telegram.router"))),
		rtsup.WithCancelOnError(false),
	)
	r.runMu.Lock()
	r.sup = sup
	r.runMu.Unlock()

	for i, lane := range r.lanes {
		sup.GoRestart("worker."+strconv.Itoa(i), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-lane:
					job()
				}
			}
		}, rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second), rtsup.WithPublishFirstError(true))
	}
	r.log.Info("dispatcher started", logx.Int("workers", len(r.lanes)))

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		r.runMu.Lock()
		r.sup = nil
		r.runMu.Unlock()
		r.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.route(ctx, up)
		}
	}
}

func (r *Router) route(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	r.mu.RLock()
	allowed, timeout := r.allowed, r.timeout
	r.mu.RUnlock()
	if len(allowed) > 0 && !slices.Contains(allowed, msg.FromID) {
		r.log.Debug("update from unlisted user ignored", logx.Int64("from_id", msg.FromID))
		_, _ = r.adapter.SendText(ctx, chat, "Sorry, this bot is private.", nil)
		return
	}

	req := &Request{
		Update:  up,
		Chat:    chat,
		FromID:  msg.FromID,
		Text:    strings.TrimSpace(msg.Text),
		ReqID:   uuid.NewString()[:8],
		Session: SessionID(msg),
		Owner:   kit.OwnerFor(chat),
	}
	req.Logger = r.log.With(
		logx.String("rid", req.ReqID),
		logx.Int64("chat_id", msg.ChatID),
		logx.Int("thread_id", msg.ThreadID),
		logx.Int64("from_id", msg.FromID),
	)

	h := r.dialogueHandler
	if name, args, ok := parseCommand(req.Text); ok {
		r.mu.RLock()
		cmd := r.commands[name]
		r.mu.RUnlock()
		if cmd == nil {
			_ = req.Reply(ctx, r.adapter, "Unknown command. Try /help", false)
			return
		}
		req.Command, req.Args = cmd.Name, args
		h = cmd.Handle
		if cmd.Timeout > 0 {
			timeout = cmd.Timeout
		}
	} else {
		req.Command = "dialogue"
	}

	final := Chain(h, MWPanicRecover(), MWRequestLog(), MWTimeout(timeout))
	if !r.enqueue(req.Session, func() { _ = final(ctx, req) }) {
		_ = req.Reply(ctx, r.adapter, "Busy, please try again in a moment.", false)
	}
}

func (r *Router) enqueue(key string, job func()) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	lane := r.lanes[int(h.Sum32()%uint32(len(r.lanes)))]
	select {
	case lane <- job:
		return true
	default:
		return false
	}
}

// SessionID keys a dialogue per chat, topic and user.
func SessionID(m *kit.Message) string {
	return "tg:" + strconv.FormatInt(m.ChatID, 10) + ":" + strconv.Itoa(m.ThreadID) + ":" + strconv.FormatInt(m.FromID, 10)
}

// parseCommand splits "/cmd@bot a b" into ("cmd", [a b]).
func parseCommand(text string) (string, []string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	parts := strings.Fields(text)
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	name, _, _ = strings.Cut(name, "@")
	if name == "" {
		return "", nil, false
	}
	return name, parts[1:], true
}

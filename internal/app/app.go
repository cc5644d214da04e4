// Package app wires configuration, storage, the task services and the
// transports into one runnable process.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"taskbot/internal/config"
	"taskbot/internal/eventbus"
	"taskbot/internal/notifier"
	rtsup "taskbot/internal/runtime/supervisor"
	"taskbot/internal/storage"
	"taskbot/internal/task/dialogue"
	"taskbot/internal/task/manager"
	"taskbot/internal/task/scheduler"
	kit "taskbot/internal/transport"
	"taskbot/internal/transport/httpapi"
	telegram "taskbot/internal/transport/telegram/adapter"
	"taskbot/internal/transport/telegram/router"
	logx "taskbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor
	reg  *rtsup.Registry

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	sched  *scheduler.Service
	notif  *notifier.Service
	tasks  *manager.Manager
	dialog *dialogue.Machine

	// nil when telegram.token is empty
	adapter *telegram.Adapter
	router  *router.Router
	updates chan kit.Update

	http *httpapi.Server
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	var (
		ad     *telegram.Adapter
		sender kit.Adapter
	)
	if strings.TrimSpace(cfg.Telegram.Token) != "" {
		pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		ad, err = telegram.New(telegram.Config{Token: cfg.Telegram.Token, PollTimeout: pollTimeout},
			logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		sender = ad
	}

	logSvc, root := logx.New(mapLogging(cfg), sender)
	log := root.With(logx.String("comp", "app"))
	bus := eventbus.New()

	sc, err := mapStorage(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	ncfg, err := mapNotifier(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, sender, root.With(logx.String("comp", "notifier")), bus)

	schedCfg, err := mapScheduler(cfg)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(schedCfg, notif, root.With(logx.String("comp", "scheduler")), bus)

	tasks := manager.New(store, sched, root.With(logx.String("comp", "tasks")), bus, manager.WithClock(sched.Now))
	dialog := dialogue.New(tasks, dialogue.NewSessions(flowTTL(cfg)),
		dialogue.WithClock(sched.Now),
		dialogue.WithLogger(root.With(logx.String("comp", "dialogue"))),
		dialogue.WithBus(bus),
	)

	a := &App{
		cfgm:    cfgm,
		reg:     rtsup.NewRegistry(),
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		sched:   sched,
		notif:   notif,
		tasks:   tasks,
		dialog:  dialog,
		adapter: ad,
		updates: make(chan kit.Update, 256),
	}

	if ad != nil {
		opt, err := mapRouter(cfg)
		if err != nil {
			return nil, err
		}
		a.router = router.New(root.With(logx.String("comp", "telegram.router")), ad, router.Deps{
			Dialogue: dialog,
			Tasks:    tasks,
			Inbox:    notif,
			Location: sched.Location,
		}, opt)
	}
	if cfg.HTTP.Enabled {
		a.http = httpapi.New(httpapi.Deps{
			Dialogue:  dialog,
			Tasks:     tasks,
			Inbox:     notif,
			Health:    a.reg.Counters,
			Scheduler: sched.Snapshot,
		}, root.With(logx.String("comp", "http")))
	}

	if err := a.registerJobs(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Tasks exposes the task manager, mainly for tests and tooling.
func (a *App) Tasks() *manager.Manager { return a.tasks }

// Dialogue exposes the dialogue state machine.
func (a *App) Dialogue() *dialogue.Machine { return a.dialog }

// Done is closed when the app supervisor context is canceled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error seen by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.reg.Set("app", a.sup)

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validate(cfg) })

	if a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
		a.reg.Set("notifier", a.notif.Supervisor())
	}

	if a.cfgm.Get().Scheduler.RestoreOnStart {
		armed, overdue, err := a.tasks.RestoreReminders(a.sup.Context())
		switch {
		case err != nil:
			a.log.Warn("reminder restore incomplete", logx.Int("armed", armed), logx.Err(err))
		case armed > 0 || overdue > 0:
			a.log.Info("reminders restored", logx.Int("armed", armed), logx.Int("overdue", overdue))
		}
	}
	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	}

	if a.adapter != nil {
		if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
			return err
		}
		a.reg.Set("telegram.adapter", a.adapter.Supervisor())
		a.syncMenu()
		a.sup.Go("telegram.dispatch", func(c context.Context) error {
			return a.router.DispatchLoop(c, a.updates)
		})
	}

	if a.http != nil {
		if err := a.http.Start(a.sup, httpAddr(a.cfgm.Get())); err != nil {
			return fmt.Errorf("http api: %w", err)
		}
	}

	a.logEvents()
	a.watchConfig()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify ready failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("app started")
	return nil
}

// syncMenu publishes the router's commands as the Telegram menu.
func (a *App) syncMenu() {
	entries := a.router.MenuCommands()
	cmds := make([]telegram.BotCommand, 0, len(entries))
	for _, e := range entries {
		cmds = append(cmds, telegram.BotCommand{Command: e.Command, Description: e.Description})
	}
	if err := a.adapter.SetCommands(cmds); err != nil {
		a.log.Warn("telegram command menu not updated", logx.Err(err))
	}
}

// logEvents mirrors bus traffic at debug level.
func (a *App) logEvents() {
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.sup.Cancel()

	// One step may not stall the whole shutdown.
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			limit = min(limit, time.Until(dl))
		}
		if limit <= 0 {
			a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			var err error
			if perr := rtsup.Guard(a.log, "stop."+name, func() { err = fn(stepCtx) }); perr != nil {
				err = perr
			}
			done <- err
		}()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	if a.http != nil {
		step("http", 2*time.Second, a.http.Stop)
	}
	if a.adapter != nil {
		step("adapter", 2*time.Second, a.adapter.Stop)
	}
	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	return a.logs.Close()
}

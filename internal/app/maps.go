package app

import (
	"fmt"
	"strings"
	"time"

	"taskbot/internal/config"
	"taskbot/internal/notifier"
	"taskbot/internal/storage"
	"taskbot/internal/task/scheduler"
	kit "taskbot/internal/transport"
	"taskbot/internal/transport/telegram/router"
	logx "taskbot/pkg/logx"
)

const (
	defaultFlowTTL      = 30 * time.Minute
	defaultFlowSweep    = time.Minute
	defaultDigestWindow = 24 * time.Hour
	defaultHTTPAddr     = "127.0.0.1:8080"
)

func mapLogging(cfg *config.Config) logx.Config {
	chat, thread, _ := config.ParseChat("telegram.log_chat", cfg.Telegram.LogChat)
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled && chat != 0,
			ChatID:     chat,
			ThreadID:   thread,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapStorage(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" {
		driver = "memory"
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path), BusyTimeout: busy}, nil
}

func mapScheduler(cfg *config.Config) (scheduler.Config, error) {
	fire, err := config.ParseDurationField("scheduler.fire_timeout", cfg.Scheduler.FireTimeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	job, err := config.ParseDurationField("scheduler.job_timeout", cfg.Scheduler.JobTimeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Enabled:     cfg.Scheduler.Enabled,
		Timezone:    cfg.Scheduler.Timezone,
		FireTimeout: fire,
		JobTimeout:  job,
	}, nil
}

func mapNotifier(cfg *config.Config) (notifier.Config, error) {
	nc := cfg.NotifierOrDefault()
	var (
		out  = notifier.Config{Enabled: nc.Enabled, Workers: nc.Workers, QueueSize: nc.QueueSize, RatePerSec: nc.RatePerSec, RetryMax: nc.RetryMax, DedupMaxEntries: nc.DedupMaxEntries, InboxSize: nc.InboxSize}
		errs []error
	)
	parse := func(dst *time.Duration, path, raw string) {
		d, err := config.ParseDurationField(path, raw)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = d
	}
	parse(&out.RetryBase, "notifier.retry_base", nc.RetryBase)
	parse(&out.RetryMaxDelay, "notifier.retry_max_delay", nc.RetryMaxDelay)
	parse(&out.SendTimeout, "notifier.send_timeout", nc.SendTimeout)
	parse(&out.DedupWindow, "notifier.dedup_window", nc.DedupWindow)
	if len(errs) > 0 {
		return notifier.Config{}, errs[0]
	}
	chat, thread, err := config.ParseChat("notifier.default_chat", nc.DefaultChat)
	if err != nil {
		return notifier.Config{}, err
	}
	out.DefaultChat = kit.ChatTarget{ChatID: chat, ThreadID: thread}
	return out, nil
}

func mapRouter(cfg *config.Config) (router.Options, error) {
	timeout, err := config.ParseDurationField("telegram.handler_timeout", cfg.Telegram.HandlerTimeout)
	if err != nil {
		return router.Options{}, err
	}
	return router.Options{
		AllowedUsers: cfg.Telegram.AllowedUsers,
		Timeout:      timeout,
		Workers:      cfg.Telegram.Workers,
	}, nil
}

func flowTTL(cfg *config.Config) time.Duration {
	d, err := config.ParseDurationOrDefault("dialogue.flow_ttl", cfg.Dialogue.FlowTTL, defaultFlowTTL)
	if err != nil {
		return defaultFlowTTL
	}
	return d
}

func flowSweep(cfg *config.Config) time.Duration {
	d, err := config.ParseDurationOrDefault("scheduler.flow_sweep", cfg.Scheduler.FlowSweep, defaultFlowSweep)
	if err != nil {
		return defaultFlowSweep
	}
	return d
}

func digestWindow(cfg *config.Config) time.Duration {
	d, err := config.ParseDurationOrDefault("scheduler.digest_window", cfg.Scheduler.DigestWindow, defaultDigestWindow)
	if err != nil {
		return defaultDigestWindow
	}
	return d
}

func httpAddr(cfg *config.Config) string {
	if a := strings.TrimSpace(cfg.HTTP.Addr); a != "" {
		return a
	}
	return defaultHTTPAddr
}

// validate runs the checks that need service-level parsers.
func validate(cfg *config.Config) error {
	if _, err := mapScheduler(cfg); err != nil {
		return err
	}
	if _, err := mapNotifier(cfg); err != nil {
		return err
	}
	if _, err := mapRouter(cfg); err != nil {
		return err
	}
	if d := strings.TrimSpace(cfg.Scheduler.Digest); d != "" {
		if _, err := scheduler.ParseSchedule(d); err != nil {
			return fmt.Errorf("scheduler.digest: %w", err)
		}
	}
	return nil
}

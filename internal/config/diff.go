package config

import (
	"reflect"
	"sort"
	"strings"

	logx "taskbot/pkg/logx"
)

// SummarizeChange lists the changed top-level sections and safe log fields
// describing them. Secrets are never included.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		attrs   []logx.Field
	)
	section := func(name string, differs bool, fields ...logx.Field) {
		if !differs {
			return
		}
		changed = append(changed, name)
		attrs = append(attrs, fields...)
	}

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	section("telegram",
		ot.Token != nt.Token ||
			!reflect.DeepEqual(ot.AllowedUsers, nt.AllowedUsers) ||
			strings.TrimSpace(ot.LogChat) != strings.TrimSpace(nt.LogChat) ||
			ot.PollTimeout != nt.PollTimeout || ot.HandlerTimeout != nt.HandlerTimeout || ot.Workers != nt.Workers,
		logx.Bool("telegram.token_changed", ot.Token != nt.Token),
		logx.Int("telegram.allowed_users", len(nt.AllowedUsers)),
		logx.Bool("telegram.log_chat_set", strings.TrimSpace(nt.LogChat) != ""),
		logx.String("telegram.handler_timeout", nt.HandlerTimeout),
	)

	section("http", oldCfg.HTTP != newCfg.HTTP,
		logx.Bool("http.enabled", newCfg.HTTP.Enabled),
		logx.String("http.addr", newCfg.HTTP.Addr),
	)

	section("logging", oldCfg.Logging != newCfg.Logging,
		logx.String("logging.level", newCfg.Logging.Level),
		logx.Bool("logging.console", newCfg.Logging.Console),
		logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
	)

	section("scheduler", oldCfg.Scheduler != newCfg.Scheduler,
		logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
		logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		logx.String("scheduler.digest", newCfg.Scheduler.Digest),
		logx.String("scheduler.flow_sweep", newCfg.Scheduler.FlowSweep),
		logx.Bool("scheduler.restore_on_start", newCfg.Scheduler.RestoreOnStart),
	)

	section("dialogue", oldCfg.Dialogue != newCfg.Dialogue,
		logx.String("dialogue.flow_ttl", newCfg.Dialogue.FlowTTL),
	)

	on, nn := oldCfg.NotifierOrDefault(), newCfg.NotifierOrDefault()
	section("notifier", on != nn,
		logx.Bool("notifier.enabled", nn.Enabled),
		logx.Int("notifier.workers", nn.Workers),
		logx.Int("notifier.queue_size", nn.QueueSize),
		logx.Int("notifier.rate_per_sec", nn.RatePerSec),
		logx.Int("notifier.retry_max", nn.RetryMax),
	)

	ost, nst := oldCfg.Storage, newCfg.Storage
	section("storage", ost != nst,
		logx.String("storage.driver", nst.Driver),
		logx.Bool("storage.path_set", strings.TrimSpace(nst.Path) != ""),
	)

	sort.Strings(changed)
	return changed, attrs
}

// RequiresRestart reports the changed sections that are only read at startup.
func RequiresRestart(changed []string) []string {
	var out []string
	for _, c := range changed {
		switch c {
		case "storage", "http":
			out = append(out, c)
		}
	}
	return out
}

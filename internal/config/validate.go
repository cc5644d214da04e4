package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks the fields that can be checked without building services.
// All problems are reported together.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	dur := func(path, raw string) {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	dur("telegram.poll_timeout", c.Telegram.PollTimeout)
	dur("telegram.handler_timeout", c.Telegram.HandlerTimeout)
	if _, _, err := ParseChat("telegram.log_chat", c.Telegram.LogChat); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Telegram.Enabled && strings.TrimSpace(c.Telegram.LogChat) == "" {
		errs = append(errs, errors.New("logging.telegram.enabled requires telegram.log_chat"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.File.Enabled && strings.TrimSpace(c.Logging.File.Path) == "" {
		errs = append(errs, errors.New("logging.file.path is required when file logging is enabled"))
	}

	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	dur("scheduler.fire_timeout", c.Scheduler.FireTimeout)
	dur("scheduler.job_timeout", c.Scheduler.JobTimeout)
	dur("scheduler.digest_window", c.Scheduler.DigestWindow)
	dur("scheduler.flow_sweep", c.Scheduler.FlowSweep)
	dur("dialogue.flow_ttl", c.Dialogue.FlowTTL)

	n := c.NotifierOrDefault()
	dur("notifier.retry_base", n.RetryBase)
	dur("notifier.retry_max_delay", n.RetryMaxDelay)
	dur("notifier.send_timeout", n.SendTimeout)
	dur("notifier.dedup_window", n.DedupWindow)
	if n.Workers < 0 || n.QueueSize < 0 || n.RatePerSec < 0 || n.RetryMax < 0 {
		errs = append(errs, errors.New("notifier: counts must be >= 0"))
	}
	if _, _, err := ParseChat("notifier.default_chat", n.DefaultChat); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "memory":
	case "file", "sqlite":
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	dur("storage.busy_timeout", c.Storage.BusyTimeout)

	return errors.Join(errs...)
}

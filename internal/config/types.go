package config

// Config is the on-disk configuration. JSON and YAML are both accepted;
// unknown keys are rejected.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	HTTP      HTTPConfig      `json:"http"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Dialogue  DialogueConfig  `json:"dialogue"`

	// Notifier may be omitted; it then defaults to enabled.
	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  StorageConfig   `json:"storage"`
}

type TelegramConfig struct {
	// Token empty disables the Telegram transport.
	Token string `json:"token"`
	// AllowedUsers limits who may talk to the bot; empty allows everyone.
	AllowedUsers []int64 `json:"allowed_users,omitempty"`
	// LogChat is "chat_id" or "chat_id:thread_id" for log mirroring.
	LogChat     string `json:"log_chat,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
	// HandlerTimeout bounds one command or dialogue turn.
	HandlerTimeout string `json:"handler_timeout,omitempty"`
	Workers        int    `json:"workers,omitempty"`
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8080"
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SchedulerConfig controls reminders and maintenance jobs.
type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// Timezone is an IANA name; it also anchors time phrase parsing.
	Timezone    string `json:"timezone,omitempty"`
	FireTimeout string `json:"fire_timeout,omitempty"`
	JobTimeout  string `json:"job_timeout,omitempty"`
	// Digest is a schedule ("daily:08:00", a cron spec or "every:1h") for the
	// upcoming-tasks digest. Empty disables it.
	Digest       string `json:"digest,omitempty"`
	DigestWindow string `json:"digest_window,omitempty"`
	// FlowSweep is how often expired dialogue flows are dropped.
	FlowSweep string `json:"flow_sweep,omitempty"`
	// RestoreOnStart re-arms future reminders from the store at startup.
	// Off by default: reminders do not survive a restart.
	RestoreOnStart bool `json:"restore_on_start,omitempty"`
}

type DialogueConfig struct {
	// FlowTTL expires an unanswered question. Default 30m.
	FlowTTL string `json:"flow_ttl,omitempty"`
}

type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	SendTimeout     string `json:"send_timeout,omitempty"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
	InboxSize       int    `json:"inbox_size,omitempty"`
	// DefaultChat receives notifications whose owner is not a chat,
	// as "chat_id" or "chat_id:thread_id".
	DefaultChat string `json:"default_chat,omitempty"`
}

// StorageConfig selects the task store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/tasks.db" }
type StorageConfig struct {
	Driver      string `json:"driver"` // memory (default), file, sqlite
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

// DefaultNotifier is what an omitted notifier section means.
func DefaultNotifier() NotifierConfig {
	return NotifierConfig{
		Enabled:         true,
		Workers:         2,
		QueueSize:       512,
		RatePerSec:      3,
		RetryMax:        3,
		RetryBase:       "500ms",
		RetryMaxDelay:   "10s",
		DedupWindow:     "1m",
		DedupMaxEntries: 2000,
	}
}

// NotifierOrDefault returns the configured notifier section or the defaults.
func (c *Config) NotifierOrDefault() NotifierConfig {
	if c == nil || c.Notifier == nil {
		return DefaultNotifier()
	}
	return *c.Notifier
}

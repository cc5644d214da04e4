// Package notifier turns fired reminders into user-visible notifications.
//
// Every notification lands in a bounded in-memory inbox (readable over the
// HTTP API and the /notifications command). When the owner of a task maps
// to a chat, or a default chat is configured, the text is also queued for
// chat delivery.
//
// # Delivery
//
// Chat delivery is asynchronous: a queue feeds a small worker pool that
// shares one token-bucket limiter, retries failed sends with jittered
// exponential backoff and suppresses identical messages inside a dedup
// window. A full queue drops the message and publishes notifier.dropped;
// callers are never blocked.
//
// # Callbacks
//
// OnNotify registers per-type hooks. A panicking hook is logged and does not
// affect other hooks or the caller.
package notifier

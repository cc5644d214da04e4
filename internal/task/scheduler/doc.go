// Package scheduler fires one-shot task reminders and runs periodic
// maintenance jobs.
//
// Reminders are keyed by task id. Schedule replaces any pending reminder for
// the same id under one lock, and each fire runs on its own timer goroutine
// with panic isolation. Nothing is persisted: reminders pending at shutdown
// are gone after a restart.
//
// Maintenance jobs (flow expiry sweeps, digests) use robfig/cron with the
// configured timezone.
package scheduler

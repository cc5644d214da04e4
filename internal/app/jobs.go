package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"taskbot/internal/config"
	"taskbot/internal/notifier"
	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

const (
	jobFlowSweep = "dialogue.sweep"
	jobDigest    = "tasks.digest"
)

// registerJobs (re)installs the maintenance jobs for cfg. Registering a
// name again replaces the previous job.
func (a *App) registerJobs(cfg *config.Config) error {
	if err := a.sched.AddInterval(jobFlowSweep, flowSweep(cfg), 0, a.dialog.Sweep); err != nil {
		return fmt.Errorf("%s: %w", jobFlowSweep, err)
	}

	spec := strings.TrimSpace(cfg.Scheduler.Digest)
	if spec == "" {
		a.sched.Remove(jobDigest)
		return nil
	}
	window := digestWindow(cfg)
	if err := a.sched.AddSchedule(jobDigest, spec, 0, func(ctx context.Context) error {
		return a.sendDigests(ctx, window)
	}); err != nil {
		return fmt.Errorf("%s: %w", jobDigest, err)
	}
	return nil
}

// sendDigests posts one summary per owner with open tasks due in window.
func (a *App) sendDigests(ctx context.Context, window time.Duration) error {
	due, err := a.tasks.Upcoming(ctx, "", window)
	if err != nil {
		return err
	}
	byOwner := map[string][]task.Task{}
	for _, t := range due {
		byOwner[t.Owner] = append(byOwner[t.Owner], t)
	}
	owners := make([]string, 0, len(byOwner))
	for o := range byOwner {
		owners = append(owners, o)
	}
	sort.Strings(owners)

	loc := a.sched.Location()
	var errs []error
	for _, owner := range owners {
		text := formatDigest(byOwner[owner], window, loc)
		err := a.notif.NotifyText(ctx, owner, "Upcoming tasks", text)
		if err != nil && !errors.Is(err, notifier.ErrNoTarget) && !errors.Is(err, notifier.ErrDisabled) {
			errs = append(errs, fmt.Errorf("owner %q: %w", owner, err))
		}
	}
	a.log.Debug("digest sent", logx.Int("owners", len(owners)), logx.Int("tasks", len(due)))
	return errors.Join(errs...)
}

func formatDigest(ts []task.Task, window time.Duration, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d task(s) due in the next %s:\n", len(ts), humanWindow(window))
	for _, t := range ts {
		fmt.Fprintf(&b, "• %s at %s\n", t.Text, t.ScheduledFor.In(loc).Format("Mon Jan 2, 3:04 PM"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func humanWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "hour"
	}
	return d.String()
}

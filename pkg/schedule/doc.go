// Package schedule runs archive passes on a cron expression and reloads the
// configuration file between them.
//
// A Scheduler wraps robfig/cron with a skip-if-still-running guard, so a
// slow run never overlaps the next tick. A Watcher observes the
// configuration file with fsnotify and debounces bursts of writes; the
// reloaded configuration is published through Current and picked up by
// the next run:
//
//	current := schedule.NewCurrent(cfg)
//	sched := schedule.NewScheduler(cfg.Schedule.Cron, func(ctx context.Context) error {
//		return runOnce(ctx, current.Load())
//	}, logger)
//	if err := sched.Start(ctx); err != nil {
//		return err
//	}
//	defer sched.Stop()
package schedule

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/pipeline"
	"mercator-hq/archivist/pkg/schedule"
	"mercator-hq/archivist/pkg/telemetry/health"
	"mercator-hq/archivist/pkg/telemetry/metrics"
)

var scheduleFlags struct {
	runOptions
	mode   string
	cron   string
	listen string
	watch  bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run archive passes on a cron expression",
	Long: `Run the configured mode repeatedly on a cron expression until interrupted.

A run still in progress when the next tick fires causes that tick to be
skipped. With schedule.watch_config the configuration file is reloaded when it
changes; the next run uses the new settings. Metrics and the /healthz,
/ready and /version endpoints are served on telemetry.metrics.listen_address
while the scheduler runs.

The cutoff must be rolling (range.days); a fixed range.end is rejected.

Examples:
  # Archive every night at 3 AM, serving metrics on :9464
  archivist schedule --config logs.yaml --cron "0 3 * * *" --listen :9464

  # Reload logs.yaml whenever it changes
  archivist schedule --config logs.yaml --watch`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	bindRunFlags(scheduleCmd, &scheduleFlags.runOptions)
	scheduleCmd.Flags().StringVarP(&scheduleFlags.mode, "mode", "m", "", "archive, save or delete (default archive)")
	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "", "cron expression, overrides schedule.cron")
	scheduleCmd.Flags().StringVar(&scheduleFlags.listen, "listen", "", "metrics listen address, overrides telemetry.metrics.listen_address")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.watch, "watch", false, "reload the config file when it changes")
}

// loadScheduleConfig is loadConfig with the schedule flags layered on top.
func loadScheduleConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := readConfig(cmd, &scheduleFlags.runOptions, lifecycle.Mode(scheduleFlags.mode))
	if err != nil {
		return nil, err
	}
	if scheduleFlags.cron != "" {
		cfg.Schedule.Cron = scheduleFlags.cron
	}
	if scheduleFlags.listen != "" {
		cfg.Telemetry.Metrics.ListenAddress = scheduleFlags.listen
		cfg.Telemetry.Metrics.Enabled = true
	}
	if scheduleFlags.watch {
		cfg.Schedule.WatchConfig = true
	}
	if cfg.Schedule.Cron == "" {
		return nil, lifecycle.NewConfigurationError("schedule.cron", "a cron expression is required")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, configurationError(err)
	}
	return cfg, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadScheduleConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log := logger.Slog()
	ctx := cmd.Context()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	current := schedule.NewCurrent(cfg)

	tracer, shutdown, err := newTracer(cfg, log)
	if err != nil {
		return err
	}
	defer shutdown()

	job := func(ctx context.Context) error {
		built, err := pipeline.Build(current.Load(), pipeline.Env{Metrics: collector, Tracer: tracer, Logger: log})
		if err != nil {
			return err
		}
		defer built.Close()

		summary, err := built.Run(ctx)
		if err != nil {
			return err
		}
		log.Info("scheduled run summary",
			"run_id", summary.RunID,
			"records", summary.Records,
			"batches", summary.Batches,
			"replayed", summary.Replayed,
		)
		return nil
	}

	sched := schedule.NewScheduler(cfg.Schedule.Cron, job, log)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if addr := cfg.Telemetry.Metrics.ListenAddress; addr != "" {
		checker := health.New(0)
		checker.Register("scheduler", sched.Check)
		checker.Register("ledger", func(ctx context.Context) error {
			return pendingLedger(current.Load(), log)
		})
		srv := serveHTTP(addr, collector, checker, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Schedule.WatchConfig {
		if cfgFile == "" {
			log.Warn("schedule.watch_config is set but no --config file was given")
		} else {
			watcher, err := schedule.NewWatcher(cfgFile, 0, log)
			if err != nil {
				return err
			}
			defer watcher.Stop()

			go func() {
				err := watcher.Watch(ctx, func() error {
					next, err := loadScheduleConfig(cmd)
					if err != nil {
						return fmt.Errorf("keeping previous configuration: %w", err)
					}
					if err := sched.Reschedule(next.Schedule.Cron); err != nil {
						return err
					}
					current.Store(next)
					return nil
				})
				if err != nil {
					log.Error("configuration watcher stopped", "error", err)
				}
			}()
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "scheduled %s of %s on %q, press Ctrl+C to stop\n",
		cfg.Mode, cfg.Index.Collection, cfg.Schedule.Cron)
	<-ctx.Done()

	runs, failures, _ := sched.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "stopped after %d runs (%d failed)\n", runs, failures)
	return nil
}

// pendingLedger fails while the collection's ledger holds work owed by an
// interrupted run.
func pendingLedger(cfg *config.Config, log *slog.Logger) error {
	dir, err := ledger.WorkDir(cfg.WorkDir, cfg.Index.URL, cfg.Index.Collection)
	if err != nil {
		return err
	}
	entry, err := ledger.New(dir, log).Load()
	if err != nil {
		return err
	}
	if entry != nil {
		return fmt.Errorf("pending ledger entry in %s", dir)
	}
	return nil
}

// serveHTTP serves /metrics and the health endpoints.
func serveHTTP(addr string, collector *metrics.Collector, checker *health.Checker, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	checker.Mount(mux, health.VersionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("serving metrics and health", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

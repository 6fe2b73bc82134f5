package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"calendario/internal/agenda"
	"calendario/internal/apperr"
	"calendario/internal/config"
	appLog "calendario/internal/log"
	"calendario/internal/notify"
	"calendario/internal/web"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agenda HTTP API with reminder delivery",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	appLog.Info("calendario starting", "version", version)

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := notify.NewMetrics(reg)

	alarm := notify.NewCronAlarm(a.loc, notify.LogDeliver, metrics)
	alarm.Start()
	defer alarm.Stop()

	settings, err := a.initialSettings(ctx)
	if err != nil {
		return err
	}
	b := agenda.NewBuilder(a.events,
		notify.NewScheduler(alarm, time.Now, a.loc, metrics),
		a.holidays,
		agenda.Options{
			Location:          a.loc,
			HolidayWindowDays: cfg.Agenda.HolidayWindowDays,
			Settings:          settings,
		},
	)

	if _, err := b.RescheduleAll(ctx); err != nil {
		appLog.Error("restoring notifications failed", err)
	}
	if _, err := b.Load(ctx, ""); err != nil {
		appLog.Error("initial agenda load failed; retrying on first request", err)
	}

	reload := cron.New(cron.WithLocation(a.loc))
	if _, err := reload.AddFunc(cfg.Agenda.ReloadCron, func() {
		if _, err := b.Load(ctx, ""); err != nil && !errors.Is(err, apperr.ErrSuperseded) {
			appLog.Error("scheduled agenda reload failed", err)
		}
	}); err != nil {
		return err
	}
	reload.Start()
	defer func() { <-reload.Stop().Done() }()

	err = web.NewServer(cfg, b, a.settings, reg).ListenAndServe(ctx)
	appLog.Info("calendario exiting")
	return err
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harrisonrobin/dayboard/pkg/config"
	"github.com/harrisonrobin/dayboard/pkg/jobs"
	"github.com/harrisonrobin/dayboard/pkg/server"
	"github.com/harrisonrobin/dayboard/pkg/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the background sync and sweep jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, env)
	},
}

func serve(ctx context.Context, e *config.Env) error {
	svcs, cleanup, err := buildServices(ctx, e, true)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(server.Config{
		Addr:           e.Addr,
		JWTSecret:      e.JWTSecret,
		DevUser:        defaultUser(e),
		AllowedOrigins: e.AllowedOrigins,
		RateLimit:      e.RateLimit,
		RateBurst:      e.RateBurst,
	}, svcs, log)
	if e.JWTSecret == "" {
		log.Warn("DAYBOARD_JWT_SECRET is empty: every request runs as the local user with admin rights")
	}

	scheduler, err := scheduleJobs(e, svcs, srv)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, shutdownTimeout) })
	g.Go(func() error { return scheduler.Run(gctx) })
	return g.Wait()
}

func scheduleJobs(e *config.Env, svcs *service.Services, srv *server.Server) (*jobs.Scheduler, error) {
	scheduler := jobs.New(log, 5*time.Minute)
	if err := scheduler.Add("limiter-cleanup", "@every 5m", func(context.Context) error {
		srv.Cleanup()
		return nil
	}); err != nil {
		return nil, err
	}
	if !svcs.Calendar.Configured() {
		return scheduler, nil
	}
	if err := scheduler.Add("overdue-sweep", e.SweepEvery, func(ctx context.Context) error {
		_, err := svcs.Calendar.Sweep(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	if err := scheduler.Add("calendar-sync", e.SyncSchedule, func(ctx context.Context) error {
		report, err := svcs.Calendar.Sync(ctx)
		if err != nil {
			return err
		}
		log.WithField("report", report).Info("calendar sync finished")
		return nil
	}); err != nil {
		return nil, err
	}
	return scheduler, nil
}

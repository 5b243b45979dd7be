package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waypoint-sync/core/loader"
	"waypoint-sync/core/logger"
	"waypoint-sync/core/middleware/auth"
	"waypoint-sync/core/middleware/rayid"
	"waypoint-sync/core/reconcile"
	"waypoint-sync/core/scheduler"
	"waypoint-sync/feature/integrity"
	"waypoint-sync/feature/ugc"
	ugcsync "waypoint-sync/feature/ugc/sync"
	"waypoint-sync/feature/waypoint"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// runTimeout bounds one scheduled run.
const runTimeout = 6 * time.Hour

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler and the operator server",
	Long:  `Runs scheduled syncs and reconciliations and serves the operator HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// 1. Configuration, logger, database and storage
		e, err := bootstrap()
		if err != nil {
			return err
		}
		defer e.close()
		logg := e.logger
		zap.ReplaceGlobals(logg)

		// 2. Sync pipeline
		p, err := e.pipeline(ctx)
		if err != nil {
			return fmt.Errorf("failed to build sync pipeline: %w", err)
		}
		if err := p.Store.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		if err := e.ensureBucket(ctx); err != nil {
			return fmt.Errorf("failed to prepare bucket: %w", err)
		}
		svc := p.Service
		defer svc.Close()

		// 3. Scheduler
		sched := scheduler.New(logg.Named("scheduler"))
		if err := registerJobs(sched, svc, e.cfg.UGC); err != nil {
			return err
		}
		svc.SetSchedule(sched)
		sched.Start()
		defer sched.Stop()

		if !e.cfg.Server.Enabled {
			logg.Info("Operator server disabled, running scheduler only", zap.Int("jobs", sched.Jobs()))
			waitForSignal()
			logg.Info("Shutting down...")
			return nil
		}

		// 4. Fiber app and features
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager()
		mgr.Register(ugc.NewFeature(svc))
		mgr.Register(integrity.NewFeature(integrity.NewService(e.storage, e.db, integrity.Options{
			Bucket:         e.cfg.Storage.Bucket,
			Folders:        []string{e.cfg.UGC.ReportPrefix},
			SkipListObject: e.cfg.UGC.SkipListObject,
		}, logg.Named("integrity"))))

		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get("/metrics", func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})

		app.Use(auth.New(auth.Config{ApiKey: e.cfg.Server.ApiKey, Skip: []string{"/metrics"}}))

		if err := mgr.LoadAll(app); err != nil {
			return fmt.Errorf("failed to load features: %w", err)
		}

		// 5. Serve
		go func() {
			logg.Info("Starting server", zap.String("port", e.cfg.Server.Port), zap.Int("jobs", sched.Jobs()))
			if err := app.Listen(e.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 6. Graceful shutdown
		waitForSignal()
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
		return nil
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}

// registerJobs adds the periodic sync and, when scheduled, an applied
// reconciliation of every kind in turn. Runs share the service lock, so a
// tick that lands during another run fails with ErrRunInProgress and is logged.
func registerJobs(sched *scheduler.Scheduler, svc *ugc.Service, cfg ugc.Config) error {
	err := sched.Add(scheduler.Job{
		Name:     "sync",
		Schedule: cfg.SyncSchedule,
		Timeout:  runTimeout,
		Run: func(ctx context.Context) error {
			_, err := svc.RunSync(ctx, ugcsync.Options{})
			return err
		},
	})
	if err != nil {
		return err
	}

	return sched.Add(scheduler.Job{
		Name:     "reconcile",
		Schedule: cfg.ReconcileSchedule,
		Timeout:  runTimeout,
		Run: func(ctx context.Context) error {
			for _, kind := range waypoint.Kinds {
				if _, err := svc.RunReconcile(ctx, kind, reconcile.ReconcileOptions{Confirmed: true}); err != nil {
					return fmt.Errorf("reconcile %s: %w", kind, err)
				}
			}
			return nil
		},
	})
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

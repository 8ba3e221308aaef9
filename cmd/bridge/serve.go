package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/bridge/internal/infrastructure/logger"
	"github.com/erp/bridge/internal/infrastructure/scheduler"
	"github.com/erp/bridge/internal/interfaces/http/handler"
	"github.com/erp/bridge/internal/interfaces/http/middleware"
	"github.com/erp/bridge/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync trigger API and run the scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()

			sched, err := newScheduler(a)
			if err != nil {
				return err
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer stopScheduler(a, sched)

			if a.cfg.App.Env == "production" {
				gin.SetMode(gin.ReleaseMode)
			}
			engine := gin.New()
			if len(a.cfg.HTTP.TrustedProxies) > 0 {
				if err := engine.SetTrustedProxies(a.cfg.HTTP.TrustedProxies); err != nil {
					a.log.Warn("Failed to set trusted proxies", zap.Error(err))
				}
			}
			engine.Use(logger.Recovery(a.log))
			if a.telemetry.Enabled() {
				engine.Use(middleware.Tracing(a.cfg.App.Name, a.telemetry.TracerProvider())...)
			}
			engine.Use(
				logger.GinMiddleware(a.log),
				middleware.Secure(),
			)

			checks := map[string]handler.Pinger{"database": a.db}
			r := router.NewRouter(engine)
			r.Register(handler.NewSystemHandler(a.cfg.App.Name, version, checks))
			tokens := newTokenService(a.cfg)
			if !tokens.Enabled() {
				a.log.Warn("No http.token_secret configured, the sync API accepts unauthenticated requests")
			}
			r.Register(handler.NewSyncHandler(a.service, sched), middleware.ServiceToken(tokens))
			r.Setup()

			srv := &http.Server{
				Addr:           ":" + a.cfg.App.Port,
				Handler:        engine,
				ReadTimeout:    a.cfg.HTTP.ReadTimeout,
				WriteTimeout:   a.cfg.HTTP.WriteTimeout,
				IdleTimeout:    a.cfg.HTTP.IdleTimeout,
				MaxHeaderBytes: a.cfg.HTTP.MaxHeaderBytes,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("Server starting", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			a.log.Info("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.log.Info("Server exited gracefully")
			return nil
		}),
	}
}

func newScheduleCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the scheduled changed-records jobs without the API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			sched, err := newScheduler(a)
			if err != nil {
				return err
			}
			if !a.cfg.Scheduler.Enabled {
				return errors.New("scheduler is disabled, set scheduler.enabled = true")
			}
			if err := sched.Start(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			stopScheduler(a, sched)
			return nil
		}),
	}
}

func newScheduler(a *app) (*scheduler.Scheduler, error) {
	cfg, err := scheduler.ConfigFromSettings(a.cfg.Scheduler)
	if err != nil {
		return nil, err
	}
	return scheduler.New(cfg, a.service, a.log)
}

func stopScheduler(a *app, sched *scheduler.Scheduler) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(ctx); err != nil {
		a.log.Error("Scheduler did not stop in time", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ymcoiffure/salon-bookings/internal/handlers"
	"github.com/ymcoiffure/salon-bookings/internal/service"
	"github.com/ymcoiffure/salon-bookings/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		migrateUp   bool
		noScheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking API and the maintenance scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, appOptions{migrate: migrateUp, calendar: true})
			if err != nil {
				return err
			}
			defer a.Close()

			limiter, attempts, err := a.limiters(ctx)
			if err != nil {
				return err
			}
			a.deps.Attempts = attempts

			h := handlers.New(
				service.NewBookingService(a.deps, a.cfg),
				service.NewAdminService(a.deps),
			)
			srv := &http.Server{
				Addr: ":" + a.cfg.Server.Port,
				Handler: h.Routes(handlers.RouterConfig{
					AllowedOrigins: a.cfg.Server.AllowedOrigins,
					AdminKey:       a.cfg.Admin.Key,
					AdminKeyHash:   a.cfg.Admin.KeyHash,
					Limiter:        limiter,
					TrustProxy:     a.cfg.Server.TrustProxy,
				}),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				IdleTimeout:  a.cfg.Server.IdleTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				logger.Info("Starting salon bookings service", "port", a.cfg.Server.Port)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-gctx.Done()
				logger.Info("Shutting down salon bookings service...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if !noScheduler {
				sched := a.scheduler()
				g.Go(func() error {
					logger.Info("Maintenance scheduler started", "interval", sched.Interval.String())
					if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run purge and reminder jobs in this process")
	return cmd
}

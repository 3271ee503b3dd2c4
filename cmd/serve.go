package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/api"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/app"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/schedule"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the read-only ops HTTP API",
		Long: `Serves health and readiness checks, Prometheus metrics, frontier
statistics, the review queue and the source registry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				cfg := a.Config()
				if cmd.Flags().Changed("port") {
					cfg.Server.Port = port
				}
				stores := a.Stores()
				deps := api.Deps{
					Frontier: stores.Frontier,
					Review:   stores.Stories,
					Sources:  a.Sources(),
				}
				if stores.Database != nil {
					deps.Database = stores.Database
				}
				server := api.NewServer(deps, api.Options{APIKey: cfg.Server.APIKey}, a.Logger().Named("api"))
				return serveHTTP(cmd.Context(), &http.Server{
					Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
					Handler:           server.Handler(),
					ReadHeaderTimeout: 5 * time.Second,
				}, a.Logger())
			})
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from server.port)")
	return cmd
}

// serveHTTP runs srv until ctx is canceled, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// newScheduleCmd creates the 'schedule' subcommand.
func newScheduleCmd() *cobra.Command {
	var utc bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Runs the configured discover and scrape jobs on their cron specs",
		Long: `Starts a long-running scheduler for the jobs listed under schedule.jobs.
A job still running at its next activation is skipped, and at most one job per
source runs at a time. Stops on SIGINT or SIGTERM after running jobs finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				var loc *time.Location
				if utc {
					loc = time.UTC
				}
				s, err := schedule.New(a, a.Config().Schedule.Jobs, loc, a.Logger().Named("schedule"))
				if err != nil {
					return fmt.Errorf("init scheduler: %w", err)
				}
				return s.Run(cmd.Context())
			})
		},
	}
	cmd.Flags().BoolVar(&utc, "utc", false, "interpret cron specs in UTC instead of local time")
	return cmd
}

// Package cmd defines and implements the CLI commands for the stories executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/app"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/config"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/logging"
)

// envKeyType is the key for storing the loaded environment in the command context.
type envKeyType struct{}

// env is what PersistentPreRunE resolves for every subcommand.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the application factory. It's a variable so tests can inject
// in-memory stores.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates the root command and registers every subcommand.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "stories",
		Short: "Collects and classifies AI customer success stories.",
		Long: `stories discovers customer-story pages on AI provider sites, tracks them in a
durable frontier, scrapes and classifies each page as generative or traditional
AI, and keeps the classification auditable through bulk reclassification.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Config and logging are resolved before any subcommand runs. Services
		// that need the database are built per command.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKeyType{}, &env{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKeyType{}).(*env); ok {
				_ = e.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); env vars use the STORIES_ prefix")

	cmd.AddCommand(
		newDiscoverCmd(),
		newScrapeCmd(),
		newReclassifyCmd(),
		newReviewCmd(),
		newFrontierCmd(),
		newSourcesCmd(),
		newMigrateCmd(),
		newServeCmd(),
		newScheduleCmd(),
	)
	return cmd
}

// Execute is the main entry point. It exits non-zero only when a command
// returns an error; per-item failures are reported in the run summary.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKeyType{}).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not loaded")
	}
	return e, nil
}

// withApp builds the application services, runs fn and releases them.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), e.cfg, e.logger)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()
	return fn(a)
}

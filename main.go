package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/bradselph/ThreadWarden/bot"
	"github.com/bradselph/ThreadWarden/configuration"
	"github.com/bradselph/ThreadWarden/database"
	"github.com/bradselph/ThreadWarden/errorhandler"
	"github.com/bradselph/ThreadWarden/logger"
	"github.com/bradselph/ThreadWarden/platform"
	"github.com/bradselph/ThreadWarden/services"
	"github.com/bradselph/ThreadWarden/webserver"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ledger is what the lifecycle controller and the HTTP server share.
type ledger interface {
	services.ClosureLedger
	webserver.SummarySource
}

var rootCmd = &cobra.Command{
	Use:          "threadwarden",
	Short:        "Locks inactive forum threads and marks resolved ones",
	SilenceUsage: true,
	RunE:         runBot,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan cycle over the configured forums and exit",
	RunE:  runScanOnce,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE:  printConfig,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(scanCmd, configCmd)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("Recovered from panic: %v\n%s", r, debug.Stack())
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("ThreadWarden encountered an error and is shutting down")
		os.Exit(1)
	}
}

func runBot(_ *cobra.Command, _ []string) error {
	logger.Log.Info("ThreadWarden starting...")
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	store := openLedger(ctx, cfg)

	session, err := bot.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	client := platform.NewDiscordClient(session, cfg.Discord.RateLimit, cfg.Discord.RateBurst)
	controller := newController(cfg, client, store)
	listener := services.NewResolutionListener(client, services.ResolutionConfig{
		ResolvedTagName: cfg.Lifecycle.ResolvedTagName,
		ResolvedMarker:  cfg.Lifecycle.ResolvedMarker,
		MaxNameLength:   cfg.Discord.MaxNameLength,
		ExemptThreadIDs: cfg.Lifecycle.ExemptThreadIDs,
	})

	if cfg.MetricsEnabled() {
		server := webserver.Start(ctx, cfg.MetricsAddr, store)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Log.WithError(err).Error("Error shutting down HTTP server")
			}
		}()
	}

	if err := bot.StartBot(ctx, session, client, controller, listener); err != nil {
		return errors.Wrap(err, "failed to start Discord bot")
	}
	logger.Log.Info("ThreadWarden is running")

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	if err := session.Close(); err != nil {
		logger.Log.WithError(err).Error("Error closing Discord session")
	}
	return nil
}

func runScanOnce(_ *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	store := openLedger(ctx, cfg)

	// REST calls only; the gateway is never opened.
	session, err := bot.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	client := platform.NewDiscordClient(session, cfg.Discord.RateLimit, cfg.Discord.RateBurst)

	return newController(cfg, client, store).RunScanCycle(ctx)
}

func printConfig(cmd *cobra.Command, _ []string) error {
	if err := configuration.Load(); err != nil {
		return err
	}
	out, err := json.MarshalIndent(configuration.Get().Redacted(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode configuration")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func setup() (*configuration.Config, error) {
	if err := configuration.Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	cfg := configuration.Get()

	if err := logger.Setup(cfg.LogDir, cfg.LogLevel); err != nil {
		return nil, errors.Wrap(err, "failed to set up logging")
	}
	return cfg, nil
}

// openLedger picks the closure ledger. The database is optional, so a failed
// connection falls back to memory instead of stopping the bot.
func openLedger(ctx context.Context, cfg *configuration.Config) ledger {
	if !cfg.DatabaseEnabled() {
		logger.Log.Info("No database configured, closure ledger is kept in memory")
		return services.NewMemoryLedger()
	}

	if err := database.Connect(cfg); err != nil {
		logger.Log.WithError(errorhandler.NewDatabaseError(err, "connect closure ledger")).
			Warn("Database unavailable, closure ledger is kept in memory")
		return services.NewMemoryLedger()
	}
	logger.Log.Info("Database connection established successfully")
	go database.MonitorHealth(ctx)

	return database.NewClosureLedger(database.GetDB())
}

func newController(cfg *configuration.Config, client *platform.DiscordClient, store ledger) *services.LifecycleController {
	schedule := services.NewSchedule(cfg.Lifecycle.ScanSchedule, cfg.Lifecycle.ScanInterval)
	return services.NewLifecycleController(client, store, schedule, services.LifecycleConfig{
		ForumIDs:        cfg.Lifecycle.ForumIDs,
		ExemptThreadIDs: cfg.Lifecycle.ExemptThreadIDs,
		InactiveDays:    cfg.Lifecycle.InactiveDays,
		ReportChannelID: cfg.Lifecycle.InfoChannelID,
		AutoLockTagName: cfg.Lifecycle.AutoLockTagName,
		LockedMarker:    cfg.Lifecycle.LockedMarker,
		MaxNameLength:   cfg.Discord.MaxNameLength,
		ForumPause:      cfg.Lifecycle.ForumPause,
		Location:        cfg.Location(),
	})
}

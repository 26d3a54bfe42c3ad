package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hearthware/stovetop/pkg/alarm"
	"github.com/hearthware/stovetop/pkg/api"
	"github.com/hearthware/stovetop/pkg/bus"
	"github.com/hearthware/stovetop/pkg/config"
	"github.com/hearthware/stovetop/pkg/engine"
	"github.com/hearthware/stovetop/pkg/log"
	"github.com/hearthware/stovetop/pkg/metrics"
	"github.com/hearthware/stovetop/pkg/reconcile"
	"github.com/hearthware/stovetop/pkg/storage"
	ctxsync "github.com/hearthware/stovetop/pkg/sync"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stovetop",
	Short: "Stovetop - embeddable cooking timer engine",
	Long: `Stovetop is the timer engine behind the recipe widget platform:
concurrent countdown timers with second-aligned ticking, crash-safe
envelope persistence, cross-context convergence, and optional
reconciliation against a server-authoritative clock.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Stovetop version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)

	runCmd.Flags().String("config", "", "YAML config file")
	runCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	runCmd.Flags().String("server-url", "", "Timer authority base URL (overrides config)")

	serveCmd.Flags().String("addr", ":8080", "Listen address")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the timer engine daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
			cfg.DataDir = v
		}
		if v, _ := cmd.Flags().GetString("server-url"); v != "" {
			cfg.Server.BaseURL = v
		}

		log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.JSONLogs})
		logger := log.WithComponent("main")

		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		var store storage.Store
		store, err = storage.NewBoltStore(cfg.DataDir)
		if err != nil {
			logger.Warn().Err(err).Msg("persistence unavailable, running in memory")
			store = storage.NewMemStore()
		}
		defer store.Close()

		b := bus.New()
		ep := b.Attach("daemon", "")
		syncCtx, err := ctxsync.NewContext(ctxsync.Options{
			Store:     store,
			Endpoint:  ep,
			StorageID: cfg.StorageID,
		})
		if err != nil {
			return err
		}
		defer syncCtx.Close()

		alarms := alarm.NewManager(alarm.Options{
			Player:   &alarm.MemoryPlayer{},
			Notifier: alarm.LogNotifier{},
			SoundURL: cfg.AlarmSound,
		})

		var remote *reconcile.Client
		eng := engine.New(engine.Options{
			Session: syncCtx.Session(cfg.SessionKey),
			Alarm:   alarms,
		})

		if cfg.Server.BaseURL != "" {
			remote = reconcile.NewClient(reconcile.Config{
				BaseURL:      cfg.Server.BaseURL,
				UserID:       cfg.Server.UserID,
				CreationID:   cfg.SessionKey,
				PingInterval: cfg.Server.PingInterval,
				BackoffBase:  cfg.Server.BackoffBase,
				BackoffMax:   cfg.Server.BackoffMax,
				MaxAttempts:  cfg.Server.MaxAttempts,
			}, eng)
			eng.SetRemote(remote)
			remote.Start()
			defer remote.Stop()
		}

		eng.RestoreFromStore()

		if cfg.MetricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
				if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
					logger.Error().Err(err).Msg("metrics server failed")
				}
			}()
		}

		logger.Info().
			Str("data_dir", cfg.DataDir).
			Str("storage_id", cfg.StorageID).
			Bool("server", cfg.Server.BaseURL != "").
			Msg("timer engine running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		// Best-effort unload flush before teardown.
		eng.FlushAll()
		eng.Cleanup()
		logger.Info().Msg("shutting down")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference timer authority server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		log.Init(log.Config{Level: log.InfoLevel})

		srv := api.NewServer()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			srv.Stop()
		}()

		return srv.Start(addr)
	},
}

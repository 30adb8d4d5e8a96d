package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/config"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/metrics"
	"github.com/goran-ethernal/ColorScanner/internal/progress"
	"github.com/goran-ethernal/ColorScanner/internal/scanner"
	"github.com/goran-ethernal/ColorScanner/pkg/api"
	pkgconfig "github.com/goran-ethernal/ColorScanner/pkg/config"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║          ColorScanner v%s              ║
║   Bitcoin Colored Coin Scan Coordinator   ║
╚═══════════════════════════════════════════╝
`
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "ColorScanner - Bitcoin colored coin scanner",
	Long: `ColorScanner follows the best chain of a bitcoind node, feeds every transaction
through the configured color kernels and serves color values over HTTP. Chain
reorganizations are undone height by height before scanning resumes.`,
	Version: version,
	RunE:    runScanner,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/default.yml", "path to configuration file")
	rootCmd.AddCommand(kernelsCmd, schemaCmd, rewindCmd)
}

// loadConfig reads the config file and fills in the logging section so component loggers
// always have a level to work with.
func loadConfig() (*pkgconfig.Config, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Logging == nil {
		cfg.Logging = &pkgconfig.LoggingConfig{}
		cfg.Logging.ApplyDefaults()
	}

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n\nShutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func runScanner(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentScanner, cfg.Logging)
	defer func() { _ = log.Close() }()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics != nil {
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		g.Go(func() error { return metricsServer.Run(gctx) })
	}
	g.Go(func() error { return scan(gctx, cfg, log) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("scanner failed: %w", err)
	}

	log.Info("ColorScanner stopped successfully")
	return nil
}

// scan wires the scanner components together and runs them until ctx is done or one of
// them fails.
func scan(ctx context.Context, cfg *pkgconfig.Config, log *logger.Logger) error {
	app, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	progressLog := logger.NewComponentLoggerFromConfig(common.ComponentProgress, cfg.Logging)
	observers := []scanner.ProgressObserver{
		progress.NewLogReporter(progressLog, progress.DefaultLogInterval),
		progress.NewExporter(),
	}

	var publisher *progress.Publisher
	if cfg.Events != nil && cfg.Events.Enabled {
		publisher, err = progress.NewPublisher(ctx, *cfg.Events, progressLog)
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()
		observers = append(observers, publisher)
	}

	coordinator, err := app.coordinator(log, observers...)
	if err != nil {
		return err
	}

	log.Info("Waiting for bitcoind and the scan index...")
	if err := coordinator.Open(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.maintenance.Start(gctx); err != nil {
			return fmt.Errorf("failed to start database maintenance: %w", err)
		}
		<-gctx.Done()
		return app.maintenance.Stop()
	})

	if publisher != nil {
		g.Go(func() error { return publisher.Run(gctx) })
	}

	serving := cfg.API != nil && cfg.API.Enabled
	if serving {
		apiServer := api.NewServer(
			cfg.API,
			app.engine,
			app.fetcher,
			app.store,
			coordinator,
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging),
		)
		g.Go(func() error { return apiServer.Start(gctx) })
	}

	g.Go(func() error {
		return holdFatal(gctx, coordinator.Run(gctx), serving, log)
	})

	log.Info("Starting ColorScanner...")
	return g.Wait()
}

// holdFatal turns the result of the coordinator's Run into the result of the scan group. A
// fatal error is held until ctx is done while the API is serving, so /health keeps reporting it.
func holdFatal(ctx context.Context, err error, serving bool, log *logger.Logger) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if !serving {
		return err
	}

	log.Errorw("scan coordinator stopped, API keeps serving until shutdown", "error", err)
	<-ctx.Done()

	return err
}

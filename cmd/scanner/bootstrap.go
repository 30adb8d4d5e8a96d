package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goran-ethernal/ColorScanner/internal/colordata"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/db"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/migrations"
	"github.com/goran-ethernal/ColorScanner/internal/rpc"
	"github.com/goran-ethernal/ColorScanner/internal/scandata"
	"github.com/goran-ethernal/ColorScanner/internal/scanner"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
	pkgconfig "github.com/goran-ethernal/ColorScanner/pkg/config"
)

// app holds the long-lived components shared by the run and rewind commands.
type app struct {
	cfg         *pkgconfig.Config
	client      *rpc.Client
	sqlDB       *sql.DB
	maintenance db.Maintenance
	store       *scandata.Store
	engine      *colordata.Engine
	fetcher     *colordata.CachingFetcher
}

// bootstrap connects to bitcoind, opens and migrates the database and builds the scan store
// and the color engine with the configured kernels.
func bootstrap(ctx context.Context, cfg *pkgconfig.Config) (_ *app, err error) {
	componentLog := func(component string) *logger.Logger {
		return logger.NewComponentLoggerFromConfig(component, cfg.Logging)
	}

	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.client, err = rpc.NewClient(cfg.Chain, componentLog(common.ComponentChainSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create bitcoind client: %w", err)
	}
	if err := a.client.Open(ctx); err != nil {
		if !errors.Is(err, chain.ErrUnavailable) {
			return nil, err
		}
		// the coordinator keeps waiting for the node
		componentLog(common.ComponentChainSource).Warnw("bitcoind not reachable yet", "error", err)
	}

	sqlDB, dialect, err := db.NewFromConfig(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.sqlDB = sqlDB

	if err := migrations.RunMigrations(componentLog(common.ComponentScanStore), sqlDB, dialect); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a.maintenance = db.NewMaintenance(cfg.DB, sqlDB, componentLog(common.ComponentMaintenance))
	a.store = scandata.NewStore(sqlDB, dialect, a.maintenance, componentLog(common.ComponentScanStore))

	engineLog := componentLog(common.ComponentColorEngine)
	kernels, err := colordata.DefaultRegistry(engineLog).Create(cfg.Scanner.Kernels)
	if err != nil {
		return nil, err
	}

	a.engine, err = colordata.NewEngine(sqlDB, dialect, kernels, a.maintenance, engineLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create color engine: %w", err)
	}
	a.fetcher = colordata.NewCachingFetcher(a.client, cfg.Chain.TxCacheSize)

	return a, nil
}

func (a *app) coordinator(log *logger.Logger, observers ...scanner.ProgressObserver) (*scanner.Coordinator, error) {
	c, err := scanner.New(a.cfg.Scanner, a.client, a.store, a.engine, a.fetcher, log, observers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan coordinator: %w", err)
	}

	return c, nil
}

// Close releases the database and the bitcoind client.
func (a *app) Close() {
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.client != nil {
		a.client.Close()
	}
}

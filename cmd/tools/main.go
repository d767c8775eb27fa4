package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/swatches"
	"github.com/lychee-technology/swatches/factory"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app lazily opens the resources a command needs.
type app struct {
	configPath string
	cfg        *swatches.Config
	logger     *zap.Logger
	pool       *pgxpool.Pool
	plugin     *factory.Plugin
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := factory.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	logger, err := factory.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}
	pool, err := factory.NewPool(ctx, a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	a.pool = pool
	return pool, nil
}

func (a *app) openPlugin(ctx context.Context) (*factory.Plugin, error) {
	if a.plugin != nil {
		return a.plugin, nil
	}
	pool, err := a.openPool(ctx)
	if err != nil {
		return nil, err
	}
	plugin, err := factory.New(ctx, a.cfg, factory.PostgresStores(pool), factory.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.plugin = plugin
	return plugin, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		zap.S().Errorf("%v", err)
		a.close()
		os.Exit(1)
	}
}

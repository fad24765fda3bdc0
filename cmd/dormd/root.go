package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/db"
	"dorm-allocation-backend/internal/notification"
	"dorm-allocation-backend/internal/store"
)

// app is the state shared by every subcommand.
type app struct {
	logger     *log.Logger
	configPath string
	cfg        *config.Config
	store      store.Store
}

func newRootCmd(logger *log.Logger) *cobra.Command {
	a := &app{logger: logger}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml" // Default path for local development
	}

	root := &cobra.Command{
		Use:          "dormd",
		Short:        "Dormitory allocation backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultPath, "path to the yaml configuration")

	root.AddCommand(
		a.serveCmd(),
		a.migrateCmd(),
		a.allocateCmd(),
		a.reallocateCmd(),
		a.statsCmd(),
		a.importRoomsCmd(),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", a.configPath, err)
	}
	a.logger.Printf("configuration loaded successfully from %s", a.configPath)
	a.cfg = cfg
	return nil
}

// open loads the configuration and connects to the database. migrate also
// brings the schema up to date.
func (a *app) open(migrate bool) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	connect := db.Open
	if migrate {
		connect = db.Init
	}
	gormDB, err := connect(&a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.store = store.NewGormStore(gormDB)
	return nil
}

func (a *app) webpushOptions() *webpush.Options {
	if a.cfg.Push.PublicKey == "" || a.cfg.Push.PrivateKey == "" {
		a.logger.Println("Warning: VAPID keys are not configured; notifications go to the inbox only")
	}
	return &webpush.Options{
		VAPIDPublicKey:  a.cfg.Push.PublicKey,
		VAPIDPrivateKey: a.cfg.Push.PrivateKey,
		Subscriber:      a.cfg.Push.Subject,
		TTL:             a.cfg.Push.TTL,
	}
}

// startNotifier starts the notification worker pool. Close drains it.
func (a *app) startNotifier(ctx context.Context, opts *webpush.Options) *notification.WorkerPool {
	pool := notification.NewWorkerPool(a.cfg.WorkerPool.Size, a.cfg.WorkerPool.QueueSize, a.store, opts)
	pool.Start(ctx)
	return pool
}

func (a *app) processor(notifier allocation.Notifier, metrics *allocation.Metrics) *allocation.Processor {
	return allocation.NewProcessor(a.store, notifier, metrics, a.cfg.Allocation)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

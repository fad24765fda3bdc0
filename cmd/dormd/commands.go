package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/api"
	"dorm-allocation-backend/internal/db"
	"dorm-allocation-backend/internal/inventory"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/parse"
	"dorm-allocation-backend/internal/rotation"
	"dorm-allocation-backend/internal/scheduler"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification workers and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(true); err != nil {
				return err
			}
			a.logger.Println("database initialized successfully")
			return a.serve()
		},
	}
}

func (a *app) serve() error {
	cfg := a.cfg

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	webpushOptions := a.webpushOptions()
	pool := a.startNotifier(ctx, webpushOptions)
	defer pool.Close()

	processor := a.processor(pool, allocation.NewMetrics(reg))
	rotationSvc := rotation.NewService(a.store, pool, cfg.Rotation)
	cache := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)

	sched := scheduler.NewService(cfg.Scheduler, processor, rotationSvc, cache.Flush)
	go sched.Run(ctx)

	handler := api.NewHandler(a.store, processor, rotationSvc, cache, webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(cfg, handler, reg),
	}

	// Start the server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		a.logger.Println("Shutdown signal received, stopping services...")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	a.logger.Println("Server gracefully stopped")
	return nil
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			gormDB, err := db.Open(&a.cfg.Database)
			if err != nil {
				return err
			}
			if err := db.Migrate(gormDB); err != nil {
				return err
			}
			a.logger.Println("migrations applied")
			return nil
		},
	}
}

// runBatch runs one batch with a worker pool that is drained before returning.
func (a *app) runBatch(cmd *cobra.Command, kind string, run func(context.Context, *allocation.Processor) (*allocation.BatchResult, error)) error {
	if err := a.open(false); err != nil {
		return err
	}
	ctx := cmd.Context()

	pool := a.startNotifier(ctx, a.webpushOptions())
	result, err := run(ctx, a.processor(pool, nil))
	pool.Close()
	if err != nil {
		return err
	}

	a.logger.Printf("%s: %d candidates, %d placed, %d failed", kind, result.TotalCandidates, result.AllocatedCount, result.FailedCount)
	return printJSON(cmd, result)
}

func (a *app) allocateCmd() *cobra.Command {
	var block, gender string
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Place approved applications into rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := parse.NormalizeGender(gender)
			if err != nil {
				return err
			}
			f := allocation.Filters{Block: block, Gender: g}
			return a.runBatch(cmd, "allocate", func(ctx context.Context, p *allocation.Processor) (*allocation.BatchResult, error) {
				return p.AutoAllocate(ctx, f)
			})
		},
	}
	cmd.Flags().StringVar(&block, "block", "", "only applications preferring this block")
	cmd.Flags().StringVar(&gender, "gender", "", "only applicants of this gender")
	return cmd
}

func (a *app) reallocateCmd() *cobra.Command {
	var block string
	cmd := &cobra.Command{
		Use:   "reallocate",
		Short: "Move residents with approved change requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := allocation.Filters{Block: block}
			return a.runBatch(cmd, "reallocate", func(ctx context.Context, p *allocation.Processor) (*allocation.BatchResult, error) {
				return p.Reallocate(ctx, f)
			})
		},
	}
	cmd.Flags().StringVar(&block, "block", "", "only requests targeting this block")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print allocation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(false); err != nil {
				return err
			}
			stats, err := a.processor(nil, nil).Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}

func (a *app) importRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-rooms <file.yaml>",
		Short: "Create or update blocks and rooms from an inventory file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(true); err != nil {
				return err
			}
			result, err := inventory.Import(cmd.Context(), a.store, args[0])
			if err != nil {
				return err
			}
			a.logger.Printf("imported %d blocks and %d rooms, skipped %d", result.Blocks, result.Rooms, result.Skipped)
			return nil
		},
	}
}

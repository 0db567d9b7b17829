package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/project-alluminati/alluminati-backend/internal/config"
	"github.com/project-alluminati/alluminati-backend/internal/docstore"
	"github.com/project-alluminati/alluminati-backend/internal/docstore/gormstore"
	"github.com/project-alluminati/alluminati-backend/internal/httpapi"
	"github.com/project-alluminati/alluminati-backend/internal/lobby"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := config.NewCommand(run)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) error {
	ctx := cmd.Context()

	var store docstore.Store
	if cfg.DatabaseDSN != "" {
		gs, err := gormstore.Open(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		store = gs
		logger.Info("using postgres store")
	} else {
		store = docstore.NewMemory()
		logger.Info("using in-memory store")
	}

	manager := lobby.NewManager(store, logger, lobby.Options{
		HeartbeatInterval: cfg.HeartbeatInterval,
		StaleThreshold:    cfg.StaleThreshold,
		SweepInterval:     cfg.SweepInterval,
	})

	// The daemon is always up, so it carries the empty-lobby sweep for
	// every client.
	go manager.RunSweeper(ctx)

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: httpapi.SetupRoutes(store, manager, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Info("shut down")
	return nil
}

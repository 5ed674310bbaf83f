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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"herdwatch/api"
	"herdwatch/db"
	embeddednats "herdwatch/pkg/services/embedded-nats"
	"herdwatch/pkg/services/workers"
	"herdwatch/pkg/shared"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API, embedded NATS server and workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func initDB() (*db.Service, error) {
	dbConfig := db.DefaultConfig()
	dbConfig.DBPath = cfg.DBPath
	dbConfig.AutoInitialize = true
	dbConfig.Logger = logger

	store, err := db.New(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	if err := store.VerifySchema(); err != nil {
		logger.Warn("Schema verification failed, initializing schema", zap.Error(err))
		if err := store.InitializeSchema(); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return store, nil
}

func initNATS() (*embeddednats.EmbeddedNATS, error) {
	natsConfig := embeddednats.DefaultConfig()
	natsConfig.DataDir = cfg.NATSDataDir
	natsConfig.Port = cfg.NATSPort
	natsConfig.Logger = logger

	nc, err := embeddednats.New(natsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS: %w", err)
	}

	if err := nc.Start(); err != nil {
		return nil, fmt.Errorf("failed to start embedded NATS: %w", err)
	}

	if err := nc.CreateHerdwatchStreams(); err != nil {
		return nc, fmt.Errorf("failed to create streams: %w", err)
	}

	consumers := []struct {
		stream   string
		consumer string
		filter   string
	}{
		{shared.StreamAnimals, shared.ConsumerAnimalProcessor, shared.SubjectAnimalsAll},
		{shared.StreamTelemetry, shared.ConsumerTelemetryProcessor, shared.SubjectTelemetryAll},
	}

	for _, c := range consumers {
		if err := nc.CreateDurableConsumer(c.stream, c.consumer, c.filter); err != nil {
			return nc, fmt.Errorf("failed to create consumer %s: %w", c.consumer, err)
		}
	}

	logger.Info("NATS JetStream initialized")
	return nc, nil
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := initDB()
	if err != nil {
		return err
	}
	defer store.Close()

	nc, err := initNATS()
	shutdownNATS := func() {
		if nc == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := nc.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shutdown NATS", zap.Error(err))
		}
	}
	defer shutdownNATS()
	if err != nil {
		return err
	}

	handlers := api.NewHandlers(store, nc, nc, logger)

	workerManager, err := workers.NewManager(nc, handlers.AnimalService(), logger)
	if err != nil {
		return fmt.Errorf("failed to create worker manager: %w", err)
	}
	if err := workerManager.Start(); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer func() {
		if err := workerManager.Stop(); err != nil {
			logger.Warn("Failed to stop workers", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.Routes(cfg.APIToken, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting herdwatch API server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Failed to shutdown server gracefully", zap.Error(err))
	}

	logger.Info("Server shutdown complete")
	return nil
}

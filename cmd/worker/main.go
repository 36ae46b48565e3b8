package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banking-transfer-engine/internal/config"
	"github.com/banking-transfer-engine/internal/data/postgres"
	"github.com/banking-transfer-engine/internal/engine/dispatcher"
	"github.com/banking-transfer-engine/internal/engine/executor"
	"github.com/banking-transfer-engine/internal/engine/scheduler"
	"github.com/banking-transfer-engine/internal/jobqueue"
	"github.com/banking-transfer-engine/internal/logger"
	"github.com/banking-transfer-engine/internal/platform/messaging/producers"
	"github.com/banking-transfer-engine/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Transfer Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	transferRepo := postgres.NewTransferRepository(log, postgresDB)
	jobRepo := postgres.NewJobRepository(log, postgresDB)
	jobResultRepo := postgres.NewJobResultRepository(log, postgresDB)

	// Initialize Kafka dead-letter notification producer.
	// deadLetterProducer might be nil if DLQTopic is not configured.
	deadLetterProducer, err := producers.NewDeadLetterProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize dead-letter Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize the job queue producer side, used by handlers that enqueue
	// follow-up jobs (recurring successors, deposit fan-out)
	queue := jobqueue.NewPostgresQueue(log, &cfg.Queue, jobRepo, jobResultRepo)

	// Initialize the engine
	exec := executor.NewExecutor(log, postgresDB, accountRepo, ledgerRepo)
	disp := dispatcher.NewDispatcher(log, transferRepo, queue)
	exec.SetDepositListener(disp)
	handlers := scheduler.NewHandlers(log, exec, transferRepo, queue)

	// Register all job handlers
	registry := jobqueue.NewRegistry()
	handlers.Register(registry, cfg.Queue.DeadLetterTopic)
	disp.Register(registry)

	// Initialize the queue worker
	worker, err := jobqueue.NewWorker(log, &cfg.Queue, &cfg.WorkerPool, jobRepo, jobResultRepo, registry, deadLetterProducer)
	if err != nil {
		log.Error("Failed to initialize queue worker", "error", err)
		os.Exit(1)
	}

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start the queue worker in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for the polling loop to stop
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Queue worker stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Shutdown the worker pool
	worker.Shutdown()

	// Close dead-letter Kafka producer
	if deadLetterProducer != nil { // can be nil if DLQTopic was not configured
		if err = deadLetterProducer.Close(); err != nil {
			log.Error("Error closing dead-letter Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	log.Info("Transfer Worker shutdown completed successfully")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/freteflow/backend/internal/application/finance"
	"github.com/freteflow/backend/internal/infrastructure/config"
	"github.com/freteflow/backend/internal/infrastructure/event"
	"github.com/freteflow/backend/internal/infrastructure/logger"
	"github.com/freteflow/backend/internal/infrastructure/persistence"
	"github.com/freteflow/backend/internal/interfaces/http/handler"
	"github.com/freteflow/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting FreteFlow backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	gormLevel := gormlogger.Warn
	if cfg.Log.Level == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.NewGormLogger(log, gormLevel))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Database close failed", zap.Error(err))
		}
	}()

	payableRepo := persistence.NewGormAccountPayableRepository(db.DB)
	receivableRepo := persistence.NewGormAccountReceivableRepository(db.DB)
	outboxRepo := persistence.NewGormOutboxRepository(db.DB)

	ledgerService := financeapp.NewLedgerService(payableRepo, receivableRepo, outboxRepo, log)

	ctx := context.Background()

	var processor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultOutboxProcessorConfig()
		processorConfig.BatchSize = cfg.Event.BatchSize
		processorConfig.PollInterval = cfg.Event.PollInterval
		processorConfig.CleanupRetention = cfg.Event.CleanupRetention

		processor = event.NewOutboxProcessor(outboxRepo, event.NewLoggingPublisher(log), processorConfig, log)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	var sweeper *financeapp.OverdueSweeper
	if cfg.Sweep.Enabled {
		sweeper = financeapp.NewOverdueSweeper(ledgerService, cfg.Sweep.Interval, log)
		sweeper.Start(ctx)
	}

	r := router.New(cfg, log)
	r.Register(handler.NewPayableHandler(ledgerService, log))
	r.Register(handler.NewReceivableHandler(ledgerService, log))
	r.Register(handler.NewTaxHandler(ledgerService, log))
	engine := r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Warn("Overdue sweeper stop failed", zap.Error(err))
		}
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Warn("Outbox processor stop failed", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

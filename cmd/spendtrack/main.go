package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendtrack/internal/amqp"
	"spendtrack/internal/backend"
	"spendtrack/internal/config"
	apphttp "spendtrack/internal/http"
	"spendtrack/internal/importer"
	"spendtrack/internal/log"
	"spendtrack/internal/reports"
	"spendtrack/internal/services"
)

func main() {
	// Load .env for local development; production provides real env vars.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	var rules []importer.KeywordRule
	if cfg.ImportKeywordRules != "" {
		parsed, err := importer.ParseKeywordRules(cfg.ImportKeywordRules)
		if err != nil {
			logger.Error("Invalid IMPORT_KEYWORD_RULES", log.FieldError, err)
			os.Exit(1)
		}
		rules = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open storage backend",
			log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	// AMQP is optional: without a broker the API still serves requests and
	// the rollup table simply goes stale.
	var publisher services.Publisher
	amqpLog := logger.WithComponent(log.ComponentAMQP)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			amqpLog.Error("Failed to connect to AMQP, continuing without events", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	} else {
		amqpLog.Info("AMQP disabled - no AMQP_URL provided")
	}

	expenses := services.NewExpenseService(store, publisher)
	imports := services.NewImportService(importer.NewPipeline(store, rules), publisher)
	engine := reports.NewEngine(store)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           cfg.Addr(),
		Expenses:       expenses,
		Imports:        imports,
		Reports:        engine,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		UploadDir:      cfg.UploadDir,
	})
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting spendtrack server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"amqp", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"aurora/internal/amqp"
	"aurora/internal/auth"
	"aurora/internal/backend"
	"aurora/internal/config"
	apphttp "aurora/internal/http"
	applog "aurora/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Document store gateway
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateGateway(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create gateway", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Gateway cleanup failed", "error", err)
			}
		}
	}()

	// Authentication: verified Firebase tokens, or a static principal
	// for local setups.
	var (
		authState *auth.State
		verifier  *auth.Verifier
	)
	if cfg.FirebaseAuthEnabled {
		authState = auth.NewState()
		verifier, err = auth.NewVerifier(ctx, cfg.FirestoreProjectID, cfg.GoogleCredentials)
		if err != nil {
			logger.Error("Failed to initialize token verifier", "error", err)
			os.Exit(1)
		}
		logger.Info("Firebase token verification enabled", "project_id", cfg.FirestoreProjectID)
	} else {
		authState = auth.NewStaticState(cfg.StaticUID)
		logger.Info("Using static principal", "uid", cfg.StaticUID)
	}

	// AMQP client for mirror messages (optional)
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without mirror queue", "error", err)
		} else {
			defer amqpClient.Close()
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Gateway:        result.Gateway,
		Auth:           authState,
		Verifier:       verifier,
		AMQPClient:     amqpClient,
		PageSize:       cfg.PageSize,
		SearchDebounce: cfg.SearchDebounce,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting aurora server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

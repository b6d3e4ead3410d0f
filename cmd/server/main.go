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

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/bootstrap"
	"github.com/avatarctic/email-auth/internal/infrastructure/httpserver"
)

func main() {
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger := bootstrap.NewLogger(cfg.Log)
	logger.Info("Starting email-auth service...")

	app, err := bootstrap.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.WithError(err).Warn("Failed to release resources")
		}
	}()

	if err := app.Migrate(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		RequestTimeout: cfg.Server.WriteTimeout,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		VerificationService:  app.Verification,
		PasswordResetService: app.PasswordReset,
		AuthService:          app.Auth,
		AddressService:       app.Addresses,
		HealthCheckers:       app.HealthCheckers,
	})

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

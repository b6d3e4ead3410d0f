// Package bootstrap wires configuration, storage, notification delivery and
// services together for the server and the admin CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/application/services"
	"github.com/avatarctic/email-auth/internal/core/ports"
	"github.com/avatarctic/email-auth/internal/infrastructure/db"
	"github.com/avatarctic/email-auth/internal/infrastructure/email"
	"github.com/avatarctic/email-auth/internal/infrastructure/health"
	"github.com/avatarctic/email-auth/internal/infrastructure/memstore"
	"github.com/avatarctic/email-auth/internal/infrastructure/redis"
	"github.com/avatarctic/email-auth/internal/infrastructure/repositories"
	"github.com/avatarctic/email-auth/internal/utils"
)

// App holds the wired services and the resources behind them.
type App struct {
	Config         *configs.Config
	Logger         *logrus.Logger
	Store          ports.UnitOfWork
	Database       *db.Database
	HealthCheckers []ports.HealthChecker

	Verification  ports.VerificationService
	PasswordReset ports.PasswordResetService
	Auth          ports.AuthService
	Addresses     ports.AddressService

	closers []func() error
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg configs.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

// Open connects the configured store, cache and email transport and builds the services.
// The caller must Close the returned App.
func Open(ctx context.Context, cfg *configs.Config, logger *logrus.Logger) (_ *App, err error) {
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if err := app.openStore(ctx); err != nil {
		return nil, err
	}

	transport, err := email.NewTransport(&cfg.Email, logger)
	if err != nil {
		return nil, err
	}
	dispatcher, err := email.NewDispatcher(transport, cfg.Email.FromName, logger)
	if err != nil {
		return nil, err
	}

	hasher := utils.NewBcryptHasher(cfg.Auth.BcryptCost)
	policy := utils.NewStrengthPolicy(cfg.PasswordPolicy)

	app.Verification = services.NewVerificationService(app.Store, dispatcher, nil, cfg, logger)
	app.PasswordReset = services.NewPasswordResetService(app.Store, dispatcher, nil, policy, hasher, cfg, logger)
	app.Addresses = services.NewAddressService(app.Store, dispatcher, policy, hasher, cfg.Email.FromEmail, logger)
	app.Auth, err = services.NewAuthService(app.Store.EmailAddresses(), app.Store.Identities(), hasher, &cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	return app, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.Config.Database.Driver == "memory" {
		a.Store = memstore.New()
		a.HealthCheckers = append(a.HealthCheckers, health.NewMemoryChecker())
		if a.Logger != nil {
			a.Logger.Warn("Using the in-memory store - data is lost on restart")
		}
		return nil
	}

	database, err := db.NewDatabaseWithConfig(&a.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.Database = database
	a.closers = append(a.closers, database.Close)
	a.HealthCheckers = append(a.HealthCheckers, health.NewDBChecker(database))

	var cache ports.Cache
	if a.Config.Redis.Enabled {
		client, err := redis.NewClient(ctx, &a.Config.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.HealthCheckers = append(a.HealthCheckers, health.NewRedisChecker(client))
		cache = redis.NewCache(client, "email-auth")
	}

	a.Store = repositories.NewUnitOfWork(database, cache, a.Config.Auth.IdentityCacheTTL, a.Logger)
	return nil
}

// Migrate applies pending migrations; it is a no-op for the in-memory store.
func (a *App) Migrate() error {
	if a.Database == nil {
		return nil
	}
	return a.Database.Migrate(a.Config.Database.MigrationsPath)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

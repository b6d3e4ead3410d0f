package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/internal/core/ports"
	customMiddleware "github.com/avatarctic/email-auth/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	// RequestTimeout bounds each handler; zero disables it.
	RequestTimeout time.Duration
}

type ServerDeps struct {
	VerificationService  ports.VerificationService
	PasswordResetService ports.PasswordResetService
	AuthService          ports.AuthService
	AddressService       ports.AddressService
	HealthCheckers       []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	verification   ports.VerificationService
	passwordReset  ports.PasswordResetService
	authSvc        ports.AuthService
	addresses      ports.AddressService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		verification:   deps.VerificationService,
		passwordReset:  deps.PasswordResetService,
		authSvc:        deps.AuthService,
		addresses:      deps.AddressService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.AuthService,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

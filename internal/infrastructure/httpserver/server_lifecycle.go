package httpserver

import (
	"context"
	"net"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Start blocks serving HTTP, or HTTPS when both TLS files are configured.
// It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.LogMetricsInitialization()

	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	useTLS := s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"addr": addr, "tls": useTLS}).Info("Starting HTTP server")
		if !useTLS {
			s.logger.Warn("Running in HTTP mode - TLS certificates not configured")
		}
	}

	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout
	s.echo.TLSServer.ReadTimeout = s.config.ReadTimeout
	s.echo.TLSServer.WriteTimeout = s.config.WriteTimeout
	s.echo.TLSServer.IdleTimeout = s.config.IdleTimeout

	if useTLS {
		return s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("Draining in-flight requests")
	}
	return s.echo.Shutdown(ctx)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

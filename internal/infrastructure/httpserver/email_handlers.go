package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/email-auth/internal/application/services"
	"github.com/avatarctic/email-auth/internal/core/domain/email"
)

const (
	invalidVerificationTokenMessage = "The provided verification token is invalid."
	invalidResetTokenMessage        = "The provided password reset token is invalid."
)

func (s *Server) requestEmailVerification(c echo.Context) error {
	var req email.RequestVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if _, err := s.verification.RequestVerification(c.Request().Context(), req.Email); err != nil {
		return s.internalError(c, "failed to request email verification", err)
	}

	// The response is the same whether or not the address is registered.
	return c.JSON(http.StatusCreated, map[string]string{"email": req.Email})
}

func (s *Server) redeemEmailVerification(c echo.Context) error {
	var req email.RedeemVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	addr, err := s.verification.RedeemVerification(c.Request().Context(), req.Token)
	if errors.Is(err, services.ErrInvalidToken) {
		recordRedemption("verification", "invalid")
		return fieldError("token", invalidVerificationTokenMessage)
	}
	if err != nil {
		recordRedemption("verification", "error")
		return s.internalError(c, "failed to redeem email verification", err)
	}

	recordRedemption("verification", "success")
	return c.JSON(http.StatusCreated, map[string]string{"email": addr.Address})
}

func (s *Server) requestPasswordReset(c echo.Context) error {
	var req email.RequestResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if _, err := s.passwordReset.RequestReset(c.Request().Context(), req.Email); err != nil {
		return s.internalError(c, "failed to request password reset", err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"email": req.Email})
}

func (s *Server) redeemPasswordReset(c echo.Context) error {
	var req email.RedeemResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := s.passwordReset.RedeemReset(c.Request().Context(), req.Token, req.Password)

	var weak *services.WeakPasswordError
	switch {
	case err == nil:
		recordRedemption("password_reset", "success")
		return c.JSON(http.StatusCreated, map[string]string{})
	case errors.Is(err, services.ErrInvalidToken):
		recordRedemption("password_reset", "invalid")
		return fieldError("token", invalidResetTokenMessage)
	case errors.As(err, &weak):
		recordRedemption("password_reset", "weak_password")
		return fieldError("password", weak.Violations...)
	default:
		recordRedemption("password_reset", "error")
		return s.internalError(c, "failed to redeem password reset", err)
	}
}

// internalError logs err with request details and hides it from the client.
func (s *Server) internalError(c echo.Context, msg string, err error) error {
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"path":       c.Path(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).WithError(err).Error(msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/email-auth/internal/application/services"
	"github.com/avatarctic/email-auth/internal/core/domain/email"
	"github.com/avatarctic/email-auth/internal/core/domain/identity"
	"github.com/avatarctic/email-auth/internal/infrastructure/httpserver/helpers"
)

func (s *Server) login(c echo.Context) error {
	var req identity.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, err := s.authSvc.Login(c.Request().Context(), &req)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return s.internalError(c, "failed to log in", err)
	}

	return c.JSON(http.StatusOK, token)
}

type identityResponse struct {
	*identity.Identity
	Addresses []*email.Address `json:"addresses"`
}

func (s *Server) getOwnIdentity(c echo.Context) error {
	id, err := helpers.GetIdentityIDFromContext(c)
	if err != nil {
		return err
	}

	owner, err := s.authSvc.GetIdentity(c.Request().Context(), id)
	if err != nil {
		return s.internalError(c, "failed to load identity", err)
	}
	if owner == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "identity no longer exists")
	}

	addresses, err := s.addresses.ListAddresses(c.Request().Context(), owner.ID)
	if err != nil {
		return s.internalError(c, "failed to list email addresses", err)
	}
	if addresses == nil {
		addresses = []*email.Address{}
	}

	return c.JSON(http.StatusOK, identityResponse{Identity: owner, Addresses: addresses})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
	"github.com/virtuallib/catalog-service/pkg/auth"
)

func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var actor *auth.Identity
	if id, ok := auth.IdentityFromContext(c.Request().Context()); ok {
		actor = &id
	}

	user, err := h.authSvc.Register(c.Request().Context(), req, actor)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, errs.ErrDuplicate):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, _, err := h.jwt.IssueToken(user.ID, user.Username, user.Role, user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, model.AuthResponse{AccessToken: token, User: user})
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authSvc.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, _, err := h.jwt.IssueToken(user.ID, user.Username, user.Role, user.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, model.AuthResponse{AccessToken: token, User: user})
}

func (h *Handler) Me(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	user, err := h.authSvc.CurrentUser(c.Request().Context(), id.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// Logout is a stateless ack; token removal happens client-side.
func (h *Handler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (h *Handler) SetupAdmin(c echo.Context) error {
	var req model.SetupAdminRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authSvc.SetupAdmin(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, errs.ErrDuplicate):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Teacher account '" + user.Username + "' created successfully",
	})
}

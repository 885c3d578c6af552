package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
)

func (h *Handler) ListReservations(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}

	filter := model.ReservationFilter{
		Status:    model.Status(c.QueryParam("status")),
		UserEmail: c.QueryParam("user_email"),
	}
	if bookIDParam := c.QueryParam("book_id"); bookIDParam != "" {
		bookID, err := strconv.Atoi(bookIDParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "book_id is invalid")
		}
		filter.BookID = bookID
	}

	items, err := h.reservationSvc.ListReservations(c.Request().Context(), filter, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetReservation(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	res, err := h.reservationSvc.GetReservation(c.Request().Context(), id, actor)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, errs.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateReservation(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	var req model.CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.reservationSvc.CreateReservation(c.Request().Context(), req, actor)
	if err != nil {
		var active *errs.ActiveReservationError
		switch {
		case errors.As(err, &active):
			return echo.NewHTTPError(http.StatusBadRequest, echo.Map{
				"error": active.Error(),
				"active_reservation": echo.Map{
					"reservation_id": active.ReservationID,
					"book_title":     active.BookTitle,
				},
			})
		case errors.Is(err, errs.ErrBookUnavailable):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdateReservation(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req model.UpdateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.reservationSvc.UpdateReservation(c.Request().Context(), id, req, actor)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, errs.ErrTerminalState):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, errs.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteReservation(c echo.Context) error {
	actor, err := identity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.reservationSvc.DeleteReservation(c.Request().Context(), id, actor); err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, errs.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Reservation deleted successfully"})
}

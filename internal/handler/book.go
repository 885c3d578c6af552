package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/virtuallib/catalog-service/internal/errs"
	"github.com/virtuallib/catalog-service/internal/model"
)

func (h *Handler) ListBooks(c echo.Context) error {
	filter := model.BookFilter{
		Genre:  c.QueryParam("genre"),
		Search: c.QueryParam("search"),
	}
	if availableParam := c.QueryParam("available"); availableParam != "" {
		available, err := strconv.ParseBool(availableParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "available is invalid")
		}
		filter.AvailableOnly = available
	}

	books, err := h.catalogSvc.ListBooks(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	book, err := h.catalogSvc.GetBook(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	book, err := h.catalogSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.catalogSvc.UpdateBook(c.Request().Context(), id, req)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.catalogSvc.DeleteBook(c.Request().Context(), id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Book deleted successfully"})
}

func (h *Handler) ListGenres(c echo.Context) error {
	genres, err := h.catalogSvc.ListGenres(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, genres)
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	return id, nil
}

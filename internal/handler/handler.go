package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/virtuallib/catalog-service/pkg/auth"
	"github.com/virtuallib/catalog-service/pkg/validate"
)

type Handler struct {
	catalogSvc     CatalogService
	authSvc        AuthService
	reservationSvc ReservationService
	jwt            *auth.Manager
	log            *zap.Logger
}

func New(catalogSvc CatalogService, authSvc AuthService, reservationSvc ReservationService, jwt *auth.Manager, log *zap.Logger) *Handler {
	return &Handler{
		catalogSvc:     catalogSvc,
		authSvc:        authSvc,
		reservationSvc: reservationSvc,
		jwt:            jwt,
		log:            log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))
	e.HTTPErrorHandler = errorHandler

	base := e.Group("", newRateLimiterMW(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api",
		middleware.RequestLoggerWithConfig(requestLoggerConfig()),
		middleware.RequestID(),
		newRateLimiterMW(apiRPS),
	)

	api.POST("/auth/register", h.Register, h.jwt.OptionalMiddleware())
	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", h.Me, h.jwt.Middleware())
	api.POST("/auth/logout", h.Logout, h.jwt.Middleware())
	api.POST("/setup-admin", h.SetupAdmin)

	api.GET("/books", h.ListBooks)
	api.GET("/books/:id", h.GetBook)
	api.POST("/books", h.CreateBook, h.jwt.Middleware(), auth.TeacherRequired)
	api.PUT("/books/:id", h.UpdateBook, h.jwt.Middleware(), auth.TeacherRequired)
	api.DELETE("/books/:id", h.DeleteBook, h.jwt.Middleware(), auth.TeacherRequired)
	api.GET("/genres", h.ListGenres)

	rsv := api.Group("/reservations", h.jwt.Middleware())
	rsv.GET("", h.ListReservations)
	rsv.GET("/:id", h.GetReservation)
	rsv.POST("", h.CreateReservation)
	rsv.PUT("/:id", h.UpdateReservation)
	rsv.DELETE("/:id", h.DeleteReservation)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "healthy"})
}

// errorHandler renders every error as the contract's {"error": ...} body.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := interface{}(http.StatusText(code))
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = he.Message
	}

	var body interface{}
	switch m := msg.(type) {
	case string:
		body = echo.Map{"error": m}
	case map[string]interface{}:
		body = m
	case echo.Map:
		body = m
	default:
		body = echo.Map{"error": fmt.Sprintf("%v", m)}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}

// identity pulls the caller set by the JWT middleware.
func identity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "Authorization required")
	}
	return id, nil
}

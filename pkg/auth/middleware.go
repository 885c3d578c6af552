package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "
)

// Middleware requires a valid bearer token and stores the caller identity
// in the request context.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if authorization == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization required")
			}
			if !strings.HasPrefix(authorization, bearer) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
			}
			claims, err := m.ParseToken(strings.TrimPrefix(authorization, bearer))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

// OptionalMiddleware parses a bearer token when present but lets anonymous
// requests through. Used by register, where a teacher caller unlocks
// teacher-account creation.
func (m *Manager) OptionalMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(AuthorizationHeader)
			if strings.HasPrefix(authorization, bearer) {
				if claims, err := m.ParseToken(strings.TrimPrefix(authorization, bearer)); err == nil {
					setIdentity(c, claims)
				}
			}
			return next(c)
		}
	}
}

// TeacherRequired gates an already-authenticated route on the teacher role.
func TeacherRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := IdentityFromContext(c.Request().Context())
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization required")
		}
		if !id.IsTeacher() {
			return echo.NewHTTPError(http.StatusForbidden, "Teacher access required")
		}
		return next(c)
	}
}

func setIdentity(c echo.Context, claims *Claims) {
	req := c.Request()
	ctx := SetAuthContext(req.Context(), Identity{
		UserID:   claims.Profile.UserID,
		Username: claims.Profile.Username,
		Role:     claims.Profile.Role,
		Email:    claims.Email,
	})
	c.SetRequest(req.WithContext(ctx))
}

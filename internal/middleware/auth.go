package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"backoffice-service/internal/model"
	"backoffice-service/internal/token"
	"backoffice-service/pkg/logger"
	"backoffice-service/prometheus"
)

// PrincipalKey is the echo context key the authenticated principal is
// stored under.
const PrincipalKey = "principal"

// Auth validates the bearer session token and stores the principal
// reference in the context. Only the user id travels in the token; the
// DAOs resolve the stored record themselves, so a principal can never
// assert its own role.
func Auth(tokens *token.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Error("Missing Authorization header")
				prometheus.RecordError("token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Error("Invalid Authorization header format")
				prometheus.RecordError("token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := tokens.ParseSessionToken(parts[1])
			if err != nil {
				log.Error("Invalid session token", zap.Error(err))
				prometheus.RecordError("token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(PrincipalKey, &model.User{Base: model.Base{ID: claims.UserID}})
			return next(c)
		}
	}
}

// Principal returns the authenticated principal reference from the
// context, or nil when the request is anonymous.
func Principal(c echo.Context) *model.User {
	principal, _ := c.Get(PrincipalKey).(*model.User)
	return principal
}

package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"backoffice-service/internal/apierr"
	"backoffice-service/prometheus"
)

// respondError maps a typed error to its HTTP shape. Validation and
// conflict errors carry their field detail; infrastructure errors only
// surface a generic indicator.
func respondError(c echo.Context, err error) error {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierr.Infrastructure("internal error", err)
	}
	prometheus.RecordError(string(apiErr.Kind))

	body := echo.Map{"error": apiErr.Public()}
	if len(apiErr.Violations) > 0 {
		body["violations"] = apiErr.Violations
	}
	return c.JSON(apiErr.HTTPStatus(), body)
}

// ok is the minimal success envelope for commit-style endpoints.
func ok(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
